//go:build linux

package databuf

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/stretchr/testify/require"
)

func freshInstance(t *testing.T) int {
	t.Helper()
	dir := t.TempDir()
	os.Setenv("HASHPIPE_KEYFILE", dir)
	t.Cleanup(func() { os.Unsetenv("HASHPIPE_KEYFILE") })
	return 11
}

func TestCreateAttachRoundTrip(t *testing.T) {
	instance := freshInstance(t)
	r, err := Create(instance, 1, 64, 1024, 4)
	require.NoError(t, err)
	defer r.Detach()

	require.Equal(t, 4, r.NBlock())
	require.Equal(t, uintptr(64), r.HeaderSize())
	require.Equal(t, uintptr(1024), r.BlockSize())
}

func TestCreateTwiceVerifiesSizing(t *testing.T) {
	instance := freshInstance(t)
	r1, err := Create(instance, 2, 64, 1024, 4)
	require.NoError(t, err)
	defer r1.Detach()

	r2, err := Create(instance, 2, 64, 1024, 4)
	require.NoError(t, err)
	defer r2.Detach()
}

func TestCreateTwiceMismatchErrors(t *testing.T) {
	instance := freshInstance(t)
	r1, err := Create(instance, 3, 64, 1024, 4)
	require.NoError(t, err)
	defer r1.Detach()

	_, err = Create(instance, 3, 64, 2048, 4)
	require.ErrorIs(t, err, hashpipe.ErrSizeMismatch)
}

func TestSetFreeSetFilledBlockStatus(t *testing.T) {
	instance := freshInstance(t)
	r, err := Create(instance, 4, 64, 1024, 2)
	require.NoError(t, err)
	defer r.Detach()

	status, err := r.BlockStatus(0)
	require.NoError(t, err)
	require.Equal(t, 0, status)

	require.NoError(t, r.SetFilled(0))
	status, err = r.BlockStatus(0)
	require.NoError(t, err)
	require.Equal(t, 1, status)

	total, err := r.TotalStatus()
	require.NoError(t, err)
	require.Equal(t, 1, total)

	require.NoError(t, r.SetFree(0))
	status, err = r.BlockStatus(0)
	require.NoError(t, err)
	require.Equal(t, 0, status)
}

func TestWaitFreeTimesOutWhenBlockFilled(t *testing.T) {
	instance := freshInstance(t)
	r, err := Create(instance, 5, 64, 1024, 1)
	require.NoError(t, err)
	defer r.Detach()

	require.NoError(t, r.SetFilled(0))

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	outcome, err := r.WaitFree(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, hashpipe.WaitTimedOut, outcome)
}

func TestWaitFilledSucceedsWithoutConsuming(t *testing.T) {
	instance := freshInstance(t)
	r, err := Create(instance, 6, 64, 1024, 1)
	require.NoError(t, err)
	defer r.Detach()

	require.NoError(t, r.SetFilled(0))

	ctx := context.Background()
	outcome, err := r.WaitFilled(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, hashpipe.WaitOK, outcome)

	// WaitFilled must not consume the flag: block is still filled.
	status, err := r.BlockStatus(0)
	require.NoError(t, err)
	require.Equal(t, 1, status)

	outcome, err = r.WaitFilled(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, hashpipe.WaitOK, outcome)
}

func TestWaitFilledInterruptedByContext(t *testing.T) {
	instance := freshInstance(t)
	r, err := Create(instance, 7, 64, 1024, 1)
	require.NoError(t, err)
	defer r.Detach()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := r.WaitFilled(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, hashpipe.WaitInterrupted, outcome)
}

func TestTypedHeaderPayloadRoundTrip(t *testing.T) {
	type blockHeader struct {
		Sequence uint64
		Flags    uint32
	}

	instance := freshInstance(t)
	r, err := Create(instance, 8, 16, 256, 2)
	require.NoError(t, err)
	defer r.Detach()

	typed := NewTyped[blockHeader](r)
	h := typed.Header(0)
	h.Sequence = 42
	h.Flags = 7

	h2 := typed.Header(0)
	require.Equal(t, uint64(42), h2.Sequence)

	payload := typed.Payload(0)
	require.Equal(t, int(r.BlockSize()-r.HeaderSize()), len(payload))
}

func TestTotalMaskReportsFilledBlocks(t *testing.T) {
	instance := freshInstance(t)
	r, err := Create(instance, 9, 8, 64, 3)
	require.NoError(t, err)
	defer r.Detach()

	require.NoError(t, r.SetFilled(0))
	require.NoError(t, r.SetFilled(2))

	mask, err := r.TotalMask()
	require.NoError(t, err)
	require.Equal(t, uint64(0b101), mask)
}

func TestClearResetsAllBlocks(t *testing.T) {
	instance := freshInstance(t)
	r, err := Create(instance, 10, 8, 64, 3)
	require.NoError(t, err)
	defer r.Detach()

	require.NoError(t, r.SetFilled(0))
	require.NoError(t, r.SetFilled(1))
	require.NoError(t, r.Clear())

	total, err := r.TotalStatus()
	require.NoError(t, err)
	require.Equal(t, 0, total)
}

func ExampleCreate() {
	instance := 42
	r, err := Create(instance, 1, 64, 1024, 8)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer r.Detach()
	fmt.Println(r.NBlock())
	// Output: 8
}
