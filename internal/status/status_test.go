//go:build linux && cgo

package status

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func freshInstance(t *testing.T) int {
	t.Helper()
	dir := t.TempDir()
	os.Setenv("HASHPIPE_KEYFILE", dir)
	os.Setenv("HASHPIPE_STATUS_SEMNAME", fmt.Sprintf("/hp_status_test_%d", os.Getpid())+t.Name())
	t.Cleanup(func() {
		os.Unsetenv("HASHPIPE_KEYFILE")
		os.Unsetenv("HASHPIPE_STATUS_SEMNAME")
	})
	return 7
}

func TestAttachInitializesInstanceKey(t *testing.T) {
	instance := freshInstance(t)
	b, err := Attach(instance, nil)
	require.NoError(t, err)
	defer b.Detach()

	v, ok, err := b.GetInt("INSTANCE")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(instance), v)
}

func TestPutGetRoundTrip(t *testing.T) {
	instance := freshInstance(t)
	b, err := Attach(instance, nil)
	require.NoError(t, err)
	defer b.Detach()

	require.NoError(t, b.Put("IBVIFACE", "eth0"))
	v, ok := b.Get("IBVIFACE")
	require.True(t, ok)
	require.Equal(t, "eth0", v)
}

func TestLockUnlock(t *testing.T) {
	instance := freshInstance(t)
	b, err := Attach(instance, nil)
	require.NoError(t, err)
	defer b.Detach()

	require.NoError(t, b.Lock())
	require.NoError(t, b.Unlock())
}

func TestClearResetsButKeepsInstance(t *testing.T) {
	instance := freshInstance(t)
	b, err := Attach(instance, nil)
	require.NoError(t, err)
	defer b.Detach()

	require.NoError(t, b.Put("IBVIFACE", "eth0"))
	require.NoError(t, b.Clear())

	_, ok := b.Get("IBVIFACE")
	require.False(t, ok)

	v, ok, err := b.GetInt("INSTANCE")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(instance), v)
}

func TestKeysListsPutKeys(t *testing.T) {
	instance := freshInstance(t)
	b, err := Attach(instance, nil)
	require.NoError(t, err)
	defer b.Detach()

	require.NoError(t, b.Put("IBVIFACE", "eth0"))
	require.NoError(t, b.PutInt("MAXFLOWS", 16))

	keys := b.Keys()
	require.Contains(t, keys, "INSTANCE")
	require.Contains(t, keys, "IBVIFACE")
	require.Contains(t, keys, "MAXFLOWS")
}
