package registry

import (
	"bytes"
	"fmt"
	"testing"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
	"github.com/hashpipe/hashpipe-go/internal/workerrt"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndFind(t *testing.T) {
	reset()
	defer reset()

	d := Descriptor{Name: "counterinput", StatusKey: "CNTSTAT"}
	require.NoError(t, Register(d))

	found, ok := Find("counterinput")
	require.True(t, ok)
	require.Equal(t, "CNTSTAT", found.StatusKey)
}

func TestRegisterDuplicateNameErrors(t *testing.T) {
	reset()
	defer reset()

	require.NoError(t, Register(Descriptor{Name: "dup"}))
	err := Register(Descriptor{Name: "dup"})
	require.Error(t, err)
}

func TestFindMissingReturnsFalse(t *testing.T) {
	reset()
	defer reset()
	_, ok := Find("nope")
	require.False(t, ok)
}

func TestListWritesEveryName(t *testing.T) {
	reset()
	defer reset()
	require.NoError(t, Register(Descriptor{Name: "a"}))
	require.NoError(t, Register(Descriptor{Name: "b"}))

	var buf bytes.Buffer
	List(&buf)
	require.Contains(t, buf.String(), "a")
	require.Contains(t, buf.String(), "b")
}

func TestDescriptorRunIsInvoked(t *testing.T) {
	reset()
	defer reset()

	called := false
	require.NoError(t, Register(Descriptor{
		Name: "echo",
		Run: func(args *workerrt.Args) error {
			called = true
			return nil
		},
	}))

	d, ok := Find("echo")
	require.True(t, ok)
	require.NoError(t, d.Run(workerrt.NewArgs(nil, 0)))
	require.True(t, called)
}

func TestRegisterFullReturnsSentinel(t *testing.T) {
	reset()
	defer reset()

	for i := 0; i < constants.MaxThreads; i++ {
		require.NoError(t, Register(Descriptor{Name: fmt.Sprintf("w%d", i)}))
	}
	err := Register(Descriptor{Name: "overflow"})
	require.ErrorIs(t, err, hashpipe.ErrRegistryFull)
}
