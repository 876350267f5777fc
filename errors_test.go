package hashpipe

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewError("databuf", "WaitFilled", ErrKindParameter, "invalid block id")
	require.Equal(t, "WaitFilled", err.Op)
	require.Equal(t, ErrKindParameter, err.Kind)
	require.Contains(t, err.Error(), "invalid block id")
	require.Contains(t, err.Error(), "databuf.WaitFilled")
}

func TestWrapErrorMapsErrno(t *testing.T) {
	err := WrapError("status", "Attach", ErrKindUnknown, syscall.ENOENT)
	require.Equal(t, ErrKindParameter, err.Kind)
	require.Equal(t, syscall.ENOENT, err.Errno)
	require.True(t, errors.Is(err, syscall.ENOENT))
}

func TestWrapErrorNilIsNil(t *testing.T) {
	require.Nil(t, WrapError("status", "Attach", ErrKindUnknown, nil))
}

func TestErrorIsMatchesKindAndComponent(t *testing.T) {
	a := NewError("ibv", "PollCompletions", ErrKindProtocol, "bad completion")
	b := &Error{Component: "ibv", Kind: ErrKindProtocol}
	require.True(t, errors.Is(a, b))

	c := &Error{Component: "pktsock", Kind: ErrKindProtocol}
	require.False(t, errors.Is(a, c))
}

func TestMapErrnoToKind(t *testing.T) {
	cases := []struct {
		errno syscall.Errno
		want  ErrKind
	}{
		{syscall.EAGAIN, ErrKindTransient},
		{syscall.ETIMEDOUT, ErrKindTransient},
		{syscall.EINTR, ErrKindSignal},
		{syscall.EINVAL, ErrKindParameter},
		{syscall.ENOENT, ErrKindParameter},
		{syscall.EIO, ErrKindFatalSystem},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, mapErrnoToKind(tc.errno), tc.errno.Error())
	}
}

func TestWaitOutcomeString(t *testing.T) {
	require.Equal(t, "ok", WaitOK.String())
	require.Equal(t, "timed-out", WaitTimedOut.String())
	require.Equal(t, "interrupted", WaitInterrupted.String())
}
