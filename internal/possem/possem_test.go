//go:build linux && cgo

package possem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenWaitPostRoundTrip(t *testing.T) {
	name := fmt.Sprintf("/hashpipe_possem_test_%s", t.Name())
	defer Unlink(name)

	s, err := Open(name, 1)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Wait())
	require.Error(t, s.TryWait(), "semaphore should be at 0 after Wait")
}

func TestTryWaitFailsWhenZero(t *testing.T) {
	name := fmt.Sprintf("/hashpipe_possem_test2_%s", t.Name())
	defer Unlink(name)

	s, err := Open(name, 0)
	require.NoError(t, err)
	defer s.Close()

	err = s.TryWait()
	require.Error(t, err)
}

func TestPostAllowsSubsequentWait(t *testing.T) {
	name := fmt.Sprintf("/hashpipe_possem_test3_%s", t.Name())
	defer Unlink(name)

	s, err := Open(name, 0)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Post())
	require.NoError(t, s.Wait())
}
