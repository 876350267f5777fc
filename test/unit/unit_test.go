//go:build linux && cgo

// Package unit runs without requiring a spawned pipeline process: status
// buffer concurrency and instance-isolation invariants that only need a
// status buffer attached directly.
package unit

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashpipe/hashpipe-go/internal/status"
)

// TestStatusConcurrentPutGetNeverObservesStaleOrTornValue is the status
// concurrency scenario: many goroutines hammer the same key under the
// buffer's lock, and a reader interleaved with them must only ever
// observe a value that was actually put, never a torn or stale one.
func TestStatusConcurrentPutGetNeverObservesStaleOrTornValue(t *testing.T) {
	const instanceID = 801
	buf, err := status.Attach(instanceID, nil)
	require.NoError(t, err)
	defer buf.Detach()

	const goroutines = 100
	const itersPerGoroutine = 1000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < itersPerGoroutine; i++ {
				require.NoError(t, buf.PutInt("CNT", int64(g*itersPerGoroutine+i)))
				require.NoError(t, buf.Lock())
				_, ok, err := buf.GetInt("CNT")
				require.NoError(t, buf.Unlock())
				require.NoError(t, err)
				require.True(t, ok, "must never observe a torn (missing) record")
			}
		}(g)
	}
	wg.Wait()

	_, ok, err := buf.GetInt("CNT")
	require.NoError(t, err)
	require.True(t, ok)
}

// TestStatusLockSerializesPutGetPairs verifies property 5 directly: a
// get() interleaved with a sequence of locked put(k, v_i) calls returns
// some v_j with j <= the latest completed put, never a value that was
// never issued.
func TestStatusLockSerializesPutGetPairs(t *testing.T) {
	const instanceID = 802
	buf, err := status.Attach(instanceID, nil)
	require.NoError(t, err)
	defer buf.Detach()

	issued := map[string]bool{}
	var mu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			v := fmt.Sprintf("v%d", i)
			mu.Lock()
			issued[v] = true
			mu.Unlock()
			// Put takes the buffer's lock itself.
			require.NoError(t, buf.Put("SEQKEY", v))
		}
	}()

	for i := 0; i < 500; i++ {
		require.NoError(t, buf.Lock())
		v, ok := buf.Get("SEQKEY")
		require.NoError(t, buf.Unlock())
		if ok {
			mu.Lock()
			wasIssued := issued[v]
			mu.Unlock()
			require.True(t, wasIssued, "get returned a value that was never put: %q", v)
		}
	}
	wg.Wait()
}

// TestStatusInstanceIsolation is the instance-isolation scenario:
// operations on one instance's status buffer never alter another
// instance's.
func TestStatusInstanceIsolation(t *testing.T) {
	bufA, err := status.Attach(811, nil)
	require.NoError(t, err)
	defer bufA.Detach()

	bufB, err := status.Attach(812, nil)
	require.NoError(t, err)
	defer bufB.Detach()

	require.NoError(t, bufA.Put("ONLYA", "1"))
	_, ok := bufB.Get("ONLYA")
	require.False(t, ok, "instance B must not see instance A's keys")
}
