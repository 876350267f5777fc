//go:build linux && cgo && integration

// Package integration exercises the supervisor, registry, and built-in
// worker modules end-to-end, the way a real pipeline invocation would.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashpipe/hashpipe-go/internal/databuf"
	"github.com/hashpipe/hashpipe-go/internal/registry"
	"github.com/hashpipe/hashpipe-go/internal/supervisor"
	"github.com/hashpipe/hashpipe-go/internal/workerrt"

	"github.com/hashpipe/hashpipe-go/workers"
)

// TestTwoWorkerPipelineDeliversCounters is the two-worker pipeline
// scenario: an input-only worker emits counter blocks, an output-only
// worker reads them, and after shutdown the ring holds no filled blocks
// while the consumer has observed every value in order.
func TestTwoWorkerPipelineDeliversCounters(t *testing.T) {
	workerrt.Set()

	const instanceID = 901
	p, err := supervisor.Build(context.Background(), instanceID,
		[]string{"counterinput", "countoutput"}, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, p.Commit(nil))

	baseline := len(workers.CountOutputSeen().Values())

	go p.Run()

	deadline := time.After(2 * time.Second)
	for {
		if len(workers.CountOutputSeen().Values())-baseline >= 10 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("consumer did not observe 10 counters in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	workerrt.Clear()
	p.Shutdown()
	workerrt.Set()

	// Seen is a package-level singleton shared by every pipeline in this
	// binary, so only the slice segment appended by this test's own run
	// is guaranteed to be contiguous.
	seen := workers.CountOutputSeen().Values()[baseline:]
	require.GreaterOrEqual(t, len(seen), 10)
	for i := 1; i < len(seen); i++ {
		require.Equal(t, seen[i-1]+1, seen[i], "counters must arrive in order")
	}

	ring, err := databuf.Attach(instanceID, 1)
	require.NoError(t, err)
	defer ring.Detach()
	mask, err := ring.TotalMask()
	require.NoError(t, err)
	require.Zero(t, mask, "every block should have been freed by the consumer")
}

// TestSizingMismatchAbortsBuild is the ring-sizing-mismatch scenario:
// a worker whose input-ring factory declares different block geometry
// than the upstream worker already created fails at Build, before any
// worker is spawned.
func TestSizingMismatchAbortsBuild(t *testing.T) {
	const instanceID = 902

	err := registry.Register(registry.Descriptor{
		Name: "mismatch-producer",
		NewOutputRing: func(instanceID, databufID int) (*databuf.Ring, error) {
			return databuf.Create(instanceID, databufID, 256, 1<<20, 8)
		},
		Run: func(args *workerrt.Args) error {
			<-args.Ctx.Done()
			return nil
		},
	})
	require.NoError(t, err)

	err = registry.Register(registry.Descriptor{
		Name: "mismatch-consumer",
		NewInputRing: func(instanceID, databufID int) (*databuf.Ring, error) {
			return databuf.Create(instanceID, databufID, 256, 1<<20, 16)
		},
		Run: func(args *workerrt.Args) error {
			<-args.Ctx.Done()
			return nil
		},
	})
	require.NoError(t, err)

	_, err = supervisor.Build(context.Background(), instanceID,
		[]string{"mismatch-producer", "mismatch-consumer"}, nil, nil, nil)
	require.Error(t, err)
}

// TestShutdownStopsEveryWorkerWithinOneSecond is the SIGINT-equivalent
// shutdown scenario: clearing the running flag during steady state brings
// every worker to Finished and releases its rings within one second.
func TestShutdownStopsEveryWorkerWithinOneSecond(t *testing.T) {
	workerrt.Set()

	const instanceID = 903
	p, err := supervisor.Build(context.Background(), instanceID,
		[]string{"counterinput", "countoutput"}, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, p.Commit(nil))

	go p.Run()
	time.Sleep(50 * time.Millisecond) // let both workers reach steady state

	start := time.Now()
	workerrt.Clear()
	p.Shutdown()
	require.Less(t, time.Since(start), time.Second)

	for _, slot := range p.Workers {
		require.True(t, slot.Args.Finished.IsDone())
	}

	workerrt.Set()
}
