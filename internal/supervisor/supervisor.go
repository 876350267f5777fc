// Package supervisor implements the pipeline supervisor: the process that
// parses a pipeline's command line, builds a chain of worker descriptors
// against a shared set of ring databufs and one status buffer, and runs
// them until a shutdown signal arrives.
//
// The lifecycle is the four-stage state machine the original hashpipe
// binary's main() ran inline: Build, Commit, Run, Shutdown.
package supervisor

import (
	"context"
	"fmt"
	"time"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
	"github.com/hashpipe/hashpipe-go/internal/databuf"
	"github.com/hashpipe/hashpipe-go/internal/logging"
	"github.com/hashpipe/hashpipe-go/internal/registry"
	"github.com/hashpipe/hashpipe-go/internal/status"
	"github.com/hashpipe/hashpipe-go/internal/workerrt"
)

// WorkerSlot is the mutable per-worker record the supervisor builds and
// owns until the worker starts: the descriptor it was looked up from, the
// runtime args it will run with, and the rings it attached during Build.
type WorkerSlot struct {
	Descriptor registry.Descriptor
	Args       *workerrt.Args
	InputRing  *databuf.Ring
	OutputRing *databuf.Ring

	cancel context.CancelFunc
	runErr error
}

// Pipeline is a built, committed, running (or stopped) chain of workers
// sharing one status buffer and one instance id.
type Pipeline struct {
	InstanceID int
	Status     *status.Buffer
	Workers    []*WorkerSlot

	logger *logging.Logger
}

// Build resolves each name in names against the registry, in order,
// assigning monotonically increasing ring indices so that worker i's
// output ring is worker i+1's input ring, and calling each descriptor's
// Init hook. Any failure aborts before any worker spawns and detaches
// whatever rings/status were already attached.
func Build(ctx context.Context, instanceID int, names []string, affinity map[int]uint64, priority map[int]int, logger *logging.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if len(names) == 0 {
		return nil, hashpipe.NewError("supervisor", "Build", hashpipe.ErrKindParameter, "no workers named")
	}

	statusBuf, err := status.Attach(instanceID, logger)
	if err != nil {
		return nil, hashpipe.WrapError("supervisor", "Build", hashpipe.ErrKindFatalSystem, err)
	}

	p := &Pipeline{InstanceID: instanceID, Status: statusBuf, logger: logger}

	ringSeq := 0 // databuf slot counter; ring i's output is ring i+1's input
	for i, name := range names {
		d, ok := registry.Find(name)
		if !ok {
			p.teardown()
			return nil, hashpipe.WrapError("supervisor", "Build", hashpipe.ErrKindParameter, fmt.Errorf("%w: %s", hashpipe.ErrNotRegistered, name))
		}

		args := workerrt.NewArgs(ctx, instanceID)
		args.CPUMask = affinity[i]
		args.Priority = priority[i]

		slot := &WorkerSlot{Descriptor: d, Args: args}

		// ringSeq always names the most recently created ring: a worker
		// that reads from a ring attaches to the current value (its
		// upstream neighbor's output), and a worker that produces one
		// advances ringSeq first and creates the new ring under that
		// value, so a chain's producer/consumer pair always agree on
		// one index.
		if d.NewInputRing != nil {
			ring, err := d.NewInputRing(instanceID, ringSeq)
			if err != nil {
				p.teardown()
				return nil, hashpipe.WrapError("supervisor", "Build", hashpipe.ErrKindFatalSystem, err)
			}
			slot.InputRing = ring
			args.InputBuffer = ringSeq
		}
		if d.NewOutputRing != nil {
			ringSeq++
			ring, err := d.NewOutputRing(instanceID, ringSeq)
			if err != nil {
				p.teardown()
				return nil, hashpipe.WrapError("supervisor", "Build", hashpipe.ErrKindFatalSystem, err)
			}
			slot.OutputRing = ring
			args.OutputBuffer = ringSeq
		}

		if d.Init != nil {
			if err := d.Init(args); err != nil {
				p.teardown()
				return nil, hashpipe.WrapError("supervisor", "Build", hashpipe.ErrKindFatalSystem, err)
			}
		}

		p.Workers = append(p.Workers, slot)
		logger.Info("built worker", "index", i, "name", name, "input", args.InputBuffer, "output", args.OutputBuffer)
	}

	return p, nil
}

// Commit writes a set of -o KEY=VALUE (or bare KEY) options into the
// pipeline's status buffer, the Go counterpart of the CLI's -o option
// handling performed once before Run.
func (p *Pipeline) Commit(options map[string]string) error {
	for k, v := range options {
		if err := p.Status.Put(k, v); err != nil {
			return hashpipe.WrapError("supervisor", "Commit", hashpipe.ErrKindProtocol, err)
		}
	}
	return nil
}

// Run spawns every worker's Run function in reverse pipeline order
// (downstream-first, so a worker's consumer is already waiting before it
// starts producing), pausing constants.WorkerSpawnDelay between spawns,
// and blocks until workerrt.Running() goes false.
func (p *Pipeline) Run() {
	for i := len(p.Workers) - 1; i >= 0; i-- {
		slot := p.Workers[i]
		ctx, cancel := context.WithCancel(slot.Args.Ctx)
		slot.Args.Ctx = ctx
		slot.cancel = cancel

		go func(s *WorkerSlot, name string) {
			defer s.Args.Finished.Signal()
			if s.Descriptor.Run == nil {
				return
			}
			if err := s.Descriptor.Run(s.Args); err != nil {
				p.logger.Error("worker exited with error", "name", name, "error", err)
				s.runErr = err
			}
		}(slot, slot.Descriptor.Name)

		if i > 0 {
			time.Sleep(constants.WorkerSpawnDelay)
		}
	}

	for workerrt.Running() {
		time.Sleep(50 * time.Millisecond)
	}
}

// Shutdown cancels every worker's context, waits (bounded by
// constants.ShutdownJoinTimeout per worker) for each to report Finished in
// reverse spawn order, then detaches every ring and the status buffer.
func (p *Pipeline) Shutdown() {
	for i := 0; i < len(p.Workers); i++ {
		slot := p.Workers[i]
		if slot.cancel != nil {
			slot.cancel()
		}
	}
	for i := 0; i < len(p.Workers); i++ {
		slot := p.Workers[i]
		if !slot.Args.Finished.Wait(constants.ShutdownJoinTimeout) {
			p.logger.Warn("worker did not finish within shutdown timeout", "name", slot.Descriptor.Name)
		}
	}
	p.teardown()
}

// teardown detaches every ring and the status buffer, best-effort, in
// reverse build order.
func (p *Pipeline) teardown() {
	for i := len(p.Workers) - 1; i >= 0; i-- {
		slot := p.Workers[i]
		if slot.OutputRing != nil {
			slot.OutputRing.Detach()
		}
		if slot.InputRing != nil {
			slot.InputRing.Detach()
		}
	}
	if p.Status != nil {
		p.Status.Detach()
	}
}
