package workers

import (
	"encoding/binary"
	"sync"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/databuf"
	"github.com/hashpipe/hashpipe-go/internal/registry"
	"github.com/hashpipe/hashpipe-go/internal/workerrt"
)

func init() {
	err := registry.Register(registry.Descriptor{
		Name:         "countoutput",
		StatusKey:    "CNTOUT",
		NewInputRing: newCounterRing,
		Run:          runCountOutput,
	})
	if err != nil {
		panic(err)
	}
}

// Seen records every counter value a countoutput worker has read, guarded
// by a mutex since the supervisor's Run spawns each worker on its own
// goroutine and a test may inspect Seen concurrently with the worker loop.
type Seen struct {
	mu     sync.Mutex
	values []uint64
}

func (s *Seen) record(v uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, v)
}

// Values returns a copy of every counter value recorded so far.
func (s *Seen) Values() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, len(s.values))
	copy(out, s.values)
	return out
}

var countOutputSeen = &Seen{}

// CountOutputSeen exposes the shared Seen record the built-in countoutput
// worker writes to, for tests that want to assert on what it observed.
func CountOutputSeen() *Seen { return countOutputSeen }

func runCountOutput(args *workerrt.Args) error {
	ring, err := databuf.Attach(args.InstanceID, args.InputBuffer)
	if err != nil {
		return hashpipe.WrapError("countoutput", "run", hashpipe.ErrKindFatalSystem, err)
	}
	defer ring.Detach()

	block := 0
	for workerrt.Running() {
		select {
		case <-args.Ctx.Done():
			return nil
		default:
		}

		outcome, err := ring.WaitFilled(args.Ctx, block)
		if err != nil {
			return hashpipe.WrapError("countoutput", "run", hashpipe.ErrKindFatalSystem, err)
		}
		if outcome != hashpipe.WaitOK {
			continue
		}

		payload := ring.PayloadBytes(block)
		countOutputSeen.record(binary.LittleEndian.Uint64(payload[:8]))

		if err := ring.SetFree(block); err != nil {
			return hashpipe.WrapError("countoutput", "run", hashpipe.ErrKindFatalSystem, err)
		}

		block = (block + 1) % ring.NBlock()
	}
	return nil
}
