// Package workers holds the built-in example worker modules: a
// topology-neutral counter source and sink standing in for the
// out-of-scope paper_* application threads, giving every ring/worker/
// status operation this repository implements a real, runnable exerciser.
package workers

import (
	"encoding/binary"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
	"github.com/hashpipe/hashpipe-go/internal/databuf"
	"github.com/hashpipe/hashpipe-go/internal/registry"
	"github.com/hashpipe/hashpipe-go/internal/workerrt"
)

const counterHeaderSize = 64

func init() {
	err := registry.Register(registry.Descriptor{
		Name:          "counterinput",
		StatusKey:     "CNTSTAT",
		NewOutputRing: newCounterRing,
		Run:           runCounterInput,
	})
	if err != nil {
		panic(err)
	}
}

func newCounterRing(instanceID, databufID int) (*databuf.Ring, error) {
	return databuf.Create(instanceID, databufID, counterHeaderSize, constants.DefaultBlockSize, constants.DefaultNBlock)
}

// runCounterInput writes an ever-increasing uint64 counter into the first
// 8 bytes of each block's payload, one block at a time, standing in for
// paper_fake_net_thread's role as a topology-neutral test source.
func runCounterInput(args *workerrt.Args) error {
	ring, err := databuf.Attach(args.InstanceID, args.OutputBuffer)
	if err != nil {
		return hashpipe.WrapError("counterinput", "run", hashpipe.ErrKindFatalSystem, err)
	}
	defer ring.Detach()

	var counter uint64
	block := 0
	for workerrt.Running() {
		select {
		case <-args.Ctx.Done():
			return nil
		default:
		}

		outcome, err := ring.WaitFree(args.Ctx, block)
		if err != nil {
			return hashpipe.WrapError("counterinput", "run", hashpipe.ErrKindFatalSystem, err)
		}
		if outcome != hashpipe.WaitOK {
			continue
		}

		payload := ring.PayloadBytes(block)
		binary.LittleEndian.PutUint64(payload[:8], counter)

		if err := ring.SetFilled(block); err != nil {
			return hashpipe.WrapError("counterinput", "run", hashpipe.ErrKindFatalSystem, err)
		}

		counter++
		block = (block + 1) % ring.NBlock()
	}
	return nil
}
