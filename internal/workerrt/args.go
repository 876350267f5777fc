package workerrt

import "context"

// Args is the per-worker runtime argument bundle the supervisor builds and
// owns for the lifetime of one worker: the Go counterpart of
// hashpipe_thread_args_t plus the input/output ring indices a worker
// descriptor's Init/Run functions need to attach to their databufs.
type Args struct {
	InstanceID    int
	InputBuffer   int // 0 means "no input ring"
	OutputBuffer  int // 0 means "no output ring"
	CPUMask       uint64
	Priority      int
	Ctx           context.Context
	Finished      *Finished
}

// NewArgs builds an Args bundle for one worker slot.
func NewArgs(ctx context.Context, instanceID int) *Args {
	return &Args{
		InstanceID: instanceID,
		Ctx:        ctx,
		Finished:   NewFinished(),
	}
}
