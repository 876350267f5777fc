// Package workerrt holds the small runtime utilities every worker goroutine
// uses: CPU affinity/priority, the process-wide shutdown flag, and the
// per-worker finished signal the supervisor joins against.
package workerrt

import (
	"runtime"

	"golang.org/x/sys/unix"

	hashpipe "github.com/hashpipe/hashpipe-go"
)

// ApplyAffinity pins the calling OS thread to the CPUs set in mask,
// mirroring the queue runner's unix.CPUSet/SchedSetaffinity usage. Callers
// on a goroutine that should stay pinned must call runtime.LockOSThread
// first.
func ApplyAffinity(mask uint64) error {
	if mask == 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < 64; i++ {
		if mask&(1<<uint(i)) != 0 {
			set.Set(i)
		}
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return hashpipe.WrapError("workerrt", "ApplyAffinity", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

// ApplyPriority sets the calling process's scheduling priority (nice
// value).
func ApplyPriority(priority int) error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, priority); err != nil {
		return hashpipe.WrapError("workerrt", "ApplyPriority", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

// LockToAffinity locks the calling goroutine to its OS thread and applies
// mask, the sequence every worker's run loop performs before entering its
// wait/process cycle.
func LockToAffinity(mask uint64) error {
	runtime.LockOSThread()
	return ApplyAffinity(mask)
}
