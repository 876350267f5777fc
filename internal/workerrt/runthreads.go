package workerrt

import "sync/atomic"

// running is the process-wide shutdown flag every worker's loop checks
// between block operations, the Go counterpart of the original's static
// run_threads integer cleared from a SIGINT/SIGTERM handler.
var running atomic.Bool

func init() {
	running.Store(true)
}

// Running reports whether workers should keep processing.
func Running() bool {
	return running.Load()
}

// Clear signals every worker to stop at its next opportunity.
func Clear() {
	running.Store(false)
}

// Set restores the running flag, used by tests that spin up more than one
// pipeline in the same process.
func Set() {
	running.Store(true)
}
