package supervisor

import (
	"golang.org/x/sys/unix"

	"github.com/hashpipe/hashpipe-go/internal/logging"
)

// RaiseMemlock raises RLIMIT_MEMLOCK to its hard maximum, the Go
// counterpart of the original's startup-time mlockall preparation: ring
// creation pins pages with shmctl(SHM_LOCK), which needs a locked-memory
// budget larger than the default. Failure is logged and non-fatal, since
// an unprivileged process commonly can't raise its own hard limit.
func RaiseMemlock(logger *logging.Logger) {
	if logger == nil {
		logger = logging.Default()
	}
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlim); err != nil {
		logger.Warn("getrlimit RLIMIT_MEMLOCK failed", "error", err)
		return
	}
	if rlim.Cur >= rlim.Max {
		return
	}
	rlim.Cur = rlim.Max
	if err := unix.Setrlimit(unix.RLIMIT_MEMLOCK, &rlim); err != nil {
		logger.Warn("setrlimit RLIMIT_MEMLOCK failed, ring pages may not be pinned", "error", err)
	}
}
