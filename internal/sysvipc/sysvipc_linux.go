//go:build linux

package sysvipc

import (
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ShmGet wraps shmget(2).
func ShmGet(key int32, size int, flags int) (int, error) {
	r, _, errno := syscall.Syscall(unix.SYS_SHMGET, uintptr(key), uintptr(size), uintptr(flags))
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}

// ShmAt wraps shmat(2), returning the mapped address.
func ShmAt(id int) (uintptr, error) {
	r, _, errno := syscall.Syscall(unix.SYS_SHMAT, uintptr(id), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

// ShmDt wraps shmdt(2).
func ShmDt(addr uintptr) error {
	_, _, errno := syscall.Syscall(unix.SYS_SHMDT, addr, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// ShmCtlLock wraps shmctl(id, SHM_LOCK, NULL), pinning the segment against
// swap. Best-effort: callers should log, not fail, on error since this
// requires CAP_IPC_LOCK on most systems.
func ShmCtlLock(id int) error {
	_, _, errno := syscall.Syscall(unix.SYS_SHMCTL, uintptr(id), uintptr(ShmLock), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// ShmCtlRmid wraps shmctl(id, IPC_RMID, NULL), marking the segment for
// destruction once the last process detaches.
func ShmCtlRmid(id int) error {
	_, _, errno := syscall.Syscall(unix.SYS_SHMCTL, uintptr(id), uintptr(IPCRmid), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Bytes returns a []byte view over size bytes starting at addr, as
// returned by ShmAt. The slice is only valid until ShmDt(addr) is called.
func Bytes(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

// SemGet wraps semget(2).
func SemGet(key int32, nsems int, flags int) (int, error) {
	r, _, errno := syscall.Syscall(unix.SYS_SEMGET, uintptr(key), uintptr(nsems), uintptr(flags))
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}

// SemCtlSetAll sets every semaphore's value in one call via SETALL.
func SemCtlSetAll(id int, values []uint16) error {
	_, _, errno := syscall.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, uintptr(SetAll), uintptr(unsafe.Pointer(&values[0])), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// SemCtlGetAll reads every semaphore's value in one call via GETALL.
func SemCtlGetAll(id int, n int) ([]uint16, error) {
	values := make([]uint16, n)
	_, _, errno := syscall.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, uintptr(GetAll), uintptr(unsafe.Pointer(&values[0])), 0, 0)
	if errno != 0 {
		return nil, errno
	}
	return values, nil
}

// SemCtlSetVal sets one semaphore's value via SETVAL.
func SemCtlSetVal(id int, semnum int, val int) error {
	_, _, errno := syscall.Syscall6(unix.SYS_SEMCTL, uintptr(id), uintptr(semnum), uintptr(SetVal), uintptr(val), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// SemCtlGetVal reads one semaphore's value via GETVAL.
func SemCtlGetVal(id int, semnum int) (int, error) {
	r, _, errno := syscall.Syscall6(unix.SYS_SEMCTL, uintptr(id), uintptr(semnum), uintptr(GetVal), 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}

// SemCtlRmid removes a semaphore set.
func SemCtlRmid(id int) error {
	_, _, errno := syscall.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, uintptr(IPCRmid), 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// SemOp wraps semop(2), the blocking/IPC_NOWAIT form with no timeout.
func SemOp(id int, ops []Sembuf) error {
	_, _, errno := syscall.Syscall(unix.SYS_SEMOP, uintptr(id), uintptr(unsafe.Pointer(&ops[0])), uintptr(len(ops)))
	if errno != 0 {
		return errno
	}
	return nil
}

// SemTimedOp wraps semtimedop(2).
func SemTimedOp(id int, ops []Sembuf, timeout time.Duration) error {
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	_, _, errno := syscall.Syscall6(unix.SYS_SEMTIMEDOP, uintptr(id), uintptr(unsafe.Pointer(&ops[0])), uintptr(len(ops)), uintptr(unsafe.Pointer(&ts)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
