// Package sysvipc wraps the System V shared-memory and semaphore syscalls
// the status buffer and ring databuf are built on. golang.org/x/sys/unix
// does not expose semget/semop/semctl, so this package invokes them
// directly via syscall.Syscall on linux, the same raw-syscall technique
// the queue runner uses for its anonymous mmap regions; sysvipc_stub.go
// provides a same-shaped, always-erroring build for non-Linux targets.
package sysvipc

// Sembuf mirrors the kernel's struct sembuf, one operation in a semop/
// semtimedop call.
type Sembuf struct {
	SemNum uint16
	SemOp  int16
	SemFlg int16
}

// IPC object creation/access flags, matching <sys/ipc.h>.
const (
	IPCCreat  = 0o1000
	IPCExcl   = 0o2000
	IPCNoWait = 0o4000
)

// semctl commands, matching <sys/sem.h>.
const (
	SetVal  = 16
	GetVal  = 12
	SetAll  = 17
	GetAll  = 13
	IPCRmid = 0
)

// shmctl commands, matching <sys/shm.h>.
const (
	ShmLock   = 11
	ShmUnlock = 12
)
