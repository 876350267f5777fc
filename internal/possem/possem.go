//go:build linux && cgo

// Package possem wraps the POSIX named semaphore calls (sem_open, sem_wait,
// sem_trywait, sem_post, sem_close, sem_unlink) the status buffer's lock
// needs and that neither the standard library nor golang.org/x/sys/unix
// expose. The surface is deliberately tiny: a few lines of cgo beside an
// otherwise pure-Go tree.
package possem

/*
#include <fcntl.h>
#include <semaphore.h>
#include <errno.h>
#include <stdlib.h>

static sem_t *possem_open(const char *name, int oflag, unsigned int mode, unsigned int value, int *err) {
	sem_t *s = sem_open(name, oflag, (mode_t)mode, (unsigned int)value);
	if (s == SEM_FAILED) {
		*err = errno;
		return NULL;
	}
	*err = 0;
	return s;
}

static int possem_wait(sem_t *s) {
	while (sem_wait(s) != 0) {
		if (errno == EINTR) {
			continue;
		}
		return errno;
	}
	return 0;
}

static int possem_trywait(sem_t *s) {
	if (sem_trywait(s) != 0) {
		return errno;
	}
	return 0;
}

static int possem_post(sem_t *s) {
	if (sem_post(s) != 0) {
		return errno;
	}
	return 0;
}

static int possem_close(sem_t *s) {
	if (sem_close(s) != 0) {
		return errno;
	}
	return 0;
}

static int possem_unlink(const char *name) {
	if (sem_unlink(name) != 0) {
		return errno;
	}
	return 0;
}
*/
import "C"

import (
	"fmt"
	"syscall"
	"unsafe"
)

// Sem is a handle to a named POSIX semaphore.
type Sem struct {
	ptr unsafe.Pointer
}

// ErrTryAgain is returned by TryWait when the semaphore is currently 0.
var ErrTryAgain = syscall.EAGAIN

// Open opens (creating if absent) the named semaphore, matching the status
// buffer attach path's sem_open(name, O_CREAT, 0666, 1) call.
func Open(name string, initialValue uint) (*Sem, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var cerr C.int
	s := C.possem_open(cname, C.O_CREAT, 0666, C.uint(initialValue), &cerr)
	if s == nil {
		return nil, fmt.Errorf("possem: sem_open %q: %w", name, syscall.Errno(cerr))
	}
	return &Sem{ptr: unsafe.Pointer(s)}, nil
}

func (s *Sem) sem() *C.sem_t {
	return (*C.sem_t)(s.ptr)
}

// Wait blocks until the semaphore can be decremented.
func (s *Sem) Wait() error {
	if errno := C.possem_wait(s.sem()); errno != 0 {
		return syscall.Errno(errno)
	}
	return nil
}

// TryWait attempts to decrement the semaphore without blocking, returning
// ErrTryAgain if it is currently 0.
func (s *Sem) TryWait() error {
	if errno := C.possem_trywait(s.sem()); errno != 0 {
		return syscall.Errno(errno)
	}
	return nil
}

// Post increments the semaphore.
func (s *Sem) Post() error {
	if errno := C.possem_post(s.sem()); errno != 0 {
		return syscall.Errno(errno)
	}
	return nil
}

// Close releases this process's handle to the semaphore without removing
// it from the system.
func (s *Sem) Close() error {
	if errno := C.possem_close(s.sem()); errno != 0 {
		return syscall.Errno(errno)
	}
	return nil
}

// Unlink removes the named semaphore from the system once every process
// has closed its handle.
func Unlink(name string) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	if errno := C.possem_unlink(cname); errno != 0 {
		return syscall.Errno(errno)
	}
	return nil
}
