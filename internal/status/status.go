// Package status implements the status buffer: a fixed-size FITS-keyword
// record store in shared memory, guarded by a named POSIX semaphore, that
// every worker in a pipeline instance can attach to and read/write
// key=value pairs from.
package status

import (
	"os"
	"strings"
	"time"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
	"github.com/hashpipe/hashpipe-go/internal/fitsrecord"
	"github.com/hashpipe/hashpipe-go/internal/ipckey"
	"github.com/hashpipe/hashpipe-go/internal/logging"
	"github.com/hashpipe/hashpipe-go/internal/possem"
	"github.com/hashpipe/hashpipe-go/internal/sysvipc"
)

const envSemName = "HASHPIPE_STATUS_SEMNAME"

// Buffer is an attached handle to one instance's status buffer.
type Buffer struct {
	instanceID int
	shmid      int
	addr       uintptr
	buf        []byte
	sem        *possem.Sem
	semName    string
	logger     *logging.Logger
}

// SemaphoreName computes the named semaphore a status buffer for
// instanceID uses, honoring HASHPIPE_STATUS_SEMNAME wholesale and
// otherwise deriving a name from the resolved keyfile path, sanitized the
// way the C original does (interior '/' become '_').
func SemaphoreName(instanceID int) string {
	if v := os.Getenv(envSemName); v != "" {
		return v
	}
	path := keyfilePath()
	sanitized := sanitizePath(path)
	return sanitized + "_hashpipe_status_" + itoa(instanceID&0x3f)
}

func keyfilePath() string {
	if v := os.Getenv("HASHPIPE_KEYFILE"); v != "" {
		return v
	}
	if v := os.Getenv("HOME"); v != "" {
		return v
	}
	return "/tmp"
}

func sanitizePath(p string) string {
	if p == "" {
		return "_"
	}
	lead := ""
	if p[0] == '/' {
		lead = "/"
		p = p[1:]
	}
	return lead + strings.ReplaceAll(p, "/", "_")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		return "-" + string(b)
	}
	return string(b)
}

// Exists reports whether a status buffer already exists for instanceID,
// without creating one.
func Exists(instanceID int) (bool, error) {
	key, err := ipckey.StatusKey(instanceID)
	if err != nil {
		return false, err
	}
	id, err := sysvipc.ShmGet(key, 0, 0)
	if err != nil {
		return false, nil
	}
	return id >= 0, nil
}

// Attach attaches to (creating if absent) the status buffer for
// instanceID. First attach zero-initializes the buffer and writes an
// INSTANCE record; subsequent attaches verify (and, on mismatch, warn and
// overwrite) the stored INSTANCE value, matching hashpipe_status_chkinit.
func Attach(instanceID int, logger *logging.Logger) (*Buffer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	key, err := ipckey.StatusKey(instanceID)
	if err != nil {
		return nil, hashpipe.WrapError("status", "Attach", hashpipe.ErrKindParameter, err)
	}

	id, err := sysvipc.ShmGet(key, constants.StatusTotalSize, sysvipc.IPCCreat|0o666)
	if err != nil {
		return nil, hashpipe.WrapError("status", "Attach", hashpipe.ErrKindFatalSystem, err)
	}

	addr, err := sysvipc.ShmAt(id)
	if err != nil {
		return nil, hashpipe.WrapError("status", "Attach", hashpipe.ErrKindFatalSystem, err)
	}

	semName := SemaphoreName(instanceID)
	sem, err := possem.Open(semName, 1)
	if err != nil {
		sysvipc.ShmDt(addr)
		return nil, hashpipe.WrapError("status", "Attach", hashpipe.ErrKindFatalSystem, err)
	}

	b := &Buffer{
		instanceID: instanceID,
		shmid:      id,
		addr:       addr,
		buf:        sysvipc.Bytes(addr, constants.StatusTotalSize),
		sem:        sem,
		semName:    semName,
		logger:     logger,
	}

	if err := b.chkinit(); err != nil {
		b.Detach()
		return nil, err
	}

	return b, nil
}

// chkinit implements hashpipe_status_chkinit: find the END record; if
// missing, zero the buffer and write a fresh INSTANCE record; otherwise
// validate (and correct, with a warning) any existing INSTANCE record.
func (b *Buffer) chkinit() error {
	if err := b.Lock(); err != nil {
		return err
	}
	defer b.Unlock()

	if fitsrecord.FindEnd(b.buf) < 0 {
		fitsrecord.Init(b.buf)
		if err := fitsrecord.PutInt(b.buf, "INSTANCE", int64(b.instanceID)); err != nil {
			return hashpipe.WrapError("status", "chkinit", hashpipe.ErrKindFatalSystem, err)
		}
		return nil
	}

	existing, ok, err := fitsrecord.GetInt(b.buf, "INSTANCE")
	if err != nil {
		return hashpipe.WrapError("status", "chkinit", hashpipe.ErrKindProtocol, err)
	}
	if !ok {
		return fitsrecord.PutInt(b.buf, "INSTANCE", int64(b.instanceID))
	}
	if existing != int64(b.instanceID) {
		b.logger.Warn("status buffer INSTANCE mismatch, overwriting", "existing", existing, "instance", b.instanceID)
		return fitsrecord.PutInt(b.buf, "INSTANCE", int64(b.instanceID))
	}
	return nil
}

// Detach releases this process's mapping of the status buffer. It does not
// destroy the underlying shared memory segment or semaphore.
func (b *Buffer) Detach() error {
	if b.sem != nil {
		b.sem.Close()
	}
	if b.addr != 0 {
		if err := sysvipc.ShmDt(b.addr); err != nil {
			return hashpipe.WrapError("status", "Detach", hashpipe.ErrKindFatalSystem, err)
		}
		b.addr = 0
		b.buf = nil
	}
	return nil
}

// Destroy detaches this handle, then marks the underlying shared memory
// segment for removal (IPC_RMID) and unlinks the named semaphore, the
// "delete" mode of hashpipe_clean_shmem as opposed to its default "clear"
// mode (Clear).
func (b *Buffer) Destroy() error {
	semName := b.semName
	shmid := b.shmid
	if err := b.Detach(); err != nil {
		return err
	}
	if err := sysvipc.ShmCtlRmid(shmid); err != nil {
		return hashpipe.WrapError("status", "Destroy", hashpipe.ErrKindFatalSystem, err)
	}
	if err := possem.Unlink(semName); err != nil {
		return hashpipe.WrapError("status", "Destroy", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

// Lock blocks until the status buffer's lock is acquired.
func (b *Buffer) Lock() error {
	if err := b.sem.Wait(); err != nil {
		return hashpipe.WrapError("status", "Lock", hashpipe.ErrKindUnknown, err)
	}
	return nil
}

// TryLockSpin loops on a non-blocking acquisition attempt until it
// succeeds, sleeping pollInterval between attempts.
func (b *Buffer) TryLockSpin(pollInterval time.Duration) error {
	for {
		err := b.sem.TryWait()
		if err == nil {
			return nil
		}
		if err != possem.ErrTryAgain {
			return hashpipe.WrapError("status", "TryLockSpin", hashpipe.ErrKindUnknown, err)
		}
		time.Sleep(pollInterval)
	}
}

// Unlock releases the status buffer's lock.
func (b *Buffer) Unlock() error {
	if err := b.sem.Post(); err != nil {
		return hashpipe.WrapError("status", "Unlock", hashpipe.ErrKindUnknown, err)
	}
	return nil
}

// Clear resets the buffer to an INSTANCE record followed by the END
// record, matching hashpipe_status_clear. Callers must not hold the lock
// when calling Clear.
func (b *Buffer) Clear() error {
	if err := b.Lock(); err != nil {
		return err
	}
	defer b.Unlock()
	fitsrecord.Init(b.buf)
	return fitsrecord.PutInt(b.buf, "INSTANCE", int64(b.instanceID))
}

// Get reads key's value without locking; callers sequencing multiple reads
// against concurrent writers should wrap calls in Lock/Unlock themselves.
func (b *Buffer) Get(key string) (string, bool) {
	return fitsrecord.Get(b.buf, key)
}

// GetInt reads key's value as an integer, unlocked.
func (b *Buffer) GetInt(key string) (int64, bool, error) {
	return fitsrecord.GetInt(b.buf, key)
}

// Put writes key=value under the buffer's lock, matching the CLI's -o
// option handling (lock, hputs, unlock).
func (b *Buffer) Put(key, value string) error {
	if err := b.Lock(); err != nil {
		return err
	}
	defer b.Unlock()
	if err := fitsrecord.Put(b.buf, key, value); err != nil {
		return hashpipe.WrapError("status", "Put", hashpipe.ErrKindProtocol, err)
	}
	return nil
}

// PutInt writes an integer-valued key under the buffer's lock.
func (b *Buffer) PutInt(key string, value int64) error {
	if err := b.Lock(); err != nil {
		return err
	}
	defer b.Unlock()
	if err := fitsrecord.PutInt(b.buf, key, value); err != nil {
		return hashpipe.WrapError("status", "PutInt", hashpipe.ErrKindProtocol, err)
	}
	return nil
}

// Keys lists every keyword currently present.
func (b *Buffer) Keys() []string {
	return fitsrecord.Keys(b.buf)
}

// InstanceID returns the instance this buffer was attached for.
func (b *Buffer) InstanceID() int {
	return b.instanceID
}
