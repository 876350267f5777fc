// Package databuf implements the ring databuf: a System V shared-memory
// ring of fixed-size blocks, each guarded by its own semaphore holding a
// two-state FREE(0)/FILLED(1) flag. A worker downstream of another worker
// waits on a block's FILLED flag without consuming it (a "test without
// consume" read), processes the block, then waits for the block it wants
// to reuse to go FREE.
package databuf

import (
	"context"
	"syscall"
	"time"
	"unsafe"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
	"github.com/hashpipe/hashpipe-go/internal/ipckey"
	"github.com/hashpipe/hashpipe-go/internal/sysvipc"
)

const metaSize = 128

const (
	unixEAGAIN = syscall.EAGAIN
	unixEINTR  = syscall.EINTR
)

// ringMeta is the fixed-layout segment written at the very front of a
// ring's shared memory, used by a second creator or an attaching reader to
// verify the block geometry matches what it expects.
type ringMeta struct {
	HeaderSize uint64
	BlockSize  uint64
	NBlock     uint32
	_          uint32 // padding to keep the struct a stable size across platforms
}

// Ring is an attached handle to one ring databuf.
type Ring struct {
	instanceID int
	databufID  int
	shmid      int
	semid      int
	addr       uintptr
	region     []byte
	headerSize uintptr
	blockSize  uintptr
	nBlock     int
}

// Create creates (or attaches to and verifies, if one already exists) the
// ring databuf identified by (instanceID, databufID), with nBlock blocks
// of blockSize bytes, each holding a headerSize-byte header at the front.
func Create(instanceID, databufID int, headerSize, blockSize uintptr, nBlock int) (*Ring, error) {
	key, err := ipckey.DatabufKey(instanceID)
	if err != nil {
		return nil, hashpipe.WrapError("databuf", "Create", hashpipe.ErrKindParameter, err)
	}
	shmKey := key + int32(databufID) - 1
	total := metaSize + int(blockSize)*nBlock

	id, err := sysvipc.ShmGet(shmKey, total, sysvipc.IPCCreat|sysvipc.IPCExcl|0o666)
	verifySizing := false
	if err != nil {
		id, err = sysvipc.ShmGet(shmKey, 0, 0o666)
		if err != nil {
			return nil, hashpipe.WrapError("databuf", "Create", hashpipe.ErrKindFatalSystem, err)
		}
		verifySizing = true
	}

	addr, err := sysvipc.ShmAt(id)
	if err != nil {
		return nil, hashpipe.WrapError("databuf", "Create", hashpipe.ErrKindFatalSystem, err)
	}
	region := sysvipc.Bytes(addr, total)

	if verifySizing {
		meta := (*ringMeta)(unsafe.Pointer(&region[0]))
		if uintptr(meta.HeaderSize) != headerSize || uintptr(meta.BlockSize) != blockSize || int(meta.NBlock) != nBlock {
			sysvipc.ShmDt(addr)
			return nil, hashpipe.WrapError("databuf", "Create", hashpipe.ErrKindParameter, hashpipe.ErrSizeMismatch)
		}
	} else {
		sysvipc.ShmCtlLock(id) // best-effort; unprivileged processes may not be able to pin pages
		for i := range region {
			region[i] = 0
		}
		meta := (*ringMeta)(unsafe.Pointer(&region[0]))
		meta.HeaderSize = uint64(headerSize)
		meta.BlockSize = uint64(blockSize)
		meta.NBlock = uint32(nBlock)
	}

	semid, err := sysvipc.SemGet(shmKey, nBlock, sysvipc.IPCCreat|0o666)
	if err != nil {
		sysvipc.ShmDt(addr)
		return nil, hashpipe.WrapError("databuf", "Create", hashpipe.ErrKindFatalSystem, err)
	}
	if !verifySizing {
		if err := sysvipc.SemCtlSetAll(semid, make([]uint16, nBlock)); err != nil {
			sysvipc.ShmDt(addr)
			return nil, hashpipe.WrapError("databuf", "Create", hashpipe.ErrKindFatalSystem, err)
		}
	}

	return &Ring{
		instanceID: instanceID,
		databufID:  databufID,
		shmid:      id,
		semid:      semid,
		addr:       addr,
		region:     region,
		headerSize: headerSize,
		blockSize:  blockSize,
		nBlock:     nBlock,
	}, nil
}

// Attach attaches to an existing ring databuf without creating one,
// reading the block geometry from the ring's own metadata.
func Attach(instanceID, databufID int) (*Ring, error) {
	key, err := ipckey.DatabufKey(instanceID)
	if err != nil {
		return nil, hashpipe.WrapError("databuf", "Attach", hashpipe.ErrKindParameter, err)
	}
	shmKey := key + int32(databufID) - 1

	id, err := sysvipc.ShmGet(shmKey, 0, 0o666)
	if err != nil {
		return nil, hashpipe.WrapError("databuf", "Attach", hashpipe.ErrKindParameter, hashpipe.ErrNotFound)
	}
	addr, err := sysvipc.ShmAt(id)
	if err != nil {
		return nil, hashpipe.WrapError("databuf", "Attach", hashpipe.ErrKindFatalSystem, err)
	}
	metaRegion := sysvipc.Bytes(addr, metaSize)
	meta := (*ringMeta)(unsafe.Pointer(&metaRegion[0]))
	headerSize := uintptr(meta.HeaderSize)
	blockSize := uintptr(meta.BlockSize)
	nBlock := int(meta.NBlock)
	total := metaSize + int(blockSize)*nBlock

	semid, err := sysvipc.SemGet(shmKey, nBlock, 0o666)
	if err != nil {
		sysvipc.ShmDt(addr)
		return nil, hashpipe.WrapError("databuf", "Attach", hashpipe.ErrKindFatalSystem, err)
	}

	return &Ring{
		instanceID: instanceID,
		databufID:  databufID,
		shmid:      id,
		semid:      semid,
		addr:       addr,
		region:     sysvipc.Bytes(addr, total),
		headerSize: headerSize,
		blockSize:  blockSize,
		nBlock:     nBlock,
	}, nil
}

// Detach unmaps this process's view of the ring.
func (r *Ring) Detach() error {
	if r.addr == 0 {
		return nil
	}
	if err := sysvipc.ShmDt(r.addr); err != nil {
		return hashpipe.WrapError("databuf", "Detach", hashpipe.ErrKindFatalSystem, err)
	}
	r.addr = 0
	r.region = nil
	return nil
}

// Destroy detaches this handle, then marks the underlying shared memory
// segment and semaphore set for removal (IPC_RMID), the ring-databuf
// counterpart of hashpipe_clean_shmem's cleanup path. Other processes
// still attached keep working until they detach; no new attach can
// succeed afterward.
func (r *Ring) Destroy() error {
	if err := r.Detach(); err != nil {
		return err
	}
	if err := sysvipc.SemCtlRmid(r.semid); err != nil {
		return hashpipe.WrapError("databuf", "Destroy", hashpipe.ErrKindFatalSystem, err)
	}
	if err := sysvipc.ShmCtlRmid(r.shmid); err != nil {
		return hashpipe.WrapError("databuf", "Destroy", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

// Clear sets every block's semaphore back to FREE.
func (r *Ring) Clear() error {
	if err := sysvipc.SemCtlSetAll(r.semid, make([]uint16, r.nBlock)); err != nil {
		return hashpipe.WrapError("databuf", "Clear", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

func (r *Ring) NBlock() int            { return r.nBlock }
func (r *Ring) HeaderSize() uintptr    { return r.headerSize }
func (r *Ring) BlockSize() uintptr     { return r.blockSize }

func (r *Ring) blockOffset(block int) int {
	return metaSize + block*int(r.blockSize)
}

// HeaderBytes returns the per-block header region for block.
func (r *Ring) HeaderBytes(block int) []byte {
	off := r.blockOffset(block)
	return r.region[off : off+int(r.headerSize)]
}

// PayloadBytes returns the per-block payload region (everything after the
// header) for block.
func (r *Ring) PayloadBytes(block int) []byte {
	off := r.blockOffset(block)
	return r.region[off+int(r.headerSize) : off+int(r.blockSize)]
}

// BlockStatus returns a block's raw semaphore value: 0 (free) or 1
// (filled).
func (r *Ring) BlockStatus(block int) (int, error) {
	v, err := sysvipc.SemCtlGetVal(r.semid, block)
	if err != nil {
		return 0, hashpipe.WrapError("databuf", "BlockStatus", hashpipe.ErrKindFatalSystem, err)
	}
	return v, nil
}

// TotalStatus returns the number of currently-filled blocks.
func (r *Ring) TotalStatus() (int, error) {
	vals, err := sysvipc.SemCtlGetAll(r.semid, r.nBlock)
	if err != nil {
		return 0, hashpipe.WrapError("databuf", "TotalStatus", hashpipe.ErrKindFatalSystem, err)
	}
	total := 0
	for _, v := range vals {
		if v != 0 {
			total++
		}
	}
	return total, nil
}

// TotalMask returns a bitmask of filled blocks, one bit per block, capped
// at the first 64 blocks.
func (r *Ring) TotalMask() (uint64, error) {
	vals, err := sysvipc.SemCtlGetAll(r.semid, r.nBlock)
	if err != nil {
		return 0, hashpipe.WrapError("databuf", "TotalMask", hashpipe.ErrKindFatalSystem, err)
	}
	var mask uint64
	for i, v := range vals {
		if i >= 64 {
			break
		}
		if v != 0 {
			mask |= 1 << uint(i)
		}
	}
	return mask, nil
}

// SetFree unconditionally marks block as FREE.
func (r *Ring) SetFree(block int) error {
	if err := sysvipc.SemCtlSetVal(r.semid, block, 0); err != nil {
		return hashpipe.WrapError("databuf", "SetFree", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

// SetFilled unconditionally marks block as FILLED.
func (r *Ring) SetFilled(block int) error {
	if err := sysvipc.SemCtlSetVal(r.semid, block, 1); err != nil {
		return hashpipe.WrapError("databuf", "SetFilled", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

// WaitFree blocks (bounded by constants.WaitTimeout) until block's
// semaphore reaches 0. A single attempt is made: it returns WaitTimedOut
// when the timeout expires, and WaitInterrupted if ctx is already done or
// the wait is interrupted; callers loop on WaitTimedOut themselves.
func (r *Ring) WaitFree(ctx context.Context, block int) (hashpipe.WaitOutcome, error) {
	ops := []sysvipc.Sembuf{{SemNum: uint16(block), SemOp: 0, SemFlg: 0}}
	return r.timedLoop(ctx, ops)
}

// WaitFilled blocks until block's semaphore is non-zero, without
// consuming the flag: a decrement followed by an immediate re-increment,
// performed as a single atomic semtimedop.
func (r *Ring) WaitFilled(ctx context.Context, block int) (hashpipe.WaitOutcome, error) {
	ops := []sysvipc.Sembuf{
		{SemNum: uint16(block), SemOp: -1, SemFlg: 0},
		{SemNum: uint16(block), SemOp: 1, SemFlg: 0},
	}
	return r.timedLoop(ctx, ops)
}

func (r *Ring) timedLoop(ctx context.Context, ops []sysvipc.Sembuf) (hashpipe.WaitOutcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return hashpipe.WaitInterrupted, nil
		}
		err := sysvipc.SemTimedOp(r.semid, ops, constants.WaitTimeout)
		if err == nil {
			return hashpipe.WaitOK, nil
		}
		switch err {
		case unixEAGAIN:
			return hashpipe.WaitTimedOut, nil
		case unixEINTR:
			return hashpipe.WaitInterrupted, nil
		default:
			return hashpipe.WaitOK, hashpipe.WrapError("databuf", "wait", hashpipe.ErrKindFatalSystem, err)
		}
	}
}

// BusywaitFree polls block's FREE state with IPC_NOWAIT, retrying on
// EAGAIN until it succeeds or ctx is done.
func (r *Ring) BusywaitFree(ctx context.Context, block int) (hashpipe.WaitOutcome, error) {
	ops := []sysvipc.Sembuf{{SemNum: uint16(block), SemOp: 0, SemFlg: int16(sysvipc.IPCNoWait)}}
	return r.busyLoop(ctx, ops)
}

// BusywaitFilled polls block's FILLED flag (test-without-consume) with
// IPC_NOWAIT, retrying on EAGAIN until it succeeds or ctx is done.
func (r *Ring) BusywaitFilled(ctx context.Context, block int) (hashpipe.WaitOutcome, error) {
	ops := []sysvipc.Sembuf{
		{SemNum: uint16(block), SemOp: -1, SemFlg: int16(sysvipc.IPCNoWait)},
		{SemNum: uint16(block), SemOp: 1, SemFlg: int16(sysvipc.IPCNoWait)},
	}
	return r.busyLoop(ctx, ops)
}

func (r *Ring) busyLoop(ctx context.Context, ops []sysvipc.Sembuf) (hashpipe.WaitOutcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return hashpipe.WaitInterrupted, nil
		}
		err := sysvipc.SemOp(r.semid, ops)
		if err == nil {
			return hashpipe.WaitOK, nil
		}
		if err == unixEAGAIN {
			time.Sleep(time.Millisecond)
			continue
		}
		if err == unixEINTR {
			return hashpipe.WaitInterrupted, nil
		}
		return hashpipe.WaitOK, hashpipe.WrapError("databuf", "busywait", hashpipe.ErrKindFatalSystem, err)
	}
}
