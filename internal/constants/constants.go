// Package constants holds sizing and timing defaults shared across the
// pipeline substrate: status buffer layout, ring wait timeouts, and the
// supervisor's process-wide limits.
package constants

import "time"

// Status buffer layout. HASHPIPE_STATUS_TOTAL_SIZE / HASHPIPE_STATUS_RECORD_SIZE.
const (
	// StatusTotalSize is the fixed size of the status buffer payload region,
	// 2880*64 = 184320 bytes, room for 2304 FITS-card-sized records of 80
	// bytes each.
	StatusTotalSize = 2880 * 64

	// StatusRecordSize is the width of one FITS-style keyword=value record.
	StatusRecordSize = 80
)

// Pipeline-wide limits.
const (
	// MaxThreads bounds the number of worker descriptors a single process
	// can register and the number of workers a single pipeline can spawn.
	MaxThreads = 1024

	// MaxFlows bounds the number of simultaneous hardware/software flow
	// rules the IBV capture engine will track.
	MaxFlows = 16

	// ChunkAlignment is the byte alignment every IBV receive chunk is
	// rounded up to when building a ring's chunk table.
	ChunkAlignment = 64
)

// Ring databuf wait semantics.
const (
	// WaitTimeout bounds a single semtimedop call inside WaitFree/WaitFilled.
	// Kept at 250ms to match the portability knob the ring databuf was
	// ported from; callers loop on timeout rather than blocking longer.
	WaitTimeout = 250 * time.Millisecond

	// ShutdownJoinTimeout bounds how long the supervisor waits for a single
	// worker's Finished flag after the running flag is cleared
	// (workerrt.Clear).
	ShutdownJoinTimeout = 5 * time.Second

	// WorkerSpawnDelay is the pause the supervisor inserts between spawning
	// consecutive workers in reverse pipeline order, giving each worker's
	// init-time ring/status attach a chance to complete before its upstream
	// neighbor starts producing.
	WorkerSpawnDelay = 3 * time.Second
)

// Default CPU/device parameters new pipelines are built with absent
// explicit CLI overrides.
const (
	// DefaultInstanceID is used when -I/--instance is not given.
	DefaultInstanceID = 0

	// DefaultBlockSize is a representative ring block payload size (8 MiB),
	// large enough to hold one packet-capture "dump" of chunked slots.
	DefaultBlockSize = 8 << 20

	// DefaultNBlock is a representative ring depth.
	DefaultNBlock = 8
)
