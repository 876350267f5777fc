package hashpipe

import "github.com/hashpipe/hashpipe-go/internal/constants"

// Re-exported tunables, so callers building pipelines don't need to import
// internal/constants directly.
const (
	StatusTotalSize       = constants.StatusTotalSize
	StatusRecordSize      = constants.StatusRecordSize
	MaxThreads            = constants.MaxThreads
	MaxFlows              = constants.MaxFlows
	ChunkAlignment        = constants.ChunkAlignment
	WaitTimeout           = constants.WaitTimeout
	ShutdownJoinTimeout   = constants.ShutdownJoinTimeout
	WorkerSpawnDelay      = constants.WorkerSpawnDelay
	DefaultInstanceID     = constants.DefaultInstanceID
	DefaultBlockSize      = constants.DefaultBlockSize
	DefaultNBlock         = constants.DefaultNBlock
)
