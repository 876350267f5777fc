// Package ibv implements the RDMA-verbs-style packet-capture engine's
// contract: chunk-table computation, flow-rule lifecycle, multicast
// subscription, and the receive run loop, behind a Provider seam so the
// engine is fully exercisable without real RDMA hardware.
package ibv

// OpenParams configures a Provider's one-time setup.
type OpenParams struct {
	Interface  string
	InstanceID int
	ChunkTable []ChunkSpec
	SlotSize   int
	NumSlots   int
}

// RecvWR is a posted receive work request: a slot in the ring a completion
// will be written into.
type RecvWR struct {
	ID     uint64
	Block  int
	Slot   int
	Offset int
	Length int
}

// Completion is a single delivered packet, decoded down to the fields the
// run loop and flow filters need.
type Completion struct {
	WRID    uint64
	Success bool
	Length  int
	SrcMAC  []byte
	DstMAC  []byte
	SrcIP   []byte
	DstIP   []byte
	SrcPort uint16
	DstPort uint16
	Payload []byte
}

// Provider is the hardware (or hardware-like) backend the capture engine
// drives. A real libibverbs binding would implement this behind a
// "//go:build ibverbs" file; loopbackProvider is the default, always-built
// implementation used for both production (loopback test pipelines) and
// tests.
type Provider interface {
	Open(params OpenParams) error
	PostRecv(wrs []RecvWR) error
	PollCompletions(timeoutMs int) ([]Completion, error)
	CreateFlow(idx int, spec FlowSpec) error
	DestroyFlow(idx int) error
	Close() error
}
