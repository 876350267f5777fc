package ibv

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
	"github.com/hashpipe/hashpipe-go/internal/databuf"
	"github.com/hashpipe/hashpipe-go/internal/logging"
	"github.com/hashpipe/hashpipe-go/internal/status"
	"github.com/hashpipe/hashpipe-go/internal/workerrt"
)

// sniffFlowIndex is the flow-table slot the engine uses for the IBVSNIFF
// catch-all flow: the last slot of the table. CreateFlow does not stop
// other callers from using this index.
const sniffFlowIndex = constants.MaxFlows - 1

const counterRefreshInterval = 200 * time.Millisecond
const pollBudgetMillis = 50

// Engine drives one ring's receive path: chunk-table setup, flow
// lifecycle, and the poll/recycle run loop.
type Engine struct {
	provider   Provider
	ring       *databuf.Ring
	statusBuf  *status.Buffer
	logger     *logging.Logger
	observer   hashpipe.Observer
	instanceID int

	chunkTable []ChunkSpec
	slotSize   int
	slotsPer   int

	cur      int
	nextSlot int
	postedAt map[int]time.Time

	mcast    map[int]*net.UDPConn
	sniffing bool

	rx uint64
}

// NewEngine builds a capture engine bound to ring's receive path and
// statusBuf's IBVPKTSZ/IBVBUFST/IBVGBPS/IBVPPS/IBVSNIFF keys.
func NewEngine(provider Provider, ring *databuf.Ring, statusBuf *status.Buffer, instanceID int, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		provider:   provider,
		ring:       ring,
		statusBuf:  statusBuf,
		logger:     logger,
		observer:   hashpipe.NoOpObserver{},
		instanceID: instanceID,
		mcast:      map[int]*net.UDPConn{},
		postedAt:   map[int]time.Time{},
	}
}

// SetObserver installs o as the engine's metrics collector, replacing the
// default no-op observer. Must be called before Run.
func (e *Engine) SetObserver(o hashpipe.Observer) {
	e.observer = o
}

// Open reads IBVPKTSZ from the status buffer, builds and publishes the
// chunk table, opens the provider, and posts the initial two blocks' worth
// of receive work requests.
func (e *Engine) Open(ifname string) error {
	pktsz, ok := e.statusBuf.Get("IBVPKTSZ")
	if !ok || pktsz == "" {
		return hashpipe.NewError("ibv", "Open", hashpipe.ErrKindParameter, "IBVPKTSZ not set in status buffer")
	}
	specs, err := ParseChunkSizes(pktsz)
	if err != nil {
		return err
	}
	e.chunkTable = specs
	e.slotSize = SlotSize(specs)

	payload := int(e.ring.BlockSize() - e.ring.HeaderSize())
	if e.slotSize <= 0 || payload < e.slotSize {
		return hashpipe.NewError("ibv", "Open", hashpipe.ErrKindParameter, "block too small for configured chunk table")
	}
	e.slotsPer = payload / e.slotSize

	e.publishChunkTable()

	if err := e.provider.Open(OpenParams{
		Interface:  ifname,
		InstanceID: e.instanceID,
		ChunkTable: specs,
		SlotSize:   e.slotSize,
		NumSlots:   e.slotsPer,
	}); err != nil {
		return hashpipe.WrapError("ibv", "Open", hashpipe.ErrKindFatalSystem, err)
	}

	if err := e.postBlock(0); err != nil {
		return err
	}
	if e.ring.NBlock() > 1 {
		if err := e.postBlock(1); err != nil {
			return err
		}
	}
	return nil
}

// publishChunkTable writes the chunk count plus each (size, offset) pair
// as little-endian uint32s at the front of every block's header, so a
// downstream worker attaching later can recover the same layout.
func (e *Engine) publishChunkTable() {
	for b := 0; b < e.ring.NBlock(); b++ {
		hdr := e.ring.HeaderBytes(b)
		if len(hdr) < 4 {
			continue
		}
		binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(e.chunkTable)))
		off := 4
		for _, c := range e.chunkTable {
			if off+8 > len(hdr) {
				break
			}
			binary.LittleEndian.PutUint32(hdr[off:off+4], uint32(c.Size))
			binary.LittleEndian.PutUint32(hdr[off+4:off+8], uint32(c.Offset))
			off += 8
		}
	}
}

func (e *Engine) postBlock(block int) error {
	e.postedAt[block] = time.Now()
	wrs := make([]RecvWR, e.slotsPer)
	for s := 0; s < e.slotsPer; s++ {
		wrs[s] = RecvWR{
			ID:     wrID(block, s),
			Block:  block,
			Slot:   s,
			Offset: s * e.slotSize,
			Length: e.slotSize,
		}
	}
	if err := e.provider.PostRecv(wrs); err != nil {
		return hashpipe.WrapError("ibv", "postBlock", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

func wrID(block, slot int) uint64 {
	return uint64(block)<<32 | uint64(uint32(slot))
}

func unwrID(id uint64) (block, slot int) {
	return int(id >> 32), int(uint32(id))
}

// CreateFlow installs a flow rule at idx, destroying any prior rule there
// first and, if DstIP names an IPv4 multicast group, opening a UDP socket
// for this flow that joins that group. An all-zero spec deletes the rule.
func (e *Engine) CreateFlow(idx int, spec FlowSpec) error {
	if err := e.DestroyFlow(idx); err != nil {
		return err
	}
	if spec.IsZero() {
		return nil
	}
	if spec.IsMulticast() {
		e.joinMulticast(idx, spec.DstIP, spec.DstPort)
	}
	if err := e.provider.CreateFlow(idx, spec); err != nil {
		return hashpipe.WrapError("ibv", "CreateFlow", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

// DestroyFlow removes any rule at idx and drops multicast membership if
// one was held for it.
func (e *Engine) DestroyFlow(idx int) error {
	if conn, ok := e.mcast[idx]; ok {
		conn.Close()
		delete(e.mcast, idx)
	}
	if err := e.provider.DestroyFlow(idx); err != nil {
		return hashpipe.WrapError("ibv", "DestroyFlow", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}

// joinMulticast opens a dedicated UDP socket and joins group:port via
// IP_ADD_MEMBERSHIP (net.ListenMulticastUDP). Failure is logged and
// non-fatal: an unprivileged or non-multicast-capable test environment
// still exercises the flow-table bookkeeping above it.
func (e *Engine) joinMulticast(idx int, group net.IP, port uint16) {
	iface, err := net.InterfaceByIndex(1)
	if err != nil {
		e.logger.Warn("multicast join: no interface available", "error", err)
		return
	}
	conn, err := net.ListenMulticastUDP("udp4", iface, &net.UDPAddr{IP: group, Port: int(port)})
	if err != nil {
		e.logger.Warn("multicast join failed", "group", group.String(), "error", err)
		return
	}
	e.mcast[idx] = conn
}

// Run polls for completions and recycles ring blocks until ctx is done or
// workerrt.Running() goes false. A non-success completion is a protocol
// error per the capture contract: it stops the run loop and clears the
// process-wide running flag.
func (e *Engine) Run(ctx context.Context) error {
	lastRefresh := time.Time{}
	for workerrt.Running() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		completions, err := e.provider.PollCompletions(pollBudgetMillis)
		if err != nil {
			workerrt.Clear()
			return hashpipe.WrapError("ibv", "Run", hashpipe.ErrKindProtocol, err)
		}

		for _, c := range completions {
			if !c.Success {
				block, slot := unwrID(c.WRID)
				e.logger.Error("non-success completion", "wr_id", c.WRID, "block", block, "slot", slot)
				workerrt.Clear()
				return hashpipe.NewError("ibv", "Run", hashpipe.ErrKindProtocol, "non-success completion")
			}
			if err := e.recycle(c); err != nil {
				return err
			}
			e.rx++
		}

		if time.Since(lastRefresh) >= counterRefreshInterval {
			e.refreshCounters()
			e.reactToSniff()
			lastRefresh = time.Now()
		}
	}
	return nil
}

func (e *Engine) recycle(c Completion) error {
	block, slot := unwrID(c.WRID)
	copy(e.ring.PayloadBytes(block)[slot*e.slotSize:], c.Payload)

	e.nextSlot++
	if e.nextSlot < e.slotsPer {
		return nil
	}
	e.nextSlot = 0

	var waitLatencyNs uint64
	if postedAt, ok := e.postedAt[block]; ok {
		waitLatencyNs = uint64(time.Since(postedAt).Nanoseconds())
		delete(e.postedAt, block)
	}

	if err := e.ring.SetFilled(block); err != nil {
		return hashpipe.WrapError("ibv", "recycle", hashpipe.ErrKindFatalSystem, err)
	}
	e.observer.ObserveFilled(uint64(e.slotSize*e.slotsPer), waitLatencyNs)
	e.cur = (e.cur + 1) % e.ring.NBlock()

	nextFree := (e.cur + 1) % e.ring.NBlock()
	if outcome, err := e.ring.WaitFree(context.Background(), nextFree); err != nil {
		e.observer.ObserveWaitError()
		return hashpipe.WrapError("ibv", "recycle", hashpipe.ErrKindFatalSystem, err)
	} else if outcome != hashpipe.WaitOK {
		return nil
	}
	return e.postBlock(nextFree)
}

func (e *Engine) refreshCounters() {
	e.statusBuf.PutInt("IBVBUFST", int64(e.cur))
	e.statusBuf.PutInt("IBVPPS", int64(e.rx))
	e.statusBuf.PutInt("IBVGBPS", int64(e.rx)*int64(e.slotSize)/125000000)

	if mask, err := e.ring.TotalMask(); err == nil {
		depth := 0
		for b := 0; b < e.ring.NBlock(); b++ {
			if mask&(1<<uint(b)) != 0 {
				depth++
			}
		}
		e.observer.ObserveRingDepth(uint32(depth))
	}
}

func (e *Engine) reactToSniff() {
	v, ok := e.statusBuf.Get("IBVSNIFF")
	enabled := ok && v == "1"
	switch {
	case enabled && !e.sniffing:
		if err := e.CreateFlow(sniffFlowIndex, FlowSpec{EthType: 0x0800}); err != nil {
			e.logger.Warn("failed to enable sniffer flow", "error", err)
			return
		}
		e.sniffing = true
	case !enabled && e.sniffing:
		if err := e.DestroyFlow(sniffFlowIndex); err != nil {
			e.logger.Warn("failed to disable sniffer flow", "error", err)
			return
		}
		e.sniffing = false
	}
}

// Close destroys every flow rule and releases the provider.
func (e *Engine) Close() error {
	for idx := 0; idx < constants.MaxFlows; idx++ {
		e.DestroyFlow(idx)
	}
	if err := e.provider.Close(); err != nil {
		return hashpipe.WrapError("ibv", "Close", hashpipe.ErrKindFatalSystem, err)
	}
	return nil
}
