//go:build linux

// Package pktsock implements the AF_PACKET mmap-ring packet-capture
// engine: a thin wrapper over gopacket/afpacket's TPacket ring, the one
// capture engine in this repository whose Go analogue is a real,
// widely-used library rather than a hand-built contract.
package pktsock

import (
	"os"
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/afpacket"
	"github.com/gopacket/gopacket/layers"

	hashpipe "github.com/hashpipe/hashpipe-go"
)

// RingType selects the kernel's TPACKET ring ABI version.
type RingType int

const (
	RingTypeV2 RingType = iota
	RingTypeV3
)

// Ring is an opened AF_PACKET mmap ring.
type Ring struct {
	tp       *afpacket.TPacket
	ifname   string
	mu       sync.Mutex
	unreleased bool
}

// Open validates the two block/frame geometry invariants the kernel ring
// requires — frameCount must divide evenly into blockCount blocks, and a
// block's byte size must be a multiple of the system page size — then
// opens the TPacket ring.
func Open(ifname string, ringType RingType, frameSize, frameCount, blockCount int) (*Ring, error) {
	if blockCount <= 0 || frameCount%blockCount != 0 {
		return nil, hashpipe.NewError("pktsock", "Open", hashpipe.ErrKindParameter, "frameCount must be a multiple of blockCount")
	}
	framesPerBlock := frameCount / blockCount
	blockSize := frameSize * framesPerBlock
	if blockSize%os.Getpagesize() != 0 {
		return nil, hashpipe.NewError("pktsock", "Open", hashpipe.ErrKindParameter, "frameSize*framesPerBlock must be a multiple of the page size")
	}

	version := afpacket.TPacketVersion2
	if ringType == RingTypeV3 {
		version = afpacket.TPacketVersion3
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(ifname),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(blockCount),
		afpacket.OptPollTimeout(100*time.Millisecond),
		afpacket.OptTPacketVersion(version),
		afpacket.SocketRaw,
	)
	if err != nil {
		return nil, hashpipe.WrapError("pktsock", "Open", hashpipe.ErrKindFatalSystem, err)
	}

	return &Ring{tp: tp, ifname: ifname}, nil
}

// RecvFrame returns the next ready frame, or (nil, hashpipe.WaitTimedOut,
// nil) if none arrives within timeout. The caller must call ReleaseFrame
// before the next RecvFrame call.
func (r *Ring) RecvFrame(timeout time.Duration) ([]byte, hashpipe.WaitOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unreleased {
		return nil, hashpipe.WaitOK, hashpipe.NewError("pktsock", "RecvFrame", hashpipe.ErrKindParameter, "previous frame not released")
	}

	deadline := time.Now().Add(timeout)
	for {
		data, _, err := r.tp.ZeroCopyReadPacketData()
		if err == nil {
			r.unreleased = true
			return data, hashpipe.WaitOK, nil
		}
		if time.Now().After(deadline) {
			return nil, hashpipe.WaitTimedOut, nil
		}
	}
}

// RecvUDPFrame behaves like RecvFrame but filters by UDP destination
// port, releasing (never returning to the caller) any frame that doesn't
// match.
func (r *Ring) RecvUDPFrame(dstPort uint16, timeout time.Duration) ([]byte, hashpipe.WaitOutcome, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, hashpipe.WaitTimedOut, nil
		}
		data, outcome, err := r.RecvFrame(remaining)
		if err != nil || outcome != hashpipe.WaitOK {
			return nil, outcome, err
		}

		packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			r.ReleaseFrame()
			continue
		}
		udp := udpLayer.(*layers.UDP)
		if uint16(udp.DstPort) != dstPort {
			r.ReleaseFrame()
			continue
		}
		return data, hashpipe.WaitOK, nil
	}
}

// ReleaseFrame must be called once for every frame RecvFrame/RecvUDPFrame
// hands back, making explicit the ring-slot ownership TPacket's zero-copy
// read implicitly transfers back to the kernel on the next read call.
func (r *Ring) ReleaseFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unreleased = false
}

// Stats reads the kernel's PACKET_STATISTICS socket option through
// afpacket.TPacket.SocketStats: packets received and packets dropped.
// SocketStats adds each reading to the totals it keeps, so these are
// running totals, not counts since the last call.
func (r *Ring) Stats() (rx, drops uint64, err error) {
	stats, _, statErr := r.tp.SocketStats()
	if statErr != nil {
		return 0, 0, hashpipe.WrapError("pktsock", "Stats", hashpipe.ErrKindFatalSystem, statErr)
	}
	return uint64(stats.Packets()), uint64(stats.Drops()), nil
}

// Close releases the underlying TPacket ring.
func (r *Ring) Close() error {
	r.tp.Close()
	return nil
}
