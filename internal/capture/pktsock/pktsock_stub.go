//go:build !linux

package pktsock

import (
	"time"

	hashpipe "github.com/hashpipe/hashpipe-go"
)

// RingType selects the kernel's TPACKET ring ABI version.
type RingType int

const (
	RingTypeV2 RingType = iota
	RingTypeV3
)

// Ring is a non-functional stand-in on platforms without AF_PACKET.
type Ring struct{}

func Open(ifname string, ringType RingType, frameSize, frameCount, blockCount int) (*Ring, error) {
	return nil, hashpipe.NewError("pktsock", "Open", hashpipe.ErrKindFatalSystem, "AF_PACKET capture is only available on linux")
}

func (r *Ring) RecvFrame(timeout time.Duration) ([]byte, hashpipe.WaitOutcome, error) {
	return nil, hashpipe.WaitOK, hashpipe.NewError("pktsock", "RecvFrame", hashpipe.ErrKindFatalSystem, "AF_PACKET capture is only available on linux")
}

func (r *Ring) RecvUDPFrame(dstPort uint16, timeout time.Duration) ([]byte, hashpipe.WaitOutcome, error) {
	return nil, hashpipe.WaitOK, hashpipe.NewError("pktsock", "RecvUDPFrame", hashpipe.ErrKindFatalSystem, "AF_PACKET capture is only available on linux")
}

func (r *Ring) ReleaseFrame() {}

func (r *Ring) Stats() (rx, drops uint64, err error) {
	return 0, 0, hashpipe.NewError("pktsock", "Stats", hashpipe.ErrKindFatalSystem, "AF_PACKET capture is only available on linux")
}

func (r *Ring) Close() error { return nil }
