package ibv

import (
	"net"

	hashpipe "github.com/hashpipe/hashpipe-go"
	"github.com/hashpipe/hashpipe-go/internal/constants"
)

// FlowSpec describes one hardware (or loopback-simulated) receive flow
// rule: which layers must match for a completion to be delivered under
// this flow index. A field left at its zero value is not matched, and an
// all-zero FlowSpec (IsZero true) deletes the rule at its index.
type FlowSpec struct {
	EthType uint16
	VLAN    uint16
	SrcMAC  net.HardwareAddr
	DstMAC  net.HardwareAddr
	SrcIP   net.IP
	DstIP   net.IP
	SrcPort uint16
	DstPort uint16
}

// IsZero reports whether spec has no fields set, the "delete the rule"
// sentinel CreateFlow/DestroyFlow both honor.
func (spec FlowSpec) IsZero() bool {
	return spec.EthType == 0 && spec.VLAN == 0 && len(spec.SrcMAC) == 0 && len(spec.DstMAC) == 0 &&
		spec.SrcIP == nil && spec.DstIP == nil && spec.SrcPort == 0 && spec.DstPort == 0
}

// IsMulticast reports whether spec's destination address is an IPv4
// multicast address (224.0.0.0/4).
func (spec FlowSpec) IsMulticast() bool {
	return spec.DstIP != nil && spec.DstIP.IsMulticast()
}

// MulticastMAC computes the RFC 1112 Ethernet multicast address for an
// IPv4 multicast group: 01:00:5E followed by the low 23 bits of the
// group address.
func MulticastMAC(ip net.IP) net.HardwareAddr {
	v4 := ip.To4()
	if v4 == nil {
		return nil
	}
	return net.HardwareAddr{0x01, 0x00, 0x5e, v4[1] & 0x7f, v4[2], v4[3]}
}

// validateFlowIndex bounds-checks idx against constants.MaxFlows.
func validateFlowIndex(idx int) error {
	if idx < 0 || idx >= constants.MaxFlows {
		return hashpipe.NewError("ibv", "validateFlowIndex", hashpipe.ErrKindParameter, "flow index out of range")
	}
	return nil
}
