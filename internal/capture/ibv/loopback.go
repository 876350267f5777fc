package ibv

import (
	"net"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	hashpipe "github.com/hashpipe/hashpipe-go"
)

var defaultSrcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}

// loopbackProvider is the default, always-built Provider: it generates
// synthetic Ethernet/IPv4/UDP completions from an in-process packet
// generator, encoding and decoding real wire bytes with gopacket/layers so
// the run loop, chunk table, and WR-recycling state machine are
// exercisable without RDMA hardware.
type loopbackProvider struct {
	mu      sync.Mutex
	params  OpenParams
	flows   map[int]FlowSpec
	pending *queue.Queue
	seq     uint64
}

// NewLoopbackProvider builds the default Provider used when no
// //go:build ibverbs real backend is compiled in.
func NewLoopbackProvider() Provider {
	return &loopbackProvider{flows: map[int]FlowSpec{}, pending: queue.New()}
}

func (p *loopbackProvider) Open(params OpenParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = params
	return nil
}

func (p *loopbackProvider) PostRecv(wrs []RecvWR) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, wr := range wrs {
		p.pending.Add(wr)
	}
	return nil
}

// PollCompletions synthesizes one completion per posted WR for each
// active (non-zero) flow rule, in flow-index order, until either the
// pending WR queue or the flow table is exhausted. With no pending WRs or
// no active flows it sleeps out the timeout and returns no completions,
// matching a real provider's idle poll.
func (p *loopbackProvider) PollCompletions(timeoutMs int) ([]Completion, error) {
	p.mu.Lock()
	if p.pending.Length() == 0 || len(p.flows) == 0 {
		p.mu.Unlock()
		time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
		return nil, nil
	}

	var indices []int
	for idx := range p.flows {
		indices = append(indices, idx)
	}
	// deterministic order for reproducible tests
	for i := 0; i < len(indices); i++ {
		for j := i + 1; j < len(indices); j++ {
			if indices[j] < indices[i] {
				indices[i], indices[j] = indices[j], indices[i]
			}
		}
	}

	var completions []Completion
	for _, idx := range indices {
		if p.pending.Length() == 0 {
			break
		}
		spec := p.flows[idx]
		wr := p.pending.Remove().(RecvWR)

		data, err := encodeSynthetic(spec, p.seq)
		p.seq++
		if err != nil {
			p.mu.Unlock()
			return nil, hashpipe.WrapError("ibv", "PollCompletions", hashpipe.ErrKindProtocol, err)
		}
		c, err := decodeCompletion(wr.ID, data)
		if err != nil {
			p.mu.Unlock()
			return nil, hashpipe.WrapError("ibv", "PollCompletions", hashpipe.ErrKindProtocol, err)
		}
		completions = append(completions, c)
	}
	p.mu.Unlock()
	return completions, nil
}

func (p *loopbackProvider) CreateFlow(idx int, spec FlowSpec) error {
	if err := validateFlowIndex(idx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if spec.IsZero() {
		delete(p.flows, idx)
		return nil
	}
	p.flows[idx] = spec
	return nil
}

func (p *loopbackProvider) DestroyFlow(idx int) error {
	if err := validateFlowIndex(idx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.flows, idx)
	return nil
}

func (p *loopbackProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flows = map[int]FlowSpec{}
	p.pending = queue.New()
	return nil
}

func encodeSynthetic(spec FlowSpec, seq uint64) ([]byte, error) {
	srcMAC := spec.SrcMAC
	if len(srcMAC) == 0 {
		srcMAC = defaultSrcMAC
	}
	dstMAC := spec.DstMAC
	if spec.IsMulticast() {
		dstMAC = MulticastMAC(spec.DstIP)
	} else if len(dstMAC) == 0 {
		dstMAC = defaultSrcMAC
	}
	srcIP := spec.SrcIP
	if srcIP == nil {
		srcIP = net.IPv4(127, 0, 0, 1)
	}
	dstIP := spec.DstIP
	if dstIP == nil {
		dstIP = net.IPv4(127, 0, 0, 1)
	}

	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: srcIP, DstIP: dstIP}
	udp := &layers.UDP{SrcPort: layers.UDPPort(spec.SrcPort), DstPort: layers.UDPPort(spec.DstPort)}
	udp.SetNetworkLayerForChecksum(ip)

	payload := make([]byte, 8)
	for i := range payload {
		payload[i] = byte(seq + uint64(i))
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCompletion(wrID uint64, data []byte) (Completion, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	ethLayer := packet.Layer(layers.LayerTypeEthernet)
	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if ethLayer == nil || ipLayer == nil || udpLayer == nil {
		return Completion{}, hashpipe.NewError("ibv", "decodeCompletion", hashpipe.ErrKindProtocol, "malformed synthetic packet")
	}
	eth := ethLayer.(*layers.Ethernet)
	ip := ipLayer.(*layers.IPv4)
	udp := udpLayer.(*layers.UDP)

	var payload []byte
	if app := packet.ApplicationLayer(); app != nil {
		payload = app.Payload()
	}

	return Completion{
		WRID:    wrID,
		Success: true,
		Length:  len(data),
		SrcMAC:  []byte(eth.SrcMAC),
		DstMAC:  []byte(eth.DstMAC),
		SrcIP:   []byte(ip.SrcIP),
		DstIP:   []byte(ip.DstIP),
		SrcPort: uint16(udp.SrcPort),
		DstPort: uint16(udp.DstPort),
		Payload: payload,
	}, nil
}
