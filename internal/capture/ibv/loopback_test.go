package ibv

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoopbackProviderDeliversMatchingFlow(t *testing.T) {
	p := NewLoopbackProvider().(*loopbackProvider)
	require.NoError(t, p.Open(OpenParams{Interface: "lo"}))

	spec := FlowSpec{SrcPort: 1000, DstPort: 2000, DstIP: net.IPv4(10, 0, 0, 5)}
	require.NoError(t, p.CreateFlow(0, spec))
	require.NoError(t, p.PostRecv([]RecvWR{{ID: wrID(0, 0)}}))

	completions, err := p.PollCompletions(5)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	require.True(t, completions[0].Success)
	require.Equal(t, uint16(1000), completions[0].SrcPort)
	require.Equal(t, uint16(2000), completions[0].DstPort)
	require.Equal(t, net.IPv4(10, 0, 0, 5).To4(), net.IP(completions[0].DstIP).To4())
}

func TestLoopbackProviderIdlesWithoutFlowsOrWRs(t *testing.T) {
	p := NewLoopbackProvider().(*loopbackProvider)
	require.NoError(t, p.Open(OpenParams{Interface: "lo"}))

	completions, err := p.PollCompletions(1)
	require.NoError(t, err)
	require.Empty(t, completions)
}

func TestLoopbackProviderDestroyFlowStopsDelivery(t *testing.T) {
	p := NewLoopbackProvider().(*loopbackProvider)
	require.NoError(t, p.Open(OpenParams{Interface: "lo"}))
	require.NoError(t, p.CreateFlow(0, FlowSpec{SrcPort: 1}))
	require.NoError(t, p.DestroyFlow(0))
	require.NoError(t, p.PostRecv([]RecvWR{{ID: wrID(0, 0)}}))

	completions, err := p.PollCompletions(1)
	require.NoError(t, err)
	require.Empty(t, completions)
}

func TestLoopbackProviderZeroSpecDeletesFlow(t *testing.T) {
	p := NewLoopbackProvider().(*loopbackProvider)
	require.NoError(t, p.CreateFlow(1, FlowSpec{SrcPort: 1}))
	require.Len(t, p.flows, 1)
	require.NoError(t, p.CreateFlow(1, FlowSpec{}))
	require.Empty(t, p.flows)
}

func TestLoopbackProviderCreateFlowRejectsBadIndex(t *testing.T) {
	p := NewLoopbackProvider().(*loopbackProvider)
	require.Error(t, p.CreateFlow(-1, FlowSpec{SrcPort: 1}))
}

func TestWRIDRoundTrip(t *testing.T) {
	block, slot := unwrID(wrID(3, 7))
	require.Equal(t, 3, block)
	require.Equal(t, 7, slot)
}
