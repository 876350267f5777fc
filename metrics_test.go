package hashpipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsBasicCounters(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewMetrics(now)

	snap := m.Snapshot(now)
	require.Zero(t, snap.BlocksFilled)

	m.RecordFilled(1024, 1_000_000)
	m.RecordFilled(2048, 2_000_000)
	m.RecordConsumed(1024, 500_000)
	m.RecordDropped()
	m.RecordWaitError()

	later := now.Add(time.Second)
	snap = m.Snapshot(later)

	require.Equal(t, uint64(2), snap.BlocksFilled)
	require.Equal(t, uint64(1), snap.BlocksConsumed)
	require.Equal(t, uint64(1), snap.BlocksDropped)
	require.Equal(t, uint64(1), snap.WaitErrors)
	require.Equal(t, uint64(3072), snap.BytesIn)
	require.Equal(t, uint64(1024), snap.BytesOut)
	require.InDelta(t, 2.0, snap.FilledPerSec, 0.01)
}

func TestMetricsRingDepthTracksMax(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewMetrics(now)

	m.RecordRingDepth(1)
	m.RecordRingDepth(5)
	m.RecordRingDepth(3)

	snap := m.Snapshot(now)
	require.Equal(t, uint32(5), snap.MaxRingDepth)
	require.InDelta(t, 3.0, snap.AvgRingDepth, 0.01)
}

func TestMetricsPercentiles(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewMetrics(now)

	for i := 0; i < 100; i++ {
		m.RecordFilled(0, 1_000)
	}
	m.RecordFilled(0, 500_000_000) // one slow sample near WaitTimeout

	snap := m.Snapshot(now)
	require.NotZero(t, snap.LatencyP50Ns)
	require.GreaterOrEqual(t, snap.LatencyP99Ns, snap.LatencyP50Ns)
}

func TestMetricsObserverDelegates(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewMetrics(now)
	obs := NewMetricsObserver(m)

	obs.ObserveFilled(100, 10)
	obs.ObserveConsumed(50, 5)
	obs.ObserveDropped()
	obs.ObserveWaitError()
	obs.ObserveRingDepth(2)

	snap := m.Snapshot(now)
	require.Equal(t, uint64(1), snap.BlocksFilled)
	require.Equal(t, uint64(1), snap.BlocksConsumed)
	require.Equal(t, uint64(1), snap.BlocksDropped)
	require.Equal(t, uint64(1), snap.WaitErrors)
	require.Equal(t, uint32(2), snap.MaxRingDepth)
}

func TestMetricsReset(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewMetrics(now)
	m.RecordFilled(100, 10)
	m.Reset(now)
	snap := m.Snapshot(now)
	require.Zero(t, snap.BlocksFilled)
	require.Zero(t, snap.BytesIn)
}

func TestNoOpObserverDoesNothing(t *testing.T) {
	var o Observer = NoOpObserver{}
	require.NotPanics(t, func() {
		o.ObserveFilled(1, 1)
		o.ObserveConsumed(1, 1)
		o.ObserveDropped()
		o.ObserveWaitError()
		o.ObserveRingDepth(1)
	})
}
