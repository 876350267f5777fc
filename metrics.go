package hashpipe

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the block-wait latency histogram buckets in
// nanoseconds, covering the 250ms WaitTimeout with enough resolution below
// it to see workers waiting near the timeout boundary.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	250_000_000,    // 250ms (WaitTimeout)
	1_000_000_000,  // 1s
}

const numLatencyBuckets = 8

// Metrics tracks per-worker ring throughput counters in process memory.
type Metrics struct {
	BlocksFilled    atomic.Uint64 // blocks this worker marked filled (produced)
	BlocksConsumed  atomic.Uint64 // blocks this worker marked free (consumed)
	BlocksDropped   atomic.Uint64 // blocks discarded due to overrun/protocol error

	BytesIn  atomic.Uint64
	BytesOut atomic.Uint64

	WaitErrors atomic.Uint64 // non-timeout errors from a wait_* call

	RingDepthTotal atomic.Uint64 // cumulative filled-block-count samples
	RingDepthCount atomic.Uint64
	MaxRingDepth   atomic.Uint32

	TotalWaitLatencyNs atomic.Uint64
	WaitCount          atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance. now is the instance's start
// time, supplied by the caller since this package avoids wall-clock reads.
func NewMetrics(now time.Time) *Metrics {
	m := &Metrics{}
	m.StartTime.Store(now.UnixNano())
	return m
}

// RecordFilled records a block transitioning to the filled state.
func (m *Metrics) RecordFilled(bytes uint64, waitLatencyNs uint64) {
	m.BlocksFilled.Add(1)
	m.BytesIn.Add(bytes)
	m.recordWaitLatency(waitLatencyNs)
}

// RecordConsumed records a block transitioning back to the free state.
func (m *Metrics) RecordConsumed(bytes uint64, waitLatencyNs uint64) {
	m.BlocksConsumed.Add(1)
	m.BytesOut.Add(bytes)
	m.recordWaitLatency(waitLatencyNs)
}

// RecordDropped records a block discarded without being processed.
func (m *Metrics) RecordDropped() {
	m.BlocksDropped.Add(1)
}

// RecordWaitError records a wait_* call returning something other than a
// clean timeout (EINTR aside, which is recorded as a normal timeout path).
func (m *Metrics) RecordWaitError() {
	m.WaitErrors.Add(1)
}

// RecordRingDepth records the number of currently-filled blocks.
func (m *Metrics) RecordRingDepth(depth uint32) {
	m.RingDepthTotal.Add(uint64(depth))
	m.RingDepthCount.Add(1)
	for {
		cur := m.MaxRingDepth.Load()
		if depth <= cur {
			break
		}
		if m.MaxRingDepth.CompareAndSwap(cur, depth) {
			break
		}
	}
}

func (m *Metrics) recordWaitLatency(latencyNs uint64) {
	m.TotalWaitLatencyNs.Add(latencyNs)
	m.WaitCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the worker as stopped.
func (m *Metrics) Stop(now time.Time) {
	m.StopTime.Store(now.UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics with derived rates.
type MetricsSnapshot struct {
	BlocksFilled   uint64
	BlocksConsumed uint64
	BlocksDropped  uint64
	BytesIn        uint64
	BytesOut       uint64
	WaitErrors     uint64

	AvgRingDepth float64
	MaxRingDepth uint32

	AvgWaitLatencyNs uint64
	UptimeNs         uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	FilledPerSec float64
	GbpsIn       float64 // gigabits/sec in, the IBVGBPS status key's unit
	PacketsPerSec float64
}

// Snapshot computes a MetricsSnapshot. now is used to derive uptime/rates
// when the worker has not yet stopped.
func (m *Metrics) Snapshot(now time.Time) MetricsSnapshot {
	s := MetricsSnapshot{
		BlocksFilled:   m.BlocksFilled.Load(),
		BlocksConsumed: m.BlocksConsumed.Load(),
		BlocksDropped:  m.BlocksDropped.Load(),
		BytesIn:        m.BytesIn.Load(),
		BytesOut:       m.BytesOut.Load(),
		WaitErrors:     m.WaitErrors.Load(),
		MaxRingDepth:   m.MaxRingDepth.Load(),
	}

	if c := m.RingDepthCount.Load(); c > 0 {
		s.AvgRingDepth = float64(m.RingDepthTotal.Load()) / float64(c)
	}

	waitCount := m.WaitCount.Load()
	if waitCount > 0 {
		s.AvgWaitLatencyNs = m.TotalWaitLatencyNs.Load() / waitCount
	}

	start := m.StartTime.Load()
	stop := m.StopTime.Load()
	if stop > 0 {
		s.UptimeNs = uint64(stop - start)
	} else {
		s.UptimeNs = uint64(now.UnixNano() - start)
	}

	if s.UptimeNs > 0 {
		secs := float64(s.UptimeNs) / 1e9
		s.FilledPerSec = float64(s.BlocksFilled) / secs
		s.PacketsPerSec = s.FilledPerSec
		s.GbpsIn = float64(s.BytesIn) * 8 / secs / 1e9
	}

	for i := 0; i < numLatencyBuckets; i++ {
		s.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if waitCount > 0 {
		s.LatencyP50Ns = m.calculatePercentile(waitCount, 0.50)
		s.LatencyP99Ns = m.calculatePercentile(waitCount, 0.99)
		s.LatencyP999Ns = m.calculatePercentile(waitCount, 0.999)
	}

	return s
}

func (m *Metrics) calculatePercentile(total uint64, percentile float64) uint64 {
	if total == 0 {
		return 0
	}
	target := uint64(float64(total) * percentile)
	var prevBucket, prevCount uint64
	for i, bucket := range LatencyBuckets {
		count := m.LatencyBuckets[i].Load()
		if count >= target {
			if count == prevCount {
				return bucket
			}
			frac := float64(target-prevCount) / float64(count-prevCount)
			return prevBucket + uint64(frac*float64(bucket-prevBucket))
		}
		prevBucket = bucket
		prevCount = count
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters; useful between test runs.
func (m *Metrics) Reset(now time.Time) {
	m.BlocksFilled.Store(0)
	m.BlocksConsumed.Store(0)
	m.BlocksDropped.Store(0)
	m.BytesIn.Store(0)
	m.BytesOut.Store(0)
	m.WaitErrors.Store(0)
	m.RingDepthTotal.Store(0)
	m.RingDepthCount.Store(0)
	m.MaxRingDepth.Store(0)
	m.TotalWaitLatencyNs.Store(0)
	m.WaitCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(now.UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable collection of worker/ring events. It is fed
// separately from a worker's published status-buffer keys.
type Observer interface {
	ObserveFilled(bytes uint64, waitLatencyNs uint64)
	ObserveConsumed(bytes uint64, waitLatencyNs uint64)
	ObserveDropped()
	ObserveWaitError()
	ObserveRingDepth(depth uint32)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveFilled(uint64, uint64)  {}
func (NoOpObserver) ObserveConsumed(uint64, uint64) {}
func (NoOpObserver) ObserveDropped()                {}
func (NoOpObserver) ObserveWaitError()              {}
func (NoOpObserver) ObserveRingDepth(uint32)         {}

// MetricsObserver implements Observer on top of Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveFilled(bytes uint64, waitLatencyNs uint64) {
	o.metrics.RecordFilled(bytes, waitLatencyNs)
}

func (o *MetricsObserver) ObserveConsumed(bytes uint64, waitLatencyNs uint64) {
	o.metrics.RecordConsumed(bytes, waitLatencyNs)
}

func (o *MetricsObserver) ObserveDropped() {
	o.metrics.RecordDropped()
}

func (o *MetricsObserver) ObserveWaitError() {
	o.metrics.RecordWaitError()
}

func (o *MetricsObserver) ObserveRingDepth(depth uint32) {
	o.metrics.RecordRingDepth(depth)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
