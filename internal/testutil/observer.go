// Package testutil provides small in-process test doubles shared across the
// pipeline's package tests, in place of real shared memory or sockets.
package testutil

import "sync"

// RecordingObserver implements hashpipe.Observer and records every call for
// later assertion, the same call-counting idiom the teacher's MockBackend
// used for its read/write/flush/sync call tracking.
type RecordingObserver struct {
	mu sync.Mutex

	filledCalls   int
	consumedCalls int
	droppedCalls  int
	waitErrCalls  int
	depthSamples  []uint32

	bytesIn  uint64
	bytesOut uint64
}

func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (o *RecordingObserver) ObserveFilled(bytes uint64, _ uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.filledCalls++
	o.bytesIn += bytes
}

func (o *RecordingObserver) ObserveConsumed(bytes uint64, _ uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consumedCalls++
	o.bytesOut += bytes
}

func (o *RecordingObserver) ObserveDropped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.droppedCalls++
}

func (o *RecordingObserver) ObserveWaitError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.waitErrCalls++
}

func (o *RecordingObserver) ObserveRingDepth(depth uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.depthSamples = append(o.depthSamples, depth)
}

// Counts returns a snapshot of how many times each Observe* method fired.
func (o *RecordingObserver) Counts() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return map[string]int{
		"filled":   o.filledCalls,
		"consumed": o.consumedCalls,
		"dropped":  o.droppedCalls,
		"waitErr":  o.waitErrCalls,
	}
}

// Bytes returns the cumulative bytes observed in and out.
func (o *RecordingObserver) Bytes() (in, out uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bytesIn, o.bytesOut
}

// DepthSamples returns every ring-depth sample observed, in order.
func (o *RecordingObserver) DepthSamples() []uint32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]uint32, len(o.depthSamples))
	copy(out, o.depthSamples)
	return out
}
