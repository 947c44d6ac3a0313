// Package analysis reduces frequency-domain audio data into renderable amplitudes.
package analysis

import (
	"sync"

	"github.com/pulsarviz/pulsar/internal/domain"
)

// maxMagnitude is the largest value a single frequency bin can carry.
const maxMagnitude = 255.0

// SegmentAggregator folds an array of frequency bins into a fixed number of
// smoothed segment amplitudes, each in [0, 1].
//
// Bins are partitioned into contiguous, equal-size groups
// (groupSize = len(bins) / segmentCount); remainder bins at the tail are
// dropped, not redistributed. Each segment's raw value is the arithmetic
// mean of its group divided by 255, and an exponential moving average
// carries state across calls:
//
//	smoothed[i] = smoothed[i]*factor + normalized*(1-factor)
//
// The smoothing buffer persists between calls so the visualization does not
// flash from zero after a pause in input.
//
// Thread-safe: all operations protected by sync.Mutex.
type SegmentAggregator struct {
	smoothed []float64
	mu       sync.Mutex
}

// NewSegmentAggregator creates an aggregator sized for the given config.
// Every segment's smoothed value starts at zero.
func NewSegmentAggregator(cfg domain.VisualizerConfig) *SegmentAggregator {
	count := cfg.SegmentCount
	if count < 0 {
		count = 0
	}

	return &SegmentAggregator{
		smoothed: make([]float64, count),
	}
}

// Aggregate folds bins into segment amplitudes and advances the smoothing
// state. The segment count and smoothing factor are read from cfg on every
// call so a config change between ticks takes effect atomically on the next
// tick. The returned slice is a copy; callers may hold it across ticks
// without racing the next Aggregate call.
//
// When groupSize computes to zero (more segments than bins, including empty
// input) every segment's normalized value is zero for this call. Aggregate
// never fails on short, empty, or nil input.
func (a *SegmentAggregator) Aggregate(bins []byte, cfg domain.VisualizerConfig) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.resizeLocked(cfg.SegmentCount)

	count := len(a.smoothed)
	if count == 0 {
		return nil
	}

	groupSize := len(bins) / count
	factor := cfg.SmoothingFactor

	for i := 0; i < count; i++ {
		normalized := 0.0
		if groupSize > 0 {
			sum := 0.0
			start := i * groupSize
			for _, b := range bins[start : start+groupSize] {
				sum += float64(b)
			}
			normalized = sum / float64(groupSize) / maxMagnitude
		}

		a.smoothed[i] = a.smoothed[i]*factor + normalized*(1-factor)
	}

	return a.snapshotLocked()
}

// Amplitudes returns a copy of the current smoothed buffer without consuming
// new input. Idle and error ticks read this so the last shape survives until
// the source becomes active again.
func (a *SegmentAggregator) Amplitudes() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.snapshotLocked()
}

// Reset clears all smoothed values back to zero, keeping the current size.
func (a *SegmentAggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}

// resizeLocked adjusts the smoothing buffer to the requested segment count.
// Values at surviving indexes are kept; segments added by a grow start at
// zero. Caller must hold the lock.
func (a *SegmentAggregator) resizeLocked(count int) {
	if count < 0 {
		count = 0
	}
	if count == len(a.smoothed) {
		return
	}

	next := make([]float64, count)
	copy(next, a.smoothed)
	a.smoothed = next
}

// snapshotLocked copies the smoothed buffer. Caller must hold the lock.
func (a *SegmentAggregator) snapshotLocked() []float64 {
	out := make([]float64, len(a.smoothed))
	copy(out, a.smoothed)
	return out
}
