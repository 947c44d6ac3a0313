// Package memory provides in-memory repository implementations.
package memory

import (
	"sync"
	"time"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// DefaultSampleCapacity bounds the store when no capacity is given.
// At one sample per second this covers well over the 30 second rolling
// window the governor evaluates.
const DefaultSampleCapacity = 256

// SampleRepository implements ports.SampleRepository with a bounded
// in-memory slice. When the capacity is reached the oldest sample is
// discarded, so the store never grows without the pruning tick.
//
// Thread-safe: All operations protected by sync.RWMutex.
type SampleRepository struct {
	samples  []domain.PerformanceSample
	capacity int
	mu       sync.RWMutex
}

// NewSampleRepository creates a sample repository with the given capacity.
// A capacity of zero or less falls back to DefaultSampleCapacity.
func NewSampleRepository(capacity int) *SampleRepository {
	if capacity <= 0 {
		capacity = DefaultSampleCapacity
	}

	return &SampleRepository{
		samples:  make([]domain.PerformanceSample, 0, capacity),
		capacity: capacity,
	}
}

// Append stores a sample, discarding the oldest one when full.
func (r *SampleRepository) Append(sample domain.PerformanceSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.samples) >= r.capacity {
		// Shift in place to keep the backing array bounded
		copy(r.samples, r.samples[1:])
		r.samples = r.samples[:len(r.samples)-1]
	}

	r.samples = append(r.samples, sample)

	return nil
}

// Recent retrieves up to n samples, newest last.
func (r *SampleRepository) Recent(n int) ([]domain.PerformanceSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	if n > len(r.samples) {
		n = len(r.samples)
	}

	// Return a copy so callers cannot mutate the stored window
	out := make([]domain.PerformanceSample, n)
	copy(out, r.samples[len(r.samples)-n:])

	return out, nil
}

// PruneOlderThan discards samples with a timestamp before the cutoff.
// Returns the number of samples discarded.
func (r *SampleRepository) PruneOlderThan(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Samples are appended in timestamp order, so find the first survivor
	keep := 0
	for keep < len(r.samples) && r.samples[keep].Timestamp.Before(cutoff) {
		keep++
	}

	if keep == 0 {
		return 0
	}

	remaining := copy(r.samples, r.samples[keep:])
	r.samples = r.samples[:remaining]

	return keep
}

// Len returns the number of stored samples.
func (r *SampleRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.samples)
}

// Clear removes all stored samples.
func (r *SampleRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = r.samples[:0]

	return nil
}

// Verify interface implementation
var _ ports.SampleRepository = (*SampleRepository)(nil)
