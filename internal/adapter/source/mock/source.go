// Package mock provides a mock implementation of the FrequencySource interface.
// This is used for testing services without a real capture device.
package mock

import (
	"context"
	"sync"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// sourceName identifies the mock source in errors and events.
const sourceName = "mock"

// Source is a mock implementation of the FrequencySource interface.
// It serves a caller-supplied bin array instead of analyzing real audio.
//
// Thread-safety: This implementation is thread-safe.
type Source struct {
	// State
	bins    []byte
	started bool

	// Call counters (for asserting lifecycle behavior)
	startCalls int
	stopCalls  int

	// Behavior configuration (for testing error scenarios)
	failStart        bool
	failStop         bool
	failSetTransform bool

	mu sync.RWMutex
}

// NewSource creates a mock source sized for the given transform size.
func NewSource(transformSize int) *Source {
	return &Source{
		bins: make([]byte, transformSize/2),
	}
}

// SetFailStart configures the mock to fail Start (for testing).
func (m *Source) SetFailStart(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStart = fail
}

// SetFailStop configures the mock to fail Stop (for testing).
func (m *Source) SetFailStop(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStop = fail
}

// SetFailSetTransform configures the mock to reject transform size changes.
func (m *Source) SetFailSetTransform(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSetTransform = fail
}

// FillBins sets every bin to the given value.
func (m *Source) FillBins(value byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.bins {
		m.bins[i] = value
	}
}

// SetBins replaces the served bin values (copied, truncated to capacity).
func (m *Source) SetBins(bins []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.bins, bins)
}

// StartCalls returns how many times Start was called.
func (m *Source) StartCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startCalls
}

// StopCalls returns how many times Stop was called.
func (m *Source) StopCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopCalls
}

// Started reports whether the source is currently started.
func (m *Source) Started() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

// Start begins serving bins.
func (m *Source) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startCalls++

	if m.failStart {
		return domain.NewSourceError("Start", sourceName, "mock start failure", domain.ErrSourceUnavailable)
	}

	m.started = true
	return nil
}

// Stop stops serving bins.
func (m *Source) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopCalls++

	if m.failStop {
		return domain.NewSourceError("Stop", sourceName, "mock stop failure", nil)
	}

	m.started = false
	return nil
}

// ReadBins copies the served bins into dst. Before Start, and after Stop,
// every bin reads zero per the source contract.
func (m *Source) ReadBins(dst []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.started {
		n := len(dst)
		if n > len(m.bins) {
			n = len(m.bins)
		}
		for i := 0; i < n; i++ {
			dst[i] = 0
		}
		return n
	}

	return copy(dst, m.bins)
}

// BinCount returns the length of the served bin array.
func (m *Source) BinCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bins)
}

// SetTransformSize resizes the served bin array to transformSize/2.
func (m *Source) SetTransformSize(transformSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSetTransform {
		return domain.ErrInvalidTransformSize
	}
	if transformSize <= 0 || transformSize&(transformSize-1) != 0 {
		return domain.ErrInvalidTransformSize
	}

	bins := make([]byte, transformSize/2)
	copy(bins, m.bins)
	m.bins = bins

	return nil
}

// Name identifies the mock source.
func (m *Source) Name() string {
	return sourceName
}

// Verify that Source implements the FrequencySource interface
var _ ports.FrequencySource = (*Source)(nil)
