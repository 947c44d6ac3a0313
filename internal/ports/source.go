// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"context"
)

// FrequencySource is the interface for frequency-domain signal providers.
// This abstracts the underlying acquisition path (microphone capture, WAV file
// playback, synthetic generation) and allows for testing with fakes.
//
// Implementations must be thread-safe: ReadBins is called from the render tick
// goroutine while SetTransformSize may arrive from the governor.
type FrequencySource interface {
	// Lifecycle methods

	// Start acquires the underlying input (opens the capture device, begins
	// decoding, seeds the generator). Acquisition is the only operation that
	// may legitimately fail; a source that started once keeps serving bins
	// until Stop.
	//
	// Returns an error if the input cannot be acquired.
	Start(ctx context.Context) error

	// Stop releases the underlying input. After Stop, ReadBins returns
	// all-zero bins. Stop on a source that never started is a no-op.
	//
	// Returns an error if releasing the input fails.
	Stop() error

	// Sampling methods

	// ReadBins fills dst with the current frequency-bin magnitudes, one byte
	// per bin in [0, 255], ordered low to high frequency. It fills at most
	// BinCount() values and returns the count written.
	//
	// ReadBins must be safe to call at any rate and at any time, including
	// immediately after construction and before Start: it then writes zeros
	// rather than failing.
	ReadBins(dst []byte) int

	// BinCount returns the number of bins a full read yields. This is always
	// half the configured transform size.
	BinCount() int

	// SetTransformSize reconfigures the frequency resolution. n must be a
	// positive power of two. The next ReadBins after a successful call yields
	// n/2 bins.
	//
	// Returns an error if n is not a positive power of two.
	SetTransformSize(n int) error

	// Name identifies the source variant ("mic", "wavfile", "synthetic") for
	// status reporting and logs.
	Name() string
}

// SourceFactory is a function that creates a FrequencySource instance.
// This allows for dependency injection of different acquisition paths.
type SourceFactory func(config SourceConfig) (FrequencySource, error)

// SourceConfig contains configuration for creating a frequency source.
type SourceConfig struct {
	// TransformSize is the initial frequency transform length (power of two)
	TransformSize int

	// SampleRate is the capture/decode rate in Hz
	SampleRate int

	// Device is the capture device index (-1 for default)
	Device int

	// Path is the input file path for file-backed sources
	Path string
}
