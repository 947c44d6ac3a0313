// Package ports define repository interfaces for data storage abstraction.
// These interfaces enable the repository pattern and allow swapping storage mechanisms.
package ports

import (
	"time"

	"github.com/pulsarviz/pulsar/internal/domain"
)

// SampleRepository handles the storage of performance samples.
// The rolling window the governor evaluates and the snapshot the status
// console serves both read from here. Performance history does not
// survive a restart.
//
// Thread-safety: Implementations must be thread-safe.
type SampleRepository interface {
	// Append stores a sample. Older samples beyond the implementation's
	// capacity may be discarded oldest-first.
	//
	// Returns an error if storing fails.
	Append(sample domain.PerformanceSample) error

	// Recent retrieves up to n samples, newest last.
	// If fewer samples exist, all of them are returned (not an error).
	//
	// Returns the samples or an error if loading fails.
	Recent(n int) ([]domain.PerformanceSample, error)

	// PruneOlderThan discards samples with a timestamp before the cutoff.
	//
	// Returns the number of samples discarded.
	PruneOlderThan(cutoff time.Time) int

	// Len returns the number of stored samples.
	Len() int

	// Clear removes all stored samples.
	//
	// Returns an error if clearing fails.
	Clear() error
}
