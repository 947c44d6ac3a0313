// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrNotConnected is returned when an operation requires a connected source.
	ErrNotConnected = errors.New("no frequency source connected")

	// ErrAlreadyConnected is returned when connecting while a source is active.
	ErrAlreadyConnected = errors.New("frequency source already connected")

	// ErrSourceUnavailable is returned when a frequency source cannot be acquired.
	ErrSourceUnavailable = errors.New("frequency source unavailable")

	// ErrSourceClosed is returned when reading from a stopped source.
	ErrSourceClosed = errors.New("frequency source closed")

	// ErrSurfaceClosed is returned when drawing on a released render surface.
	ErrSurfaceClosed = errors.New("render surface closed")

	// ErrNotRunning is returned when stopping a service that was never started.
	ErrNotRunning = errors.New("service not running")

	// ErrAlreadyRunning is returned when starting an already running service.
	ErrAlreadyRunning = errors.New("service already running")

	// ErrInvalidTransformSize is returned for transform sizes that are not powers of two.
	ErrInvalidTransformSize = errors.New("transform size must be a positive power of two")

	// ErrInvalidSmoothing is returned when the smoothing factor leaves [0, 1).
	ErrInvalidSmoothing = errors.New("smoothing factor must be in [0.0, 1.0)")

	// ErrNoSamples is returned when a window query finds no performance samples.
	ErrNoSamples = errors.New("no performance samples recorded")
)

// SourceError represents an error from a frequency source adapter.
// This wraps capture/decoding library errors with additional context.
type SourceError struct {
	Op      string // Operation that failed (e.g., "start", "read", "stop")
	Source  string // Source name (e.g., "mic", "synthetic", "wavfile")
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s.%s failed: %s", e.Source, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new SourceError.
func NewSourceError(op, source, message string, err error) *SourceError {
	return &SourceError{
		Op:      op,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// RenderError represents a failure raised by the render surface during a tick.
// It is caught at the tick boundary so one bad frame never stops the scheduler.
type RenderError struct {
	Op      string // Draw primitive that failed (e.g., "line", "circle", "present")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a new RenderError.
func NewRenderError(op, message string, err error) *RenderError {
	return &RenderError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "VisualizerService", "GovernorService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
