// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the Pulsar visualizer.
package domain

import (
	"math"
	"time"
)

// VisualizerConfig holds the tunable rendering and aggregation parameters.
// It is owned by the visualizer service; the performance governor and the
// external configuration surface are the only writers.
type VisualizerConfig struct {
	// SegmentCount is the number of logical output channels rendered as rays
	SegmentCount int

	// SmoothingFactor is the EMA retention of the previous amplitude (0.0 to 1.0, exclusive)
	SmoothingFactor float64

	// TransformSize is the frequency transform length (power of two);
	// the frequency source yields TransformSize/2 bins
	TransformSize int

	// StrokeWeight is the base line weight used when drawing rays
	StrokeWeight float64

	// RotationSpeed is the per-tick rotation increment in radians
	RotationSpeed float64
}

// DefaultVisualizerConfig returns the full-fidelity (tier 0) configuration.
func DefaultVisualizerConfig() VisualizerConfig {
	return VisualizerConfig{
		SegmentCount:    64,
		SmoothingFactor: 0.85,
		TransformSize:   1024,
		StrokeWeight:    2,
		RotationSpeed:   0.005,
	}
}

// BinCount returns the number of frequency bins the source yields for this config.
func (c VisualizerConfig) BinCount() int {
	return c.TransformSize / 2
}

// Validate reports whether the configuration is usable.
// SegmentCount exceeding TransformSize/2 is deliberately not rejected here:
// excess segments silently read zero amplitude instead.
func (c VisualizerConfig) Validate() error {
	if c.SegmentCount <= 0 {
		return NewValidationError("SegmentCount", c.SegmentCount, "must be positive")
	}
	if c.SmoothingFactor < 0 || c.SmoothingFactor >= 1 {
		return NewValidationError("SmoothingFactor", c.SmoothingFactor, "must be in [0.0, 1.0)")
	}
	if c.TransformSize <= 0 || c.TransformSize&(c.TransformSize-1) != 0 {
		return NewValidationError("TransformSize", c.TransformSize, "must be a positive power of two")
	}
	if c.StrokeWeight <= 0 {
		return NewValidationError("StrokeWeight", c.StrokeWeight, "must be positive")
	}
	return nil
}

// VisualizationState represents the current mode of the visualizer.
type VisualizationState int

const (
	// StateIdle indicates no source is connected; the idle pulse renders
	StateIdle VisualizationState = iota

	// StateActive indicates a connected source drives the radial waveform
	StateActive

	// StateError indicates a reported failure; a static alert renders
	StateError
)

// String returns a human-readable representation of the visualization state.
func (s VisualizationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// PerformanceSample captures one monitoring-tick observation of render health.
type PerformanceSample struct {
	// Timestamp is when the sample was taken
	Timestamp time.Time

	// FPS is the instantaneous frame rate measured since the previous sample
	FPS float64

	// CPUPercent estimates CPU load from frame throughput against the target
	// rate over total elapsed time. It is a proxy, not a real CPU measurement.
	CPUPercent float64

	// MemoryMB is the measured heap footprint in megabytes. When the memory
	// facility is unavailable this holds the last known value.
	MemoryMB float64

	// DroppedFrames is the cumulative dropped-frame count since start
	DroppedFrames uint64

	// TotalFrames is the cumulative rendered-frame count since start
	TotalFrames uint64
}

// DroppedRatio returns the cumulative dropped-frame ratio, or 0 before any frames.
func (s PerformanceSample) DroppedRatio() float64 {
	if s.TotalFrames == 0 {
		return 0
	}
	return float64(s.DroppedFrames) / float64(s.TotalFrames)
}

// OptimizationTier is a discrete fidelity-reduction level.
// Tier 0 is full fidelity, tier 3 the maximum reduction.
type OptimizationTier int

const (
	// TierFull renders at the configured baseline fidelity
	TierFull OptimizationTier = 0

	// TierMax is the heaviest fidelity reduction
	TierMax OptimizationTier = 3
)

// Clamp bounds the tier to the valid range [TierFull, TierMax].
func (t OptimizationTier) Clamp() OptimizationTier {
	if t < TierFull {
		return TierFull
	}
	if t > TierMax {
		return TierMax
	}
	return t
}

// Apply derives the configuration for this tier from the tier-0 baseline.
// The result is a pure function of (tier, baseline): every call recomputes
// from the baseline so repeated application is idempotent.
func (t OptimizationTier) Apply(baseline VisualizerConfig) VisualizerConfig {
	cfg := baseline
	if t >= 1 {
		cfg.SegmentCount = minInt(cfg.SegmentCount, 48)
		cfg.SmoothingFactor = math.Max(cfg.SmoothingFactor, 0.90)
	}
	if t >= 2 {
		cfg.TransformSize = minInt(cfg.TransformSize, 512)
	}
	if t >= 3 {
		cfg.TransformSize = minInt(cfg.TransformSize, 256)
		cfg.StrokeWeight = math.Max(cfg.StrokeWeight, 1)
	}
	return cfg
}

// PerformanceTargets are the budget bounds the governor holds the renderer to.
type PerformanceTargets struct {
	// TargetFPS is the frame rate the scheduler aims for
	TargetFPS float64

	// MinFPS is the lowest average frame rate considered healthy
	MinFPS float64

	// MaxCPUPercent is the highest estimated CPU load considered healthy
	MaxCPUPercent float64

	// MaxMemoryMB is the highest memory footprint considered healthy
	MaxMemoryMB float64

	// MonitoringWindow bounds the rolling sample window by age
	MonitoringWindow time.Duration
}

// DefaultPerformanceTargets returns the stock performance budget.
func DefaultPerformanceTargets() PerformanceTargets {
	return PerformanceTargets{
		TargetFPS:        60,
		MinFPS:           50,
		MaxCPUPercent:    70,
		MaxMemoryMB:      200,
		MonitoringWindow: 30 * time.Second,
	}
}

// FrameSnapshot is the per-tick view the renderer consumes. It is assembled
// once per tick so config mutation between ticks can never tear a frame.
type FrameSnapshot struct {
	// State selects the render routine (idle pulse, active rays, error mark)
	State VisualizationState

	// ErrorMessage is the stored failure reason shown in the error state
	ErrorMessage string

	// Config is the configuration in force for this frame
	Config VisualizerConfig

	// Amplitudes are the smoothed per-segment values, each in [0, 1]
	Amplitudes []float64

	// Rotation is the accumulated rotation angle in radians (unbounded)
	Rotation float64

	// Now is the wall-clock instant of the tick; drives the idle pulse
	Now time.Time
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
