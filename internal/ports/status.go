// Package ports define the status sink interface for advisory outputs.
package ports

import (
	"github.com/pulsarviz/pulsar/internal/domain"
)

// StatusSink receives advisory notifications about visualizer health.
// Sinks are consumers only: nothing they do feeds back into the pipeline.
// Implementations subscribe to the event bus and translate events into their
// own medium (log lines, WebSocket frames).
//
// Thread-safety: notifications arrive on the publisher's goroutine; sinks
// must not block it for long.
type StatusSink interface {
	// NotifyState is called on every visualization state transition.
	// message carries the failure reason for error states, empty otherwise.
	NotifyState(state domain.VisualizationState, message string)

	// NotifyTier is called on every optimization tier change together with
	// the configuration derived from the tier-0 baseline.
	NotifyTier(tier domain.OptimizationTier, applied domain.VisualizerConfig)

	// Close detaches the sink and releases its resources.
	Close() error
}
