// Package console logs visualizer status transitions.
// It is the terminal counterpart of the WebSocket status console: the same
// advisory feed, rendered as structured log lines.
package console

import (
	"log/slog"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// Sink implements ports.StatusSink over the structured logger. It subscribes
// itself to the event bus on construction; Close detaches it.
type Sink struct {
	// Dependencies (injected)
	logger *slog.Logger
	bus    ports.EventBus

	// Event subscriptions
	stateSub domain.SubscriptionID
	tierSub  domain.SubscriptionID
}

// NewSink creates a console sink and subscribes it to state and tier events.
func NewSink(logger *slog.Logger, bus ports.EventBus) *Sink {
	sink := &Sink{
		logger: logger,
		bus:    bus,
	}

	sink.stateSub = bus.Subscribe(domain.EventStateChanged, sink.handleStateChanged)
	sink.tierSub = bus.Subscribe(domain.EventTierChanged, sink.handleTierChanged)

	return sink
}

// NotifyState logs a visualization state transition.
func (s *Sink) NotifyState(state domain.VisualizationState, message string) {
	if message != "" {
		s.logger.Warn("visualization state changed",
			slog.String("state", state.String()),
			slog.String("message", message))
		return
	}

	s.logger.Info("visualization state changed",
		slog.String("state", state.String()))
}

// NotifyTier logs an optimization tier change with the applied configuration.
func (s *Sink) NotifyTier(tier domain.OptimizationTier, applied domain.VisualizerConfig) {
	s.logger.Info("optimization tier applied",
		slog.Int("tier", int(tier)),
		slog.Int("segment_count", applied.SegmentCount),
		slog.Int("transform_size", applied.TransformSize),
		slog.Float64("smoothing_factor", applied.SmoothingFactor),
		slog.Float64("stroke_weight", applied.StrokeWeight))
}

// Close detaches the sink from the event bus.
func (s *Sink) Close() error {
	s.bus.Unsubscribe(s.stateSub)
	s.bus.Unsubscribe(s.tierSub)

	return nil
}

// handleStateChanged translates a state event into a log line.
func (s *Sink) handleStateChanged(event domain.Event) {
	e, ok := event.(domain.StateChangedEvent)
	if !ok {
		return
	}

	s.NotifyState(e.NewState, e.Message)
}

// handleTierChanged translates a tier event into a log line.
func (s *Sink) handleTierChanged(event domain.Event) {
	e, ok := event.(domain.TierChangedEvent)
	if !ok {
		return
	}

	s.NotifyTier(e.NewTier, e.AppliedConfig)
}

// Verify interface implementation
var _ ports.StatusSink = (*Sink)(nil)
