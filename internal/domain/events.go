// Package domain defines events for the event-driven architecture.
// Events replace direct callbacks and keep the status sinks decoupled from
// the services that produce state.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Visualizer state events
	EventStateChanged     EventType = "visualizer.state_changed"
	EventConfigOverridden EventType = "visualizer.config_overridden"

	// Frequency source events
	EventSourceConnected    EventType = "source.connected"
	EventSourceDisconnected EventType = "source.disconnected"
	EventSourceFailed       EventType = "source.failed"

	// Performance events
	EventSampleRecorded EventType = "monitor.sample_recorded"
	EventTierChanged    EventType = "governor.tier_changed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// StateChangedEvent is published on every visualization state transition.
type StateChangedEvent struct {
	baseEvent
	OldState VisualizationState
	NewState VisualizationState
	Message  string // failure reason when NewState is StateError, empty otherwise
}

// Type returns the event type.
func (e StateChangedEvent) Type() EventType {
	return EventStateChanged
}

// NewStateChangedEvent creates a new StateChangedEvent.
func NewStateChangedEvent(oldState, newState VisualizationState, message string) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(),
		OldState:  oldState,
		NewState:  newState,
		Message:   message,
	}
}

// ConfigOverriddenEvent is published when an external override replaces the
// tier-0 baseline configuration.
type ConfigOverriddenEvent struct {
	baseEvent
	Config VisualizerConfig
}

// Type returns the event type.
func (e ConfigOverriddenEvent) Type() EventType {
	return EventConfigOverridden
}

// NewConfigOverriddenEvent creates a new ConfigOverriddenEvent.
func NewConfigOverriddenEvent(config VisualizerConfig) ConfigOverriddenEvent {
	return ConfigOverriddenEvent{
		baseEvent: newBaseEvent(),
		Config:    config,
	}
}

// SourceConnectedEvent is published when a frequency source connects.
type SourceConnectedEvent struct {
	baseEvent
	SourceName string
}

// Type returns the event type.
func (e SourceConnectedEvent) Type() EventType {
	return EventSourceConnected
}

// NewSourceConnectedEvent creates a new SourceConnectedEvent.
func NewSourceConnectedEvent(sourceName string) SourceConnectedEvent {
	return SourceConnectedEvent{
		baseEvent:  newBaseEvent(),
		SourceName: sourceName,
	}
}

// SourceDisconnectedEvent is published when the frequency source is released.
type SourceDisconnectedEvent struct {
	baseEvent
	SourceName string
}

// Type returns the event type.
func (e SourceDisconnectedEvent) Type() EventType {
	return EventSourceDisconnected
}

// NewSourceDisconnectedEvent creates a new SourceDisconnectedEvent.
func NewSourceDisconnectedEvent(sourceName string) SourceDisconnectedEvent {
	return SourceDisconnectedEvent{
		baseEvent:  newBaseEvent(),
		SourceName: sourceName,
	}
}

// SourceFailedEvent is published when frequency source acquisition fails.
type SourceFailedEvent struct {
	baseEvent
	SourceName string
	Reason     string
	Err        error
}

// Type returns the event type.
func (e SourceFailedEvent) Type() EventType {
	return EventSourceFailed
}

// NewSourceFailedEvent creates a new SourceFailedEvent.
func NewSourceFailedEvent(sourceName, reason string, err error) SourceFailedEvent {
	return SourceFailedEvent{
		baseEvent:  newBaseEvent(),
		SourceName: sourceName,
		Reason:     reason,
		Err:        err,
	}
}

// SampleRecordedEvent is published once per monitoring tick with the sample
// just appended to the rolling window.
type SampleRecordedEvent struct {
	baseEvent
	Sample PerformanceSample
}

// Type returns the event type.
func (e SampleRecordedEvent) Type() EventType {
	return EventSampleRecorded
}

// NewSampleRecordedEvent creates a new SampleRecordedEvent.
func NewSampleRecordedEvent(sample PerformanceSample) SampleRecordedEvent {
	return SampleRecordedEvent{
		baseEvent: newBaseEvent(),
		Sample:    sample,
	}
}

// TierChangedEvent is published on every optimization tier transition together
// with the configuration derived from the tier-0 baseline.
type TierChangedEvent struct {
	baseEvent
	OldTier       OptimizationTier
	NewTier       OptimizationTier
	AppliedConfig VisualizerConfig
}

// Type returns the event type.
func (e TierChangedEvent) Type() EventType {
	return EventTierChanged
}

// NewTierChangedEvent creates a new TierChangedEvent.
func NewTierChangedEvent(oldTier, newTier OptimizationTier, applied VisualizerConfig) TierChangedEvent {
	return TierChangedEvent{
		baseEvent:     newBaseEvent(),
		OldTier:       oldTier,
		NewTier:       newTier,
		AppliedConfig: applied,
	}
}
