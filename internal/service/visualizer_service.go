// Package service provides the business logic for the Pulsar visualizer.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pulsarviz/pulsar/internal/analysis"
	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// VisualizerService owns the visualization state machine and the active
// configuration. It connects and releases the frequency source, folds fresh
// bins into segment amplitudes on every active tick, and hands the render
// loop a consistent per-frame snapshot.
//
// State transitions: idle to active on a successful connect, active to idle
// on disconnect, any state to error on a reported failure. The error state
// never clears on its own; only an explicit successful reconnect leaves it.
//
// All operations are thread-safe via sync.RWMutex.
type VisualizerService struct {
	// Dependencies (injected)
	logger *slog.Logger
	bus    ports.EventBus

	// State
	state        domain.VisualizationState
	errorMessage string
	config       domain.VisualizerConfig
	source       ports.FrequencySource
	connecting   bool

	// Aggregation
	aggregator *analysis.SegmentAggregator
	binBuf     []byte

	// Concurrency control
	mu sync.RWMutex
}

// NewVisualizerService creates a visualizer service starting in the idle
// state with the given configuration.
func NewVisualizerService(
	logger *slog.Logger,
	bus ports.EventBus,
	config domain.VisualizerConfig,
) (*VisualizerService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	service := &VisualizerService{
		logger:     logger,
		bus:        bus,
		state:      domain.StateIdle,
		config:     config,
		aggregator: analysis.NewSegmentAggregator(config),
		binBuf:     make([]byte, config.BinCount()),
	}

	logger.Debug("visualizer service initialized",
		slog.Int("segment_count", config.SegmentCount),
		slog.Int("transform_size", config.TransformSize))

	return service, nil
}

// Connect acquires the given frequency source and transitions to active.
// This is the only transition that can fail; on failure the state machine
// lands in error with the failure reason preserved for display, and the
// error is returned to the caller. Retrying is the caller's decision.
//
// While the source is starting, the previous state stays in force so the
// render loop keeps drawing it. A second Connect during that span returns
// ErrAlreadyConnected.
func (s *VisualizerService) Connect(ctx context.Context, source ports.FrequencySource) error {
	if source == nil {
		return domain.ErrSourceUnavailable
	}

	s.mu.Lock()
	if s.connecting {
		s.mu.Unlock()
		return domain.ErrAlreadyConnected
	}
	s.connecting = true
	previous := s.source
	s.source = nil
	transformSize := s.config.TransformSize
	s.mu.Unlock()

	// Release any previous source before handing the stream over
	if previous != nil {
		if err := previous.Stop(); err != nil {
			s.logger.Warn("failed to stop previous source",
				slog.String("source", previous.Name()),
				slog.Any("error", err))
		}
	}

	if err := source.SetTransformSize(transformSize); err != nil {
		s.logger.Warn("source rejected transform size",
			slog.String("source", source.Name()),
			slog.Int("transform_size", transformSize),
			slog.Any("error", err))
	}

	// Start outside the lock: the render tick must keep reading the prior
	// state while acquisition is pending
	err := source.Start(ctx)

	s.mu.Lock()
	s.connecting = false
	oldState := s.state

	if err != nil {
		s.state = domain.StateError
		s.errorMessage = err.Error()
		s.mu.Unlock()

		s.logger.Error("source connection failed",
			slog.String("source", source.Name()),
			slog.Any("error", err))

		s.bus.Publish(domain.NewSourceFailedEvent(source.Name(), err.Error(), err))
		s.bus.Publish(domain.NewStateChangedEvent(oldState, domain.StateError, err.Error()))

		return domain.NewSourceError("Connect", source.Name(), "failed to start source", err)
	}

	s.source = source
	s.state = domain.StateActive
	s.errorMessage = ""
	s.mu.Unlock()

	s.logger.Info("source connected", slog.String("source", source.Name()))

	s.bus.Publish(domain.NewSourceConnectedEvent(source.Name()))
	if oldState != domain.StateActive {
		s.bus.Publish(domain.NewStateChangedEvent(oldState, domain.StateActive, ""))
	}

	return nil
}

// Disconnect releases the frequency source. From active the state returns to
// idle; from error the state is kept, since only a successful reconnect may
// clear an error. Disconnecting with no source connected is a no-op.
func (s *VisualizerService) Disconnect() error {
	s.mu.Lock()
	source := s.source
	s.source = nil

	oldState := s.state
	if s.state == domain.StateActive {
		s.state = domain.StateIdle
	}
	newState := s.state
	s.mu.Unlock()

	if source != nil {
		if err := source.Stop(); err != nil {
			s.logger.Warn("failed to stop source",
				slog.String("source", source.Name()),
				slog.Any("error", err))
		}

		s.logger.Info("source disconnected", slog.String("source", source.Name()))
		s.bus.Publish(domain.NewSourceDisconnectedEvent(source.Name()))
	}

	if oldState != newState {
		s.bus.Publish(domain.NewStateChangedEvent(oldState, newState, ""))
	}

	return nil
}

// Fail forces the error state with the given reason. The render loop calls
// this when a draw fails so one bad tick surfaces on screen instead of
// crashing the scheduler. The source keeps running; a later successful
// reconnect is the only way back out.
func (s *VisualizerService) Fail(reason string) {
	s.mu.Lock()
	oldState := s.state
	s.state = domain.StateError
	s.errorMessage = reason
	s.mu.Unlock()

	if oldState != domain.StateError {
		s.logger.Error("visualizer entered error state", slog.String("reason", reason))
		s.bus.Publish(domain.NewStateChangedEvent(oldState, domain.StateError, reason))
	}
}

// State returns the current visualization state and the stored error message.
// The message is empty unless the state is error.
func (s *VisualizerService) State() (domain.VisualizationState, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state, s.errorMessage
}

// Config returns a snapshot of the configuration currently in force.
func (s *VisualizerService) Config() domain.VisualizerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.config
}

// OverrideConfig replaces the configuration verbatim and announces the
// override. The governor adopts the override as its new tier-0 baseline; the
// current tier is recomputed from it on the next tier transition.
func (s *VisualizerService) OverrideConfig(config domain.VisualizerConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	s.applyConfig(config)

	s.logger.Info("configuration overridden",
		slog.Int("segment_count", config.SegmentCount),
		slog.Int("transform_size", config.TransformSize),
		slog.Float64("smoothing_factor", config.SmoothingFactor))

	s.bus.Publish(domain.NewConfigOverriddenEvent(config))

	return nil
}

// ApplyTierConfig installs a configuration derived by the governor from the
// tier-0 baseline. Unlike OverrideConfig it does not move the baseline; the
// governor announces the change itself via its tier event.
func (s *VisualizerService) ApplyTierConfig(config domain.VisualizerConfig) {
	s.applyConfig(config)

	s.logger.Debug("tier configuration applied",
		slog.Int("segment_count", config.SegmentCount),
		slog.Int("transform_size", config.TransformSize))
}

// applyConfig swaps in a new configuration and pushes the transform size down
// to the connected source, if any.
func (s *VisualizerService) applyConfig(config domain.VisualizerConfig) {
	s.mu.Lock()
	s.config = config
	source := s.source
	s.mu.Unlock()

	if source != nil {
		if err := source.SetTransformSize(config.TransformSize); err != nil {
			s.logger.Warn("source rejected transform size",
				slog.String("source", source.Name()),
				slog.Int("transform_size", config.TransformSize),
				slog.Any("error", err))
		}
	}
}

// Advance runs one visualization step and returns the snapshot the renderer
// draws. When active it pulls the latest bins from the source and folds them
// into the amplitude buffer; in idle and error states the previous amplitudes
// persist so re-activation does not flash from zero.
//
// Advance must only be called from the render loop; the bin buffer is reused
// across ticks without locking.
func (s *VisualizerService) Advance(now time.Time, rotation float64) domain.FrameSnapshot {
	s.mu.RLock()
	state := s.state
	message := s.errorMessage
	config := s.config
	source := s.source
	s.mu.RUnlock()

	var amplitudes []float64
	if state == domain.StateActive && source != nil {
		want := config.BinCount()
		if len(s.binBuf) != want {
			s.binBuf = make([]byte, want)
		}
		n := source.ReadBins(s.binBuf)
		amplitudes = s.aggregator.Aggregate(s.binBuf[:n], config)
	} else {
		amplitudes = s.aggregator.Amplitudes()
	}

	return domain.FrameSnapshot{
		State:        state,
		ErrorMessage: message,
		Config:       config,
		Amplitudes:   amplitudes,
		Rotation:     rotation,
		Now:          now,
	}
}

// Shutdown releases the frequency source. The owning application must stop
// the render and monitor loops first so no tick observes a released source.
func (s *VisualizerService) Shutdown() error {
	s.mu.Lock()
	source := s.source
	s.source = nil
	s.mu.Unlock()

	if source == nil {
		return nil
	}

	if err := source.Stop(); err != nil {
		return domain.NewSourceError("Shutdown", source.Name(), "failed to stop source", err)
	}

	s.logger.Debug("visualizer service shut down")

	return nil
}

// Verify that VisualizerService implements the expected interface patterns
var _ interface {
	Connect(context.Context, ports.FrequencySource) error
	Disconnect() error
	Fail(string)
	State() (domain.VisualizationState, string)
	Config() domain.VisualizerConfig
	OverrideConfig(domain.VisualizerConfig) error
	ApplyTierConfig(domain.VisualizerConfig)
	Advance(time.Time, float64) domain.FrameSnapshot
	Shutdown() error
} = (*VisualizerService)(nil)
