package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarviz/pulsar/internal/adapter/eventbus"
	"github.com/pulsarviz/pulsar/internal/adapter/repository/memory"
	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/logger"
)

// Helper to create a governor over a fresh visualizer, repository, and bus
func newTestGovernor(t *testing.T) (*GovernorService, *VisualizerService, *memory.SampleRepository, *eventbus.SyncEventBus) {
	t.Helper()

	bus := eventbus.NewSyncEventBus(nil)
	visualizer, err := NewVisualizerService(logger.NewTestLogger(), bus, domain.DefaultVisualizerConfig())
	require.NoError(t, err)

	repo := memory.NewSampleRepository(0)
	governor := NewGovernorService(logger.NewTestLogger(), visualizer, repo, bus, domain.DefaultPerformanceTargets())

	return governor, visualizer, repo, bus
}

// Helper to fill the repository with identical samples
func seedSamples(t *testing.T, repo *memory.SampleRepository, count int, sample domain.PerformanceSample) {
	t.Helper()

	base := time.Now()
	for i := 0; i < count; i++ {
		sample.Timestamp = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Append(sample))
	}
}

func healthySample() domain.PerformanceSample {
	return domain.PerformanceSample{
		FPS:         60,
		CPUPercent:  20,
		MemoryMB:    80,
		TotalFrames: 1000,
	}
}

func degradedSample() domain.PerformanceSample {
	sample := healthySample()
	sample.FPS = 30
	return sample
}

func TestGovernorService_HoldsTierZeroWhenHealthy(t *testing.T) {
	governor, _, repo, bus := newTestGovernor(t)
	defer governor.Shutdown()

	events := 0
	bus.Subscribe(domain.EventTierChanged, func(domain.Event) {
		events++
	})

	seedSamples(t, repo, 10, healthySample())
	governor.Evaluate(healthySample())

	assert.Equal(t, domain.TierFull, governor.Tier())
	assert.Zero(t, events)

	_, captured := governor.Baseline()
	assert.False(t, captured, "a healthy run should never capture a baseline")
}

func TestGovernorService_RequiresMinimumSamples(t *testing.T) {
	governor, _, repo, _ := newTestGovernor(t)
	defer governor.Shutdown()

	seedSamples(t, repo, 4, degradedSample())
	governor.Evaluate(degradedSample())

	assert.Equal(t, domain.TierFull, governor.Tier(), "four samples are too few to judge")
}

func TestGovernorService_EscalatesOneTierPerEvaluation(t *testing.T) {
	governor, visualizer, repo, bus := newTestGovernor(t)
	defer governor.Shutdown()

	var transitions []domain.TierChangedEvent
	bus.Subscribe(domain.EventTierChanged, func(event domain.Event) {
		if e, ok := event.(domain.TierChangedEvent); ok {
			transitions = append(transitions, e)
		}
	})

	// Sustained low frame rate across the whole window
	seedSamples(t, repo, 10, degradedSample())

	// Five degraded evaluations: escalate on the first three, hold after
	for i := 0; i < 5; i++ {
		governor.Evaluate(degradedSample())
	}

	assert.Equal(t, domain.TierMax, governor.Tier())
	require.Len(t, transitions, 3)
	assert.Equal(t, domain.TierFull, transitions[0].OldTier)
	assert.Equal(t, domain.OptimizationTier(1), transitions[0].NewTier)
	assert.Equal(t, domain.OptimizationTier(1), transitions[1].OldTier)
	assert.Equal(t, domain.OptimizationTier(2), transitions[1].NewTier)
	assert.Equal(t, domain.OptimizationTier(2), transitions[2].OldTier)
	assert.Equal(t, domain.TierMax, transitions[2].NewTier)

	// Tier 3 config derived from the default baseline
	expected := domain.TierMax.Apply(domain.DefaultVisualizerConfig())
	assert.Equal(t, expected, visualizer.Config())
	assert.Equal(t, 48, expected.SegmentCount)
	assert.Equal(t, 256, expected.TransformSize)
	assert.Equal(t, 0.90, expected.SmoothingFactor)
}

func TestGovernorService_NeverSkipsTiers(t *testing.T) {
	governor, _, repo, _ := newTestGovernor(t)
	defer governor.Shutdown()

	// Extreme degradation on every axis at once still moves one step
	extreme := domain.PerformanceSample{
		FPS:           1,
		CPUPercent:    100,
		MemoryMB:      999,
		DroppedFrames: 900,
		TotalFrames:   1000,
	}
	seedSamples(t, repo, 10, extreme)
	governor.Evaluate(extreme)

	assert.Equal(t, domain.OptimizationTier(1), governor.Tier())
}

func TestGovernorService_BaselineCapturedOnFirstDeviation(t *testing.T) {
	governor, _, repo, _ := newTestGovernor(t)
	defer governor.Shutdown()

	_, captured := governor.Baseline()
	require.False(t, captured)

	seedSamples(t, repo, 10, degradedSample())
	governor.Evaluate(degradedSample())

	baseline, captured := governor.Baseline()
	require.True(t, captured)
	assert.Equal(t, domain.DefaultVisualizerConfig(), baseline)
}

func TestGovernorService_RecoveryRestoresBaseline(t *testing.T) {
	governor, visualizer, repo, _ := newTestGovernor(t)
	defer governor.Shutdown()

	// Escalate all the way up
	seedSamples(t, repo, 10, degradedSample())
	for i := 0; i < 3; i++ {
		governor.Evaluate(degradedSample())
	}
	require.Equal(t, domain.TierMax, governor.Tier())

	// Load clears: unwind one tier per evaluation back to full fidelity
	require.NoError(t, repo.Clear())
	seedSamples(t, repo, 10, healthySample())

	governor.Evaluate(healthySample())
	assert.Equal(t, domain.OptimizationTier(2), governor.Tier())

	governor.Evaluate(healthySample())
	assert.Equal(t, domain.OptimizationTier(1), governor.Tier())

	governor.Evaluate(healthySample())
	assert.Equal(t, domain.TierFull, governor.Tier())

	// Tier 0 restores the captured baseline exactly
	assert.Equal(t, domain.DefaultVisualizerConfig(), visualizer.Config())
}

func TestGovernorService_HighCPUTriggersEscalation(t *testing.T) {
	governor, _, repo, _ := newTestGovernor(t)
	defer governor.Shutdown()

	sample := healthySample()
	sample.CPUPercent = 90
	seedSamples(t, repo, 10, sample)
	governor.Evaluate(sample)

	assert.Equal(t, domain.OptimizationTier(1), governor.Tier())
}

func TestGovernorService_HighMemoryTriggersEscalation(t *testing.T) {
	governor, _, repo, _ := newTestGovernor(t)
	defer governor.Shutdown()

	sample := healthySample()
	sample.MemoryMB = 300
	seedSamples(t, repo, 10, sample)
	governor.Evaluate(sample)

	assert.Equal(t, domain.OptimizationTier(1), governor.Tier())
}

func TestGovernorService_DroppedRatioTriggersEscalation(t *testing.T) {
	governor, _, repo, _ := newTestGovernor(t)
	defer governor.Shutdown()

	// The window looks healthy; the latest sample's cumulative dropped
	// ratio alone crosses the threshold
	seedSamples(t, repo, 10, healthySample())

	latest := healthySample()
	latest.DroppedFrames = 200
	latest.TotalFrames = 1000
	governor.Evaluate(latest)

	assert.Equal(t, domain.OptimizationTier(1), governor.Tier())
}

func TestGovernorService_EventCarriesAppliedConfig(t *testing.T) {
	governor, visualizer, repo, bus := newTestGovernor(t)
	defer governor.Shutdown()

	var transition domain.TierChangedEvent
	bus.Subscribe(domain.EventTierChanged, func(event domain.Event) {
		if e, ok := event.(domain.TierChangedEvent); ok {
			transition = e
		}
	})

	seedSamples(t, repo, 10, degradedSample())
	governor.Evaluate(degradedSample())

	assert.Equal(t, visualizer.Config(), transition.AppliedConfig)
	assert.Equal(t, 48, transition.AppliedConfig.SegmentCount)
}

func TestGovernorService_OverrideReplacesBaseline(t *testing.T) {
	governor, visualizer, repo, _ := newTestGovernor(t)
	defer governor.Shutdown()

	// Escalate once so the default baseline is captured
	seedSamples(t, repo, 10, degradedSample())
	governor.Evaluate(degradedSample())
	require.Equal(t, domain.OptimizationTier(1), governor.Tier())

	// An external override replaces the stored baseline verbatim and
	// leaves the tier where it is
	override := domain.VisualizerConfig{
		SegmentCount:    32,
		SmoothingFactor: 0.5,
		TransformSize:   512,
		StrokeWeight:    4,
		RotationSpeed:   0.01,
	}
	require.NoError(t, visualizer.OverrideConfig(override))

	assert.Equal(t, domain.OptimizationTier(1), governor.Tier())
	baseline, captured := governor.Baseline()
	require.True(t, captured)
	assert.Equal(t, override, baseline)

	// The next transition derives from the new baseline
	governor.Evaluate(degradedSample())
	require.Equal(t, domain.OptimizationTier(2), governor.Tier())
	assert.Equal(t, domain.OptimizationTier(2).Apply(override), visualizer.Config())
}

func TestGovernorService_EvaluatesOnSampleEvents(t *testing.T) {
	governor, _, repo, bus := newTestGovernor(t)
	defer governor.Shutdown()

	seedSamples(t, repo, 10, degradedSample())
	bus.Publish(domain.NewSampleRecordedEvent(degradedSample()))

	assert.Equal(t, domain.OptimizationTier(1), governor.Tier())
}

func TestGovernorService_ShutdownDetachesFromBus(t *testing.T) {
	governor, _, repo, bus := newTestGovernor(t)

	require.NoError(t, governor.Shutdown())

	seedSamples(t, repo, 10, degradedSample())
	bus.Publish(domain.NewSampleRecordedEvent(degradedSample()))

	assert.Equal(t, domain.TierFull, governor.Tier(), "a detached governor must not evaluate")
}
