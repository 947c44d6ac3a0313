package service

import (
	"log/slog"
	"sync"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

const (
	// minSamplesForEvaluation is how many samples must exist before the
	// governor starts judging degradation at all.
	minSamplesForEvaluation = 5

	// evaluationSampleCount is how many recent samples the rolling
	// averages cover.
	evaluationSampleCount = 10

	// maxDroppedRatio is the cumulative dropped-frame ratio above which
	// the render loop counts as degraded.
	maxDroppedRatio = 0.1
)

// GovernorService is the closed-loop performance controller. It listens for
// every recorded sample, judges whether rendering is degraded, and moves the
// optimization tier one step at a time between 0 (full fidelity) and 3
// (maximum reduction). Each tier transition derives a fresh configuration
// from the stored tier-0 baseline and installs it on the visualizer.
//
// The baseline is captured lazily: the configuration in force at the moment
// of the first step away from tier 0 becomes the restoration target. An
// external config override replaces the baseline verbatim.
//
// Hysteresis is implicit. Improvement unwinds one tier per evaluation, so
// oscillation near a threshold is damped but not eliminated; no extra
// deadband or cooldown is applied.
type GovernorService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	visualizer *VisualizerService
	repository ports.SampleRepository
	bus        ports.EventBus

	// Evaluation bounds
	targets domain.PerformanceTargets

	// State
	tier             domain.OptimizationTier
	baseline         domain.VisualizerConfig
	baselineCaptured bool

	// Concurrency control
	mu sync.Mutex

	// Event subscriptions
	sampleSub   domain.SubscriptionID
	overrideSub domain.SubscriptionID
}

// NewGovernorService creates a governor starting at tier 0 and subscribes it
// to the sample and override events.
func NewGovernorService(
	logger *slog.Logger,
	visualizer *VisualizerService,
	repository ports.SampleRepository,
	bus ports.EventBus,
	targets domain.PerformanceTargets,
) *GovernorService {
	service := &GovernorService{
		logger:     logger,
		visualizer: visualizer,
		repository: repository,
		bus:        bus,
		targets:    targets,
		tier:       domain.TierFull,
	}

	// Evaluate on every recorded sample; track baseline replacement
	service.sampleSub = bus.Subscribe(domain.EventSampleRecorded, service.handleSampleRecorded)
	service.overrideSub = bus.Subscribe(domain.EventConfigOverridden, service.handleConfigOverridden)

	logger.Debug("performance governor initialized",
		slog.Float64("min_fps", targets.MinFPS),
		slog.Float64("max_cpu_percent", targets.MaxCPUPercent),
		slog.Float64("max_memory_mb", targets.MaxMemoryMB))

	return service
}

// Tier returns the current optimization tier.
func (g *GovernorService) Tier() domain.OptimizationTier {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.tier
}

// Baseline returns the stored tier-0 configuration and whether it has been
// captured yet.
func (g *GovernorService) Baseline() (domain.VisualizerConfig, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.baseline, g.baselineCaptured
}

// Evaluate judges the rolling window against the performance targets and
// moves the tier by at most one step. The event handler calls this on every
// recorded sample; tests may call it directly.
func (g *GovernorService) Evaluate(latest domain.PerformanceSample) {
	if g.repository.Len() < minSamplesForEvaluation {
		return
	}

	recent, err := g.repository.Recent(evaluationSampleCount)
	if err != nil || len(recent) == 0 {
		return
	}

	var sumFPS, sumCPU, sumMem float64
	for _, sample := range recent {
		sumFPS += sample.FPS
		sumCPU += sample.CPUPercent
		sumMem += sample.MemoryMB
	}
	n := float64(len(recent))
	avgFPS := sumFPS / n
	avgCPU := sumCPU / n
	avgMem := sumMem / n

	// The dropped ratio is cumulative since start, not windowed
	droppedRatio := latest.DroppedRatio()

	degraded := avgFPS < g.targets.MinFPS ||
		avgCPU > g.targets.MaxCPUPercent ||
		avgMem > g.targets.MaxMemoryMB ||
		droppedRatio > maxDroppedRatio

	g.mu.Lock()
	oldTier := g.tier
	newTier := oldTier
	if degraded && oldTier < domain.TierMax {
		newTier = (oldTier + 1).Clamp()
	} else if !degraded && oldTier > domain.TierFull {
		newTier = (oldTier - 1).Clamp()
	}

	if newTier == oldTier {
		g.mu.Unlock()
		return
	}

	if !g.baselineCaptured {
		// First step away from full fidelity: the config in force right
		// now becomes the restoration target
		g.baseline = g.visualizer.Config()
		g.baselineCaptured = true
	}
	baseline := g.baseline
	g.tier = newTier
	g.mu.Unlock()

	applied := newTier.Apply(baseline)
	g.visualizer.ApplyTierConfig(applied)

	g.logger.Info("optimization tier changed",
		slog.Int("old_tier", int(oldTier)),
		slog.Int("new_tier", int(newTier)),
		slog.Float64("avg_fps", avgFPS),
		slog.Float64("avg_cpu_percent", avgCPU),
		slog.Float64("avg_memory_mb", avgMem),
		slog.Float64("dropped_ratio", droppedRatio))

	g.bus.Publish(domain.NewTierChangedEvent(oldTier, newTier, applied))
}

// handleSampleRecorded evaluates the window on every recorded sample.
func (g *GovernorService) handleSampleRecorded(event domain.Event) {
	e, ok := event.(domain.SampleRecordedEvent)
	if !ok {
		return
	}

	g.Evaluate(e.Sample)
}

// handleConfigOverridden replaces the stored baseline verbatim. The tier is
// left where it is; the next transition recomputes from the new baseline.
func (g *GovernorService) handleConfigOverridden(event domain.Event) {
	e, ok := event.(domain.ConfigOverriddenEvent)
	if !ok {
		return
	}

	g.mu.Lock()
	g.baseline = e.Config
	g.baselineCaptured = true
	g.mu.Unlock()

	g.logger.Debug("baseline configuration replaced by override")
}

// Shutdown detaches the governor from the event bus.
func (g *GovernorService) Shutdown() error {
	g.bus.Unsubscribe(g.sampleSub)
	g.bus.Unsubscribe(g.overrideSub)

	g.logger.Debug("performance governor stopped")

	return nil
}

// Verify that GovernorService implements the expected interface patterns
var _ interface {
	Tier() domain.OptimizationTier
	Baseline() (domain.VisualizerConfig, bool)
	Evaluate(domain.PerformanceSample)
	Shutdown() error
} = (*GovernorService)(nil)
