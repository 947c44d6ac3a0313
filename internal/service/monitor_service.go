package service

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// DefaultSampleInterval is the monitoring cadence used when none is given.
// It is independent of the render tick.
const DefaultSampleInterval = time.Second

// MemoryProbe reports the process memory footprint in megabytes.
// The second return value is false when no measurement is available.
type MemoryProbe func() (float64, bool)

// RuntimeMemoryProbe reads the current heap footprint from the Go runtime.
func RuntimeMemoryProbe() (float64, bool) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return float64(stats.HeapAlloc) / (1024 * 1024), true
}

// MonitorService samples render health once per monitoring interval. Each
// sample carries the instantaneous frame rate since the previous sample, an
// estimated CPU load, the memory footprint, and the cumulative frame
// counters. Samples land in the rolling window repository, pruned by age,
// and are announced on the event bus for the governor and status sinks.
//
// The CPU figure is a throughput proxy: it measures how far the scheduler
// has fallen behind the target frame rate over its total runtime, not real
// CPU time. When the memory probe reports no measurement the last known
// value is carried forward, never a fabricated one.
type MonitorService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	scheduler  *SchedulerService
	repository ports.SampleRepository
	bus        ports.EventBus
	probe      MemoryProbe

	// Sampling parameters
	targets  domain.PerformanceTargets
	interval time.Duration

	// State between samples
	lastTotal    uint64
	lastSampleAt time.Time
	lastMemoryMB float64

	// Concurrency control
	mu            sync.Mutex
	sampleRunning bool
	stopSample    chan struct{}
	sampleWg      sync.WaitGroup
}

// NewMonitorService creates a monitor and immediately starts sampling.
// An interval of zero or less falls back to DefaultSampleInterval; a nil
// probe means memory is never measured and MemoryMB stays at its last
// known value (zero initially).
func NewMonitorService(
	logger *slog.Logger,
	scheduler *SchedulerService,
	repository ports.SampleRepository,
	bus ports.EventBus,
	targets domain.PerformanceTargets,
	interval time.Duration,
	probe MemoryProbe,
) *MonitorService {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if targets.TargetFPS <= 0 {
		targets.TargetFPS = domain.DefaultPerformanceTargets().TargetFPS
	}

	service := &MonitorService{
		logger:       logger,
		scheduler:    scheduler,
		repository:   repository,
		bus:          bus,
		probe:        probe,
		targets:      targets,
		interval:     interval,
		lastSampleAt: time.Now(),
		stopSample:   make(chan struct{}),
	}

	logger.Debug("performance monitor initialized",
		slog.Duration("interval", interval),
		slog.Duration("window", targets.MonitoringWindow))

	// Start sample routine
	service.startSampleRoutine()

	return service
}

// Sample takes one measurement immediately, stores it, and publishes it.
// The background routine calls this once per interval; tests may call it
// directly with a controlled clock.
func (s *MonitorService) Sample(now time.Time) domain.PerformanceSample {
	total, dropped := s.scheduler.FrameStats()

	s.mu.Lock()
	elapsed := now.Sub(s.lastSampleAt)
	frames := total - s.lastTotal
	s.lastTotal = total
	s.lastSampleAt = now
	s.mu.Unlock()

	fps := 0.0
	if elapsed > 0 {
		fps = float64(frames) / elapsed.Seconds()
	}

	sample := domain.PerformanceSample{
		Timestamp:     now,
		FPS:           fps,
		CPUPercent:    s.estimateCPU(now, total),
		MemoryMB:      s.readMemory(),
		DroppedFrames: dropped,
		TotalFrames:   total,
	}

	if err := s.repository.Append(sample); err != nil {
		s.logger.Warn("failed to store performance sample", slog.Any("error", err))
		return sample
	}

	if s.targets.MonitoringWindow > 0 {
		s.repository.PruneOlderThan(now.Add(-s.targets.MonitoringWindow))
	}

	s.bus.Publish(domain.NewSampleRecordedEvent(sample))

	return sample
}

// estimateCPU derives the CPU load proxy from frame throughput since the
// scheduler started: the further the frame count falls behind the count
// expected at the target rate, the busier the host is assumed to be.
// Clamped to [0, 100].
func (s *MonitorService) estimateCPU(now time.Time, totalFrames uint64) float64 {
	elapsed := now.Sub(s.scheduler.StartedAt()).Seconds()
	if elapsed <= 0 {
		return 0
	}

	expected := elapsed * s.targets.TargetFPS
	if expected <= 0 {
		return 0
	}

	estimate := (1 - float64(totalFrames)/expected) * 100
	if estimate < 0 {
		return 0
	}
	if estimate > 100 {
		return 100
	}

	return estimate
}

// readMemory polls the probe, holding the last known value when the probe
// is missing or reports no measurement.
func (s *MonitorService) readMemory() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.probe == nil {
		return s.lastMemoryMB
	}

	mb, ok := s.probe()
	if !ok {
		return s.lastMemoryMB
	}

	s.lastMemoryMB = mb

	return mb
}

// Shutdown stops the sampling routine and waits for it to exit.
func (s *MonitorService) Shutdown() error {
	s.mu.Lock()
	if !s.sampleRunning {
		s.mu.Unlock()
		return nil
	}
	s.sampleRunning = false
	close(s.stopSample)
	s.mu.Unlock()

	// Wait for the sample goroutine to finish
	s.sampleWg.Wait()

	s.logger.Debug("performance monitor stopped")

	return nil
}

// startSampleRoutine starts the goroutine that samples once per interval.
func (s *MonitorService) startSampleRoutine() {
	s.mu.Lock()
	if s.sampleRunning {
		s.mu.Unlock()
		return
	}
	s.sampleRunning = true
	s.sampleWg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.sampleWg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopSample:
				return

			case now := <-ticker.C:
				s.Sample(now)
			}
		}
	}()
}

// Verify that MonitorService implements the expected interface patterns
var _ interface {
	Sample(time.Time) domain.PerformanceSample
	Shutdown() error
} = (*MonitorService)(nil)
