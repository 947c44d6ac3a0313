package service

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// SchedulerService drives the continuous render tick. Each tick it advances
// the rotation angle, asks the visualizer for a frame snapshot, and hands it
// to the renderer. Draw failures are converted into the error state at the
// tick boundary; the loop itself never stops until Shutdown.
//
// The scheduler owns the cumulative frame counters the performance monitor
// reads. Rotation advances by the per-tick speed in the config, so its pace
// follows the actual tick rate rather than wall-clock time.
type SchedulerService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	visualizer *VisualizerService
	renderer   ports.Renderer

	// Tick cadence derived from the target frame rate
	interval  time.Duration
	startTime time.Time

	// Cumulative counters, read by the monitor via FrameStats
	totalFrames   uint64
	droppedFrames uint64

	// Rotation accumulates without wrap-around; only its sine and cosine
	// projections are ever observed
	rotation float64

	// Concurrency control
	mu          sync.Mutex
	tickRunning bool
	stopTick    chan struct{}
	tickWg      sync.WaitGroup
}

// NewSchedulerService creates a scheduler and immediately starts ticking at
// the target frame rate from the performance targets.
func NewSchedulerService(
	logger *slog.Logger,
	visualizer *VisualizerService,
	renderer ports.Renderer,
	targets domain.PerformanceTargets,
) *SchedulerService {
	targetFPS := targets.TargetFPS
	if targetFPS <= 0 {
		targetFPS = domain.DefaultPerformanceTargets().TargetFPS
	}

	service := &SchedulerService{
		logger:     logger,
		visualizer: visualizer,
		renderer:   renderer,
		interval:   time.Duration(float64(time.Second) / targetFPS),
		startTime:  time.Now(),
		stopTick:   make(chan struct{}),
	}

	logger.Debug("render scheduler initialized",
		slog.Duration("interval", service.interval),
		slog.Float64("target_fps", targetFPS))

	// Start tick routine
	service.startTickRoutine()

	return service
}

// FrameStats returns the cumulative rendered and dropped frame counts.
func (s *SchedulerService) FrameStats() (total, dropped uint64) {
	return atomic.LoadUint64(&s.totalFrames), atomic.LoadUint64(&s.droppedFrames)
}

// StartedAt returns when the scheduler began ticking. The monitor measures
// total elapsed time against this instant.
func (s *SchedulerService) StartedAt() time.Time {
	return s.startTime
}

// Interval returns the tick interval derived from the target frame rate.
func (s *SchedulerService) Interval() time.Duration {
	return s.interval
}

// Rotation returns the current accumulated rotation angle in radians.
func (s *SchedulerService) Rotation() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rotation
}

// Shutdown stops the tick routine and waits for the in-flight tick to finish.
// The owning application must shut the scheduler down before releasing the
// frequency source so no tick observes a released source.
func (s *SchedulerService) Shutdown() error {
	s.mu.Lock()
	if !s.tickRunning {
		s.mu.Unlock()
		return nil
	}
	s.tickRunning = false
	close(s.stopTick)
	s.mu.Unlock()

	// Wait for the tick goroutine to finish
	s.tickWg.Wait()

	s.logger.Debug("render scheduler stopped")

	return nil
}

// startTickRoutine starts the goroutine that renders one frame per interval.
func (s *SchedulerService) startTickRoutine() {
	s.mu.Lock()
	if s.tickRunning {
		s.mu.Unlock()
		return
	}
	s.tickRunning = true
	s.tickWg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.tickWg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		last := time.Now()
		for {
			select {
			case <-s.stopTick:
				return

			case now := <-ticker.C:
				// A tick arriving two or more intervals late means whole
				// frames were skipped; count them as dropped
				if missed := int(now.Sub(last)/s.interval) - 1; missed > 0 {
					atomic.AddUint64(&s.droppedFrames, uint64(missed))
				}
				last = now

				s.renderFrame(now)
				atomic.AddUint64(&s.totalFrames, 1)
			}
		}
	}()
}

// renderFrame composes and draws a single frame, then advances the rotation.
func (s *SchedulerService) renderFrame(now time.Time) {
	s.mu.Lock()
	rotation := s.rotation
	s.mu.Unlock()

	snapshot := s.visualizer.Advance(now, rotation)

	s.mu.Lock()
	s.rotation = rotation + snapshot.Config.RotationSpeed
	s.mu.Unlock()

	if err := s.renderer.Draw(snapshot); err != nil {
		// One bad tick becomes a visible error state, not a dead loop
		s.logger.Warn("frame draw failed", slog.Any("error", err))
		s.visualizer.Fail(err.Error())
	}
}

// Verify that SchedulerService implements the expected interface patterns
var _ interface {
	FrameStats() (uint64, uint64)
	StartedAt() time.Time
	Interval() time.Duration
	Rotation() float64
	Shutdown() error
} = (*SchedulerService)(nil)
