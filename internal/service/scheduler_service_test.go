package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarviz/pulsar/internal/adapter/eventbus"
	"github.com/pulsarviz/pulsar/internal/adapter/source/mock"
	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/logger"
	"github.com/pulsarviz/pulsar/internal/testutil"
)

// stubRenderer counts draws, remembers the last snapshot, and can be told
// to fail or to stall.
type stubRenderer struct {
	mu       sync.Mutex
	draws    int
	fail     bool
	delay    time.Duration
	snapshot domain.FrameSnapshot
}

func (r *stubRenderer) Draw(snapshot domain.FrameSnapshot) error {
	r.mu.Lock()
	r.draws++
	r.snapshot = snapshot
	fail := r.fail
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return domain.NewRenderError("present", "stub draw failure", nil)
	}
	return nil
}

func (r *stubRenderer) Draws() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draws
}

func (r *stubRenderer) SetFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *stubRenderer) SetDelay(delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = delay
}

func (r *stubRenderer) LastSnapshot() domain.FrameSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// Helper to create a scheduler ticking at the given rate over a fresh
// visualizer and stub renderer
func newTestScheduler(t *testing.T, targetFPS float64) (*SchedulerService, *VisualizerService, *stubRenderer) {
	t.Helper()

	cfg := domain.DefaultVisualizerConfig()
	cfg.TransformSize = 128
	cfg.SegmentCount = 8

	bus := eventbus.NewSyncEventBus(nil)
	visualizer, err := NewVisualizerService(logger.NewTestLogger(), bus, cfg)
	require.NoError(t, err)

	targets := domain.DefaultPerformanceTargets()
	targets.TargetFPS = targetFPS

	renderer := &stubRenderer{}
	scheduler := NewSchedulerService(logger.NewTestLogger(), visualizer, renderer, targets)

	return scheduler, visualizer, renderer
}

func TestSchedulerService_TicksAndCountsFrames(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	scheduler, _, renderer := newTestScheduler(t, 200)
	defer scheduler.Shutdown()

	require.Eventually(t, func() bool {
		total, _ := scheduler.FrameStats()
		return total >= 5
	}, time.Second, time.Millisecond, "scheduler should tick continuously")

	assert.GreaterOrEqual(t, renderer.Draws(), 5)
}

func TestSchedulerService_RotationTracksFrameCount(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	scheduler, _, _ := newTestScheduler(t, 200)

	require.Eventually(t, func() bool {
		total, _ := scheduler.FrameStats()
		return total >= 5
	}, time.Second, time.Millisecond)

	// After shutdown the counters are frozen: rotation advanced exactly
	// once per tick by the configured per-tick speed
	require.NoError(t, scheduler.Shutdown())

	total, _ := scheduler.FrameStats()
	speed := domain.DefaultVisualizerConfig().RotationSpeed
	assert.InDelta(t, float64(total)*speed, scheduler.Rotation(), 1e-9)
}

func TestSchedulerService_SnapshotReachesRenderer(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	scheduler, visualizer, renderer := newTestScheduler(t, 200)
	defer scheduler.Shutdown()

	source := mock.NewSource(128)
	source.FillBins(255)
	require.NoError(t, visualizer.Connect(context.Background(), source))

	require.Eventually(t, func() bool {
		snapshot := renderer.LastSnapshot()
		return snapshot.State == domain.StateActive && len(snapshot.Amplitudes) == 8 && snapshot.Amplitudes[0] > 0
	}, time.Second, time.Millisecond, "active frames should carry amplitudes")
}

func TestSchedulerService_DrawFailureForcesErrorState(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	scheduler, visualizer, renderer := newTestScheduler(t, 200)
	defer scheduler.Shutdown()

	renderer.SetFail(true)

	// The failure is caught at the tick boundary and becomes the error state
	require.Eventually(t, func() bool {
		state, _ := visualizer.State()
		return state == domain.StateError
	}, time.Second, time.Millisecond)

	_, message := visualizer.State()
	assert.NotEmpty(t, message)

	// The loop itself keeps running after the failure
	total, _ := scheduler.FrameStats()
	require.Eventually(t, func() bool {
		later, _ := scheduler.FrameStats()
		return later > total
	}, time.Second, time.Millisecond, "ticking should survive draw failures")
}

func TestSchedulerService_CountsDroppedFrames(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	scheduler, _, renderer := newTestScheduler(t, 200)
	defer scheduler.Shutdown()

	// A renderer stalling for many intervals forces skipped ticks
	renderer.SetDelay(50 * time.Millisecond)

	require.Eventually(t, func() bool {
		_, dropped := scheduler.FrameStats()
		return dropped > 0
	}, 2*time.Second, 5*time.Millisecond, "stalled draws should count dropped frames")
}

func TestSchedulerService_Shutdown(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	scheduler, _, _ := newTestScheduler(t, 200)

	require.Eventually(t, func() bool {
		total, _ := scheduler.FrameStats()
		return total >= 1
	}, time.Second, time.Millisecond)

	require.NoError(t, scheduler.Shutdown())

	// Ticking stops
	total, _ := scheduler.FrameStats()
	time.Sleep(50 * time.Millisecond)
	after, _ := scheduler.FrameStats()
	assert.Equal(t, total, after)

	// A second shutdown is a no-op
	require.NoError(t, scheduler.Shutdown())
}

func TestSchedulerService_IntervalFromTargets(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	scheduler, _, _ := newTestScheduler(t, 0)
	defer scheduler.Shutdown()

	// A non-positive target falls back to the stock frame rate
	expected := time.Duration(float64(time.Second) / domain.DefaultPerformanceTargets().TargetFPS)
	assert.Equal(t, expected, scheduler.Interval())
}
