package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarviz/pulsar/internal/adapter/eventbus"
	"github.com/pulsarviz/pulsar/internal/adapter/repository/memory"
	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/logger"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// newTestHub wires a hub to a synchronous bus and an httptest server.
func newTestHub(t *testing.T) (*Hub, ports.EventBus, *memory.SampleRepository, *httptest.Server) {
	t.Helper()

	bus := eventbus.NewSyncEventBus(logger.NewTestLogger())
	repo := memory.NewSampleRepository(0)
	hub := NewHub(logger.NewTestLogger(), bus, repo, domain.DefaultVisualizerConfig())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))

	t.Cleanup(func() {
		require.NoError(t, hub.Close())
		server.Close()
	})

	return hub, bus, repo, server
}

// dial opens a console connection against the test server.
func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return conn
}

// readFrame decodes the next frame from the connection into out.
func readFrame(t *testing.T, conn *websocket.Conn, out any) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, out))
}

func TestHub_WelcomeSnapshotOnConnect(t *testing.T) {
	// Setup
	_, _, _, server := newTestHub(t)
	conn := dial(t, server)

	// Execute
	var welcome welcomeFrame
	readFrame(t, conn, &welcome)

	// Verify: a fresh hub reports the idle defaults
	assert.Equal(t, frameWelcome, welcome.Type)
	assert.Equal(t, "idle", welcome.State)
	assert.Empty(t, welcome.Message)
	assert.Equal(t, 0, welcome.Tier)
	assert.Equal(t, wireConfig(domain.DefaultVisualizerConfig()), welcome.Config)
	assert.Empty(t, welcome.Samples)
	assert.WithinDuration(t, time.Now(), welcome.Timestamp, 5*time.Second)
}

func TestHub_WelcomeReflectsCurrentStatus(t *testing.T) {
	// Setup: move the hub off its defaults before anyone connects
	hub, _, repo, server := newTestHub(t)

	applied := domain.OptimizationTier(2).Apply(domain.DefaultVisualizerConfig())
	hub.NotifyState(domain.StateError, "source lost")
	hub.NotifyTier(2, applied)

	require.NoError(t, repo.Append(domain.PerformanceSample{Timestamp: time.Now(), FPS: 58.5}))
	require.NoError(t, repo.Append(domain.PerformanceSample{Timestamp: time.Now(), FPS: 61.0}))

	// Execute
	conn := dial(t, server)

	var welcome welcomeFrame
	readFrame(t, conn, &welcome)

	// Verify
	assert.Equal(t, "error", welcome.State)
	assert.Equal(t, "source lost", welcome.Message)
	assert.Equal(t, 2, welcome.Tier)
	assert.Equal(t, wireConfig(applied), welcome.Config)
	require.Len(t, welcome.Samples, 2)
	assert.InDelta(t, 58.5, welcome.Samples[0].FPS, 1e-9)
	assert.InDelta(t, 61.0, welcome.Samples[1].FPS, 1e-9)
}

func TestHub_BroadcastsStateTransitions(t *testing.T) {
	// Setup
	_, bus, _, server := newTestHub(t)
	conn := dial(t, server)

	var welcome welcomeFrame
	readFrame(t, conn, &welcome)

	// Execute
	bus.Publish(domain.NewStateChangedEvent(domain.StateIdle, domain.StateActive, ""))

	// Verify
	var frame stateFrame
	readFrame(t, conn, &frame)

	assert.Equal(t, frameStateChanged, frame.Type)
	assert.Equal(t, "active", frame.State)
	assert.Empty(t, frame.Message)
}

func TestHub_BroadcastsTierChanges(t *testing.T) {
	// Setup
	_, bus, _, server := newTestHub(t)
	conn := dial(t, server)

	var welcome welcomeFrame
	readFrame(t, conn, &welcome)

	// Execute
	applied := domain.OptimizationTier(1).Apply(domain.DefaultVisualizerConfig())
	bus.Publish(domain.NewTierChangedEvent(0, 1, applied))

	// Verify
	var frame tierFrame
	readFrame(t, conn, &frame)

	assert.Equal(t, frameTierChanged, frame.Type)
	assert.Equal(t, 1, frame.Tier)
	assert.Equal(t, wireConfig(applied), frame.Config)
	assert.Equal(t, 48, frame.Config.SegmentCount)
}

func TestHub_BroadcastsPerformanceSamples(t *testing.T) {
	// Setup
	_, bus, _, server := newTestHub(t)
	conn := dial(t, server)

	var welcome welcomeFrame
	readFrame(t, conn, &welcome)

	// Execute
	sample := domain.PerformanceSample{
		Timestamp:     time.Now(),
		FPS:           59.2,
		CPUPercent:    31.5,
		MemoryMB:      120.25,
		DroppedFrames: 3,
		TotalFrames:   1800,
	}
	bus.Publish(domain.NewSampleRecordedEvent(sample))

	// Verify
	var frame sampleFrame
	readFrame(t, conn, &frame)

	assert.Equal(t, frameSampleRecorded, frame.Type)
	assert.InDelta(t, 59.2, frame.Sample.FPS, 1e-9)
	assert.InDelta(t, 31.5, frame.Sample.CPUPercent, 1e-9)
	assert.InDelta(t, 120.25, frame.Sample.MemoryMB, 1e-9)
	assert.Equal(t, uint64(3), frame.Sample.DroppedFrames)
	assert.Equal(t, uint64(1800), frame.Sample.TotalFrames)
}

func TestHub_BroadcastsConfigOverrides(t *testing.T) {
	// Setup
	_, bus, _, server := newTestHub(t)
	conn := dial(t, server)

	var welcome welcomeFrame
	readFrame(t, conn, &welcome)

	override := domain.VisualizerConfig{
		SegmentCount:    32,
		SmoothingFactor: 0.5,
		TransformSize:   512,
		StrokeWeight:    4,
		RotationSpeed:   0.01,
	}

	// Execute
	bus.Publish(domain.NewConfigOverriddenEvent(override))

	// Verify: connected consoles hear about the override
	var frame configFrame
	readFrame(t, conn, &frame)

	assert.Equal(t, frameConfigOverride, frame.Type)
	assert.Equal(t, wireConfig(override), frame.Config)

	// Verify: late joiners see the overridden config in their welcome
	second := dial(t, server)

	var late welcomeFrame
	readFrame(t, second, &late)

	assert.Equal(t, wireConfig(override), late.Config)
}

func TestHub_MultipleClientsReceiveBroadcasts(t *testing.T) {
	// Setup
	hub, bus, _, server := newTestHub(t)

	first := dial(t, server)
	second := dial(t, server)

	var welcome welcomeFrame
	readFrame(t, first, &welcome)
	readFrame(t, second, &welcome)

	require.Equal(t, 2, hub.ClientCount())

	// Execute
	bus.Publish(domain.NewStateChangedEvent(domain.StateIdle, domain.StateActive, ""))

	// Verify
	var frame stateFrame
	readFrame(t, first, &frame)
	assert.Equal(t, "active", frame.State)

	readFrame(t, second, &frame)
	assert.Equal(t, "active", frame.State)
}

func TestHub_PrunesDeadClients(t *testing.T) {
	// Setup
	hub, bus, _, server := newTestHub(t)
	conn := dial(t, server)

	var welcome welcomeFrame
	readFrame(t, conn, &welcome)
	require.Equal(t, 1, hub.ClientCount())

	// Execute: kill the client, then keep broadcasting until the failed
	// write surfaces
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		bus.Publish(domain.NewStateChangedEvent(domain.StateIdle, domain.StateActive, ""))
		return hub.ClientCount() == 0
	}, 2*time.Second, 20*time.Millisecond, "dead client should be pruned")
}

func TestHub_CloseDropsClientsAndDetaches(t *testing.T) {
	// Setup
	hub, bus, _, server := newTestHub(t)
	conn := dial(t, server)

	var welcome welcomeFrame
	readFrame(t, conn, &welcome)
	require.Equal(t, 1, hub.ClientCount())

	// Execute
	require.NoError(t, hub.Close())

	// Verify
	assert.Equal(t, 0, hub.ClientCount())

	// Publishing after close must not panic or resurrect clients
	bus.Publish(domain.NewStateChangedEvent(domain.StateIdle, domain.StateActive, ""))
	assert.Equal(t, 0, hub.ClientCount())

	// The server side hung up, so the client read fails
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
