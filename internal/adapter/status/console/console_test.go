package console

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarviz/pulsar/internal/adapter/eventbus"
	"github.com/pulsarviz/pulsar/internal/domain"
)

// Helper to create a sink whose log lines land in a buffer
func newTestSink(t *testing.T) (*Sink, *eventbus.SyncEventBus, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	bus := eventbus.NewSyncEventBus(nil)

	return NewSink(logger, bus), bus, &buf
}

func TestSink_LogsStateTransitions(t *testing.T) {
	sink, bus, buf := newTestSink(t)
	defer sink.Close()

	bus.Publish(domain.NewStateChangedEvent(domain.StateIdle, domain.StateActive, ""))

	out := buf.String()
	assert.Contains(t, out, `msg="visualization state changed"`)
	assert.Contains(t, out, "state=active")
	assert.Contains(t, out, "level=INFO")
}

func TestSink_LogsErrorStateAsWarning(t *testing.T) {
	sink, bus, buf := newTestSink(t)
	defer sink.Close()

	bus.Publish(domain.NewStateChangedEvent(domain.StateActive, domain.StateError, "source lost"))

	out := buf.String()
	assert.Contains(t, out, "state=error")
	assert.Contains(t, out, "source lost")
	assert.Contains(t, out, "level=WARN")
}

func TestSink_LogsTierChanges(t *testing.T) {
	sink, bus, buf := newTestSink(t)
	defer sink.Close()

	applied := domain.OptimizationTier(2).Apply(domain.DefaultVisualizerConfig())
	bus.Publish(domain.NewTierChangedEvent(domain.OptimizationTier(1), domain.OptimizationTier(2), applied))

	out := buf.String()
	assert.Contains(t, out, `msg="optimization tier applied"`)
	assert.Contains(t, out, "tier=2")
	assert.Contains(t, out, "segment_count=48")
	assert.Contains(t, out, "transform_size=512")
}

func TestSink_IgnoresOtherEvents(t *testing.T) {
	sink, bus, buf := newTestSink(t)
	defer sink.Close()

	bus.Publish(domain.NewSourceConnectedEvent("mock"))

	assert.Empty(t, buf.String())
}

func TestSink_CloseDetaches(t *testing.T) {
	sink, bus, buf := newTestSink(t)

	require.NoError(t, sink.Close())
	bus.Publish(domain.NewStateChangedEvent(domain.StateIdle, domain.StateActive, ""))

	assert.Empty(t, buf.String())
}
