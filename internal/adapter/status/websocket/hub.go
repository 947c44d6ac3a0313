// Package websocket serves the live status console. Connected consoles get
// a welcome snapshot of the current status, then a JSON frame per state
// transition, tier change, config override, and performance sample.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// Frame types on the wire.
const (
	frameWelcome        = "welcome"
	frameStateChanged   = "state_changed"
	frameTierChanged    = "tier_changed"
	frameConfigOverride = "config_overridden"
	frameSampleRecorded = "sample_recorded"
)

// maxWelcomeSamples bounds the history included in a welcome snapshot.
const maxWelcomeSamples = 30

// configPayload mirrors domain.VisualizerConfig on the wire.
type configPayload struct {
	SegmentCount    int     `json:"segment_count"`
	SmoothingFactor float64 `json:"smoothing_factor"`
	TransformSize   int     `json:"transform_size"`
	StrokeWeight    float64 `json:"stroke_weight"`
	RotationSpeed   float64 `json:"rotation_speed"`
}

// samplePayload mirrors domain.PerformanceSample on the wire.
type samplePayload struct {
	Timestamp     time.Time `json:"timestamp"`
	FPS           float64   `json:"fps"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryMB      float64   `json:"memory_mb"`
	DroppedFrames uint64    `json:"dropped_frames"`
	TotalFrames   uint64    `json:"total_frames"`
}

type welcomeFrame struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	State     string          `json:"state"`
	Message   string          `json:"message,omitempty"`
	Tier      int             `json:"tier"`
	Config    configPayload   `json:"config"`
	Samples   []samplePayload `json:"samples"`
}

type stateFrame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"state"`
	Message   string    `json:"message,omitempty"`
}

type tierFrame struct {
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Tier      int           `json:"tier"`
	Config    configPayload `json:"config"`
}

type configFrame struct {
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Config    configPayload `json:"config"`
}

type sampleFrame struct {
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Sample    samplePayload `json:"sample"`
}

// Hub implements ports.StatusSink over WebSocket connections. It mirrors the
// visualizer status so late-joining consoles get an accurate welcome
// snapshot, and prunes clients whose writes fail.
//
// Thread-safe: event handlers, the HTTP server, and Close run concurrently.
type Hub struct {
	// Dependencies (injected)
	logger     *slog.Logger
	bus        ports.EventBus
	repository ports.SampleRepository

	// Status mirror for welcome snapshots
	state   domain.VisualizationState
	message string
	tier    domain.OptimizationTier
	config  domain.VisualizerConfig

	// Connection management
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
	server   *http.Server

	// Event subscriptions
	subs []domain.SubscriptionID

	mu sync.Mutex
}

// NewHub creates a status hub and subscribes it to the advisory events.
// Serving does not begin until Listen.
func NewHub(
	logger *slog.Logger,
	bus ports.EventBus,
	repository ports.SampleRepository,
	initial domain.VisualizerConfig,
) *Hub {
	hub := &Hub{
		logger:     logger,
		bus:        bus,
		repository: repository,
		state:      domain.StateIdle,
		config:     initial,
		clients:    make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	hub.subs = []domain.SubscriptionID{
		bus.Subscribe(domain.EventStateChanged, hub.handleStateChanged),
		bus.Subscribe(domain.EventTierChanged, hub.handleTierChanged),
		bus.Subscribe(domain.EventConfigOverridden, hub.handleConfigOverridden),
		bus.Subscribe(domain.EventSampleRecorded, hub.handleSampleRecorded),
	}

	return hub
}

// Listen starts serving the console endpoint at /ws on addr in its own
// goroutine.
func (h *Hub) Listen(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeHTTP)

	h.mu.Lock()
	h.server = &http.Server{Addr: addr, Handler: mux}
	server := h.server
	h.mu.Unlock()

	go func() {
		h.logger.Info("status console listening",
			slog.String("addr", addr),
			slog.String("path", "/ws"))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("status console server failed", slog.Any("error", err))
		}
	}()
}

// ServeHTTP upgrades a console connection and sends the welcome snapshot.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	payload, err := json.Marshal(h.welcome())
	if err != nil {
		h.logger.Warn("welcome snapshot marshal failed", slog.Any("error", err))
		conn.Close()
		return
	}

	h.mu.Lock()
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = true
	h.mu.Unlock()

	h.logger.Debug("status console connected", slog.String("remote", conn.RemoteAddr().String()))

	// Drain the connection until the client goes away
	go h.readUntilClose(conn)
}

// NotifyState mirrors and broadcasts a visualization state transition.
func (h *Hub) NotifyState(state domain.VisualizationState, message string) {
	h.mu.Lock()
	h.state = state
	h.message = message
	h.mu.Unlock()

	h.broadcast(stateFrame{
		Type:      frameStateChanged,
		Timestamp: time.Now(),
		State:     state.String(),
		Message:   message,
	})
}

// NotifyTier mirrors and broadcasts an optimization tier change.
func (h *Hub) NotifyTier(tier domain.OptimizationTier, applied domain.VisualizerConfig) {
	h.mu.Lock()
	h.tier = tier
	h.config = applied
	h.mu.Unlock()

	h.broadcast(tierFrame{
		Type:      frameTierChanged,
		Timestamp: time.Now(),
		Tier:      int(tier),
		Config:    wireConfig(applied),
	})
}

// Close detaches from the bus, drops all consoles, and stops the server.
func (h *Hub) Close() error {
	for _, sub := range h.subs {
		h.bus.Unsubscribe(sub)
	}

	h.mu.Lock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	server := h.server
	h.server = nil
	h.mu.Unlock()

	if server != nil {
		return server.Close()
	}

	return nil
}

// ClientCount returns the number of connected consoles.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// welcome assembles the snapshot a console receives on connect.
func (h *Hub) welcome() welcomeFrame {
	h.mu.Lock()
	state := h.state
	message := h.message
	tier := h.tier
	config := h.config
	h.mu.Unlock()

	samples := []samplePayload{}
	if recent, err := h.repository.Recent(maxWelcomeSamples); err == nil {
		for _, sample := range recent {
			samples = append(samples, wireSample(sample))
		}
	}

	return welcomeFrame{
		Type:      frameWelcome,
		Timestamp: time.Now(),
		State:     state.String(),
		Message:   message,
		Tier:      int(tier),
		Config:    wireConfig(config),
		Samples:   samples,
	}
}

// broadcast sends one frame to every console, dropping those whose
// connection has died.
func (h *Hub) broadcast(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Warn("status frame marshal failed", slog.Any("error", err))
		return
	}

	h.mu.Lock()
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
	h.mu.Unlock()
}

// readUntilClose drains client messages until the connection errors out.
func (h *Hub) readUntilClose(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()

	h.logger.Debug("status console disconnected")
}

func (h *Hub) handleStateChanged(event domain.Event) {
	if e, ok := event.(domain.StateChangedEvent); ok {
		h.NotifyState(e.NewState, e.Message)
	}
}

func (h *Hub) handleTierChanged(event domain.Event) {
	if e, ok := event.(domain.TierChangedEvent); ok {
		h.NotifyTier(e.NewTier, e.AppliedConfig)
	}
}

func (h *Hub) handleConfigOverridden(event domain.Event) {
	e, ok := event.(domain.ConfigOverriddenEvent)
	if !ok {
		return
	}

	h.mu.Lock()
	h.config = e.Config
	h.mu.Unlock()

	h.broadcast(configFrame{
		Type:      frameConfigOverride,
		Timestamp: time.Now(),
		Config:    wireConfig(e.Config),
	})
}

func (h *Hub) handleSampleRecorded(event domain.Event) {
	if e, ok := event.(domain.SampleRecordedEvent); ok {
		h.broadcast(sampleFrame{
			Type:      frameSampleRecorded,
			Timestamp: time.Now(),
			Sample:    wireSample(e.Sample),
		})
	}
}

func wireConfig(c domain.VisualizerConfig) configPayload {
	return configPayload{
		SegmentCount:    c.SegmentCount,
		SmoothingFactor: c.SmoothingFactor,
		TransformSize:   c.TransformSize,
		StrokeWeight:    c.StrokeWeight,
		RotationSpeed:   c.RotationSpeed,
	}
}

func wireSample(s domain.PerformanceSample) samplePayload {
	return samplePayload{
		Timestamp:     s.Timestamp,
		FPS:           s.FPS,
		CPUPercent:    s.CPUPercent,
		MemoryMB:      s.MemoryMB,
		DroppedFrames: s.DroppedFrames,
		TotalFrames:   s.TotalFrames,
	}
}

// Verify interface implementation
var _ ports.StatusSink = (*Hub)(nil)
