// Package mic captures live audio through PortAudio and serves its spectrum.
package mic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/pulsarviz/pulsar/internal/analysis"
	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

const sourceName = "mic"

// DefaultSampleRate is used when neither the config nor the device reports
// a capture rate.
const DefaultSampleRate = 44100

// Capture implements ports.FrequencySource over a live PortAudio input
// stream. The capture callback feeds each block straight into the spectrum;
// ReadBins serves whatever the latest block produced.
//
// Thread-safe: the capture callback, ReadBins, and SetTransformSize run on
// different goroutines.
type Capture struct {
	// Dependencies (injected)
	logger *slog.Logger

	// Configuration
	sampleRate int
	deviceID   int

	// Frequency analysis fed by the capture callback
	spectrum *analysis.Spectrum

	// Capture state
	stream  *portaudio.Stream
	started bool

	mu sync.Mutex
}

// NewCapture creates a microphone source. An invalid transform size in the
// config falls back to the stock default; a negative device selects the
// system default input. No audio resources are touched until Start.
func NewCapture(logger *slog.Logger, cfg ports.SourceConfig) (*Capture, error) {
	size := cfg.TransformSize
	if size <= 0 || size&(size-1) != 0 {
		size = domain.DefaultVisualizerConfig().TransformSize
	}

	spectrum, err := analysis.NewSpectrum(size)
	if err != nil {
		return nil, err
	}

	return &Capture{
		logger:     logger,
		sampleRate: cfg.SampleRate,
		deviceID:   cfg.Device,
		spectrum:   spectrum,
	}, nil
}

// Start initializes the audio subsystem and opens the capture stream.
func (c *Capture) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return domain.NewSourceError("start", sourceName, "initialize audio subsystem", err)
	}

	device, err := c.inputDevice()
	if err != nil {
		portaudio.Terminate()
		return domain.NewSourceError("start", sourceName, "resolve input device", err)
	}

	sampleRate := float64(c.sampleRate)
	if sampleRate <= 0 {
		sampleRate = device.DefaultSampleRate
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  device.DefaultHighInputLatency,
		},
		FramesPerBuffer: c.spectrum.Size(),
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processBlock)
	if err != nil {
		portaudio.Terminate()
		return domain.NewSourceError("start", sourceName, "open capture stream", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return domain.NewSourceError("start", sourceName, "start capture stream", err)
	}

	c.stream = stream
	c.started = true

	c.logger.Debug("microphone capture started",
		slog.String("device", device.Name),
		slog.Float64("sample_rate", sampleRate))

	return nil
}

// Stop closes the capture stream and shuts the audio subsystem down.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}
	c.started = false

	var firstErr error
	if err := c.stream.Stop(); err != nil {
		firstErr = err
	}
	if err := c.stream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.stream = nil

	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = err
	}

	if firstErr != nil {
		return domain.NewSourceError("stop", sourceName, "release capture stream", firstErr)
	}

	c.logger.Debug("microphone capture stopped")

	return nil
}

// ReadBins copies the latest spectrum into dst.
func (c *Capture) ReadBins(dst []byte) int {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	if !started {
		n := c.spectrum.BinCount()
		if n > len(dst) {
			n = len(dst)
		}
		for i := 0; i < n; i++ {
			dst[i] = 0
		}
		return n
	}

	return c.spectrum.ReadBins(dst)
}

// BinCount returns the number of bins a full read yields.
func (c *Capture) BinCount() int {
	return c.spectrum.BinCount()
}

// SetTransformSize reconfigures the frequency resolution. A running stream
// keeps delivering blocks at the size it was opened with; the transform pads
// or truncates them until the next Start.
func (c *Capture) SetTransformSize(n int) error {
	return c.spectrum.Resize(n)
}

// Name identifies the source variant.
func (c *Capture) Name() string {
	return sourceName
}

// processBlock is the capture callback. It must not block: the spectrum
// swap is the only work done here.
func (c *Capture) processBlock(in []float32) {
	c.spectrum.Process(in)
}

// inputDevice resolves the configured capture device, with a negative ID
// selecting the system default input.
func (c *Capture) inputDevice() (*portaudio.DeviceInfo, error) {
	if c.deviceID < 0 {
		return portaudio.DefaultInputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if c.deviceID >= len(devices) {
		return nil, fmt.Errorf("no capture device with id %d", c.deviceID)
	}

	return devices[c.deviceID], nil
}

// Verify interface implementation
var _ ports.FrequencySource = (*Capture)(nil)
