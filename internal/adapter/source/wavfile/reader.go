// Package wavfile turns a PCM WAV file into a looping frequency source.
// The file is decoded once on Start; a wall-clock cursor then walks the
// samples at the file's own rate, wrapping at the end, so the spectrum
// follows real playback time no matter how often bins are read.
package wavfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/pulsarviz/pulsar/internal/analysis"
	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

const sourceName = "wavfile"

// Reader implements ports.FrequencySource over a decoded WAV file.
//
// Thread-safe: ReadBins and SetTransformSize may race.
type Reader struct {
	// Dependencies (injected)
	logger *slog.Logger

	// Configuration
	path string

	// Decoded audio, channel 0 normalized to [-1, 1]
	samples    []float32
	sampleRate int

	// Frequency analysis
	spectrum *analysis.Spectrum
	block    []float32

	// Playback cursor state
	started   bool
	startedAt time.Time

	mu sync.Mutex
}

// NewReader creates a WAV file source for the given path. An invalid
// transform size in the config falls back to the stock default. The file
// itself is not touched until Start.
func NewReader(logger *slog.Logger, cfg ports.SourceConfig) (*Reader, error) {
	size := cfg.TransformSize
	if size <= 0 || size&(size-1) != 0 {
		size = domain.DefaultVisualizerConfig().TransformSize
	}

	spectrum, err := analysis.NewSpectrum(size)
	if err != nil {
		return nil, err
	}

	return &Reader{
		logger:   logger,
		path:     cfg.Path,
		spectrum: spectrum,
	}, nil
}

// Start opens and fully decodes the file, then starts the playback clock.
func (r *Reader) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	file, err := os.Open(r.path)
	if err != nil {
		return domain.NewSourceError("start", sourceName, "open input file", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return domain.NewSourceError("start", sourceName,
			fmt.Sprintf("not a PCM WAV file: %s", r.path), decoder.Err())
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return domain.NewSourceError("start", sourceName, "decode PCM data", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return domain.NewSourceError("start", sourceName, "file holds no samples", nil)
	}

	r.samples = monoFloat(buf, int(decoder.NumChans), int(decoder.BitDepth))
	r.sampleRate = int(decoder.SampleRate)
	if r.sampleRate <= 0 {
		r.sampleRate = 44100
	}

	r.started = true
	r.startedAt = time.Now()

	r.logger.Debug("wav file loaded",
		slog.String("path", r.path),
		slog.Int("sample_rate", r.sampleRate),
		slog.Int("samples", len(r.samples)))

	return nil
}

// Stop releases the decoded audio. Subsequent reads yield zeros; a later
// Start decodes the file again.
func (r *Reader) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.started = false
	r.samples = nil

	return nil
}

// ReadBins analyzes the transform window at the current playback position.
func (r *Reader) ReadBins(dst []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started || len(r.samples) == 0 {
		n := r.spectrum.BinCount()
		if n > len(dst) {
			n = len(dst)
		}
		for i := 0; i < n; i++ {
			dst[i] = 0
		}
		return n
	}

	// The cursor follows wall-clock time at the file's sample rate,
	// wrapping at the end for gapless looping
	pos := int(time.Since(r.startedAt).Seconds() * float64(r.sampleRate))

	size := r.spectrum.Size()
	if len(r.block) != size {
		r.block = make([]float32, size)
	}
	for i := 0; i < size; i++ {
		r.block[i] = r.samples[(pos+i)%len(r.samples)]
	}

	r.spectrum.Process(r.block)

	return r.spectrum.ReadBins(dst)
}

// BinCount returns the number of bins a full read yields.
func (r *Reader) BinCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.spectrum.BinCount()
}

// SetTransformSize reconfigures the frequency resolution.
func (r *Reader) SetTransformSize(n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.spectrum.Resize(n)
}

// Name identifies the source variant.
func (r *Reader) Name() string {
	return sourceName
}

// monoFloat extracts channel 0 normalized by the source bit depth.
func monoFloat(buf *audio.IntBuffer, channels, bitDepth int) []float32 {
	if channels < 1 {
		channels = 1
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		out[i] = float32(buf.Data[i*channels]) / scale
	}

	return out
}

// Verify interface implementation
var _ ports.FrequencySource = (*Reader)(nil)
