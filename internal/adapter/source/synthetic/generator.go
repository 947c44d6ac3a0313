// Package synthetic fabricates speech-shaped frequency bins without any
// input device. It backs demo mode and hosts without capture hardware.
package synthetic

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

const sourceName = "synthetic"

// Spectral and temporal shape of the fabricated signal.
const (
	// syllableRate is the pulse rate of the loudness envelope, per second
	syllableRate = 3.5

	// phraseRate is a slower loudness drift layered over the syllables
	phraseRate = 0.4

	// spectralTilt is how fast energy falls off toward the high bins
	spectralTilt = 2.4

	// jitterDepth is the per-bin random flutter
	jitterDepth = 0.15
)

// Generator implements ports.FrequencySource with a fabricated spectrum.
// The bins follow a speech-like shape: energy concentrated in the low bins
// with two formant bumps, pulsing at a syllable-like rate on wall-clock time.
//
// Thread-safe: ReadBins and SetTransformSize may race.
type Generator struct {
	// Configuration
	transformSize int

	// Acquisition state
	started   bool
	startedAt time.Time

	rng *rand.Rand

	mu sync.Mutex
}

// NewGenerator creates a synthetic source. An invalid transform size in the
// config falls back to the stock default.
func NewGenerator(cfg ports.SourceConfig) *Generator {
	size := cfg.TransformSize
	if size <= 0 || size&(size-1) != 0 {
		size = domain.DefaultVisualizerConfig().TransformSize
	}

	return &Generator{
		transformSize: size,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start seeds the generator clock. It never fails.
func (g *Generator) Start(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.started = true
	g.startedAt = time.Now()

	return nil
}

// Stop silences the generator. Subsequent reads yield zeros.
func (g *Generator) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.started = false

	return nil
}

// ReadBins fills dst with the fabricated spectrum for the current instant.
func (g *Generator) ReadBins(dst []byte) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.transformSize / 2
	if n > len(dst) {
		n = len(dst)
	}

	if !g.started {
		for i := 0; i < n; i++ {
			dst[i] = 0
		}
		return n
	}

	t := time.Since(g.startedAt).Seconds()
	envelope := loudness(t)
	count := g.transformSize / 2

	for i := 0; i < n; i++ {
		flutter := 1 - jitterDepth + jitterDepth*g.rng.Float64()
		v := 255 * envelope * binShape(i, count) * flutter
		if v > 255 {
			v = 255
		}
		dst[i] = byte(v)
	}

	return n
}

// BinCount returns the number of bins a full read yields.
func (g *Generator) BinCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.transformSize / 2
}

// SetTransformSize reconfigures the bin resolution.
func (g *Generator) SetTransformSize(n int) error {
	if n <= 0 || n&(n-1) != 0 {
		return domain.ErrInvalidTransformSize
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.transformSize = n

	return nil
}

// Name identifies the source variant.
func (g *Generator) Name() string {
	return sourceName
}

// loudness is the temporal envelope: syllable pulses under a phrase drift.
// It never reaches zero, so a started generator always reads as signal.
func loudness(t float64) float64 {
	syllable := 0.3 + 0.7*(0.5+0.5*math.Sin(2*math.Pi*syllableRate*t))
	phrase := 0.6 + 0.4*math.Sin(2*math.Pi*phraseRate*t+1.0)

	return syllable * phrase
}

// binShape is the spectral envelope: a low-frequency tilt with two formant
// bumps, normalized to [0, 1].
func binShape(i, count int) float64 {
	x := float64(i) / float64(count)
	tilt := math.Pow(1-x, spectralTilt)
	formants := 0.4*math.Exp(-sq((x-0.10)/0.045)) + 0.25*math.Exp(-sq((x-0.25)/0.07))

	v := 0.75*tilt + formants
	if v > 1 {
		v = 1
	}
	return v
}

func sq(x float64) float64 { return x * x }

// Verify interface implementation
var _ ports.FrequencySource = (*Generator)(nil)
