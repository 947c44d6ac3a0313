package analysis

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/pulsarviz/pulsar/internal/domain"
)

// Decibel range mapped onto the byte bin scale. Magnitudes at or below
// minDecibels read as 0, magnitudes at or above maxDecibels read as 255.
const (
	minDecibels = -100.0
	maxDecibels = -30.0
)

// Spectrum converts blocks of time-domain samples into frequency bins of
// byte magnitude (0-255). It applies a Hann window, runs a real-input FFT,
// and maps each bin's magnitude in decibels onto the byte range.
//
// The bin array has length transformSize/2; bin k covers the frequency
// k * sampleRate / transformSize. Live and file-backed sources share this
// type so both produce identically scaled bins.
//
// Thread-safe: Process and ReadBins may be called from different goroutines.
type Spectrum struct {
	fft    *fourier.FFT
	size   int
	window []float64
	input  []float64
	coeffs []complex128
	bins   []byte

	mu sync.Mutex
}

// NewSpectrum creates a Spectrum for the given transform size.
// The transform size must be a positive power of two.
func NewSpectrum(transformSize int) (*Spectrum, error) {
	s := &Spectrum{}
	if err := s.Resize(transformSize); err != nil {
		return nil, err
	}

	return s, nil
}

// Resize rebuilds the FFT plan and buffers for a new transform size.
// All bins reset to zero. The transform size must be a positive power of two.
func (s *Spectrum) Resize(transformSize int) error {
	if transformSize <= 0 || transformSize&(transformSize-1) != 0 {
		return domain.ErrInvalidTransformSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fft != nil && transformSize == s.size {
		return nil
	}

	// Pre-fill with 1.0 so the window function yields raw coefficients.
	coeffs := make([]float64, transformSize)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	window.Hann(coeffs)

	s.fft = fourier.NewFFT(transformSize)
	s.size = transformSize
	s.window = coeffs
	s.input = make([]float64, transformSize)
	// Real-input FFT yields size/2+1 coefficients; the bin array drops the
	// Nyquist bin to keep length at exactly size/2.
	s.coeffs = make([]complex128, transformSize/2+1)
	s.bins = make([]byte, transformSize/2)

	return nil
}

// Process consumes one block of time-domain samples in [-1, 1] and refreshes
// the bin array. Blocks shorter than the transform size are zero-padded;
// longer blocks are truncated.
func (s *Spectrum) Process(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(samples)
	for i := 0; i < s.size; i++ {
		if i < n {
			s.input[i] = float64(samples[i]) * s.window[i]
		} else {
			s.input[i] = 0
		}
	}

	s.fft.Coefficients(s.coeffs, s.input)

	scale := 2.0 / float64(s.size)
	for i := range s.bins {
		mag := cmplx.Abs(s.coeffs[i]) * scale
		db := 20 * math.Log10(mag+1e-12)

		v := (db - minDecibels) * 255 / (maxDecibels - minDecibels)
		switch {
		case v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		s.bins[i] = byte(v)
	}
}

// ReadBins copies the latest bin values into dst and returns the number of
// bins copied. Bins read zero until the first Process call.
func (s *Spectrum) ReadBins(dst []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copy(dst, s.bins)
}

// BinCount returns the length of the bin array (transformSize / 2).
func (s *Spectrum) BinCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.bins)
}

// Size returns the configured transform size.
func (s *Spectrum) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.size
}
