package wavfile

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/logger"
	"github.com/pulsarviz/pulsar/internal/ports"
)

const testSampleRate = 44100

// Helper to write a mono 16-bit PCM WAV file carrying a sine tone
func writeTestWAV(t *testing.T, path string, freq float64, duration time.Duration) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)

	encoder := wav.NewEncoder(file, testSampleRate, 16, 1, 1)

	frames := int(testSampleRate * duration.Seconds())
	data := make([]int, frames)
	for i := range data {
		data[i] = int(0.8 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: testSampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, encoder.Write(buf))
	require.NoError(t, encoder.Close())
	require.NoError(t, file.Close())
}

func newTestReader(t *testing.T, path string) *Reader {
	t.Helper()

	reader, err := NewReader(logger.NewTestLogger(), ports.SourceConfig{
		TransformSize: 1024,
		Path:          path,
	})
	require.NoError(t, err)

	return reader
}

func binSum(bins []byte) int {
	sum := 0
	for _, b := range bins {
		sum += int(b)
	}
	return sum
}

func TestReader_StartDecodesAndServesBins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 440, 200*time.Millisecond)

	reader := newTestReader(t, path)
	require.NoError(t, reader.Start(context.Background()))
	defer reader.Stop()

	bins := make([]byte, reader.BinCount())
	n := reader.ReadBins(bins)
	require.Equal(t, 512, n)

	// The tone lands near bin freq*size/rate; far bins stay quiet
	toneBin := int(440 * 1024 / testSampleRate)
	peak := byte(0)
	for _, b := range bins[toneBin-2 : toneBin+4] {
		if b > peak {
			peak = b
		}
	}
	assert.GreaterOrEqual(t, peak, byte(200))
	assert.Less(t, bins[400], byte(30))
}

func TestReader_ZeroBinsBeforeStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 440, 50*time.Millisecond)

	reader := newTestReader(t, path)

	bins := make([]byte, reader.BinCount())
	n := reader.ReadBins(bins)

	assert.Equal(t, 512, n)
	assert.Zero(t, binSum(bins))
}

func TestReader_StopSilences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 440, 50*time.Millisecond)

	reader := newTestReader(t, path)
	require.NoError(t, reader.Start(context.Background()))
	require.NoError(t, reader.Stop())

	bins := make([]byte, reader.BinCount())
	reader.ReadBins(bins)

	assert.Zero(t, binSum(bins))
}

func TestReader_RestartAfterStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 440, 50*time.Millisecond)

	reader := newTestReader(t, path)
	require.NoError(t, reader.Start(context.Background()))
	require.NoError(t, reader.Stop())
	require.NoError(t, reader.Start(context.Background()))
	defer reader.Stop()

	bins := make([]byte, reader.BinCount())
	reader.ReadBins(bins)

	assert.Positive(t, binSum(bins))
}

func TestReader_StartFailsForMissingFile(t *testing.T) {
	reader := newTestReader(t, filepath.Join(t.TempDir(), "missing.wav"))

	err := reader.Start(context.Background())
	require.Error(t, err)

	var sourceErr *domain.SourceError
	assert.ErrorAs(t, err, &sourceErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReader_StartFailsForNonWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("plain text, no RIFF header"), 0o644))

	reader := newTestReader(t, path)

	err := reader.Start(context.Background())
	require.Error(t, err)

	var sourceErr *domain.SourceError
	assert.ErrorAs(t, err, &sourceErr)
}

func TestReader_LoopsFilesShorterThanTransform(t *testing.T) {
	// 10ms at 44.1kHz is well under the 1024-sample window
	path := filepath.Join(t.TempDir(), "blip.wav")
	writeTestWAV(t, path, 880, 10*time.Millisecond)

	reader := newTestReader(t, path)
	require.NoError(t, reader.Start(context.Background()))
	defer reader.Stop()

	bins := make([]byte, reader.BinCount())
	n := reader.ReadBins(bins)

	assert.Equal(t, 512, n)
	assert.Positive(t, binSum(bins))
}

func TestReader_SetTransformSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 440, 50*time.Millisecond)

	reader := newTestReader(t, path)

	require.NoError(t, reader.SetTransformSize(512))
	assert.Equal(t, 256, reader.BinCount())

	assert.ErrorIs(t, reader.SetTransformSize(100), domain.ErrInvalidTransformSize)
	assert.Equal(t, 256, reader.BinCount())
}
