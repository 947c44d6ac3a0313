package fyne

import (
	"image"
	"image/color"
	"testing"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarviz/pulsar/internal/domain"
)

// red is an easily recognizable draw color for pixel assertions.
var red = color.RGBA{R: 255, A: 255}

func TestSurface_PresentPublishesTheFrame(t *testing.T) {
	test.NewApp()

	s := NewSurface(120, 120)

	require.NoError(t, s.Clear())
	require.NoError(t, s.FillCircle(60, 60, 20, red))

	// The frame stays invisible until Present swaps it in
	before, ok := s.rasterImage(120, 120).(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, background, before.RGBAAt(60, 60))

	require.NoError(t, s.Present())

	after, ok := s.rasterImage(120, 120).(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, red, after.RGBAAt(60, 60))
}

func TestSurface_DrawRequiresAFrame(t *testing.T) {
	s := NewSurface(120, 120)

	// No Clear yet, so there is no back buffer to draw into
	var renderErr *domain.RenderError
	assert.ErrorAs(t, s.StrokeLine(0, 0, 10, 10, 1, red), &renderErr)
	assert.ErrorAs(t, s.StrokeCircle(60, 60, 10, 1, red), &renderErr)
	assert.ErrorAs(t, s.FillCircle(60, 60, 10, red), &renderErr)
}

func TestSurface_CloseStopsDrawing(t *testing.T) {
	s := NewSurface(120, 120)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Clear(), domain.ErrSurfaceClosed)
	assert.ErrorIs(t, s.StrokeLine(0, 0, 10, 10, 1, red), domain.ErrSurfaceClosed)
	assert.ErrorIs(t, s.Present(), domain.ErrSurfaceClosed)
	assert.ErrorIs(t, s.Close(), domain.ErrSurfaceClosed)
}

func TestSurface_RepaintSizeDrivesTheNextFrame(t *testing.T) {
	s := NewSurface(120, 120)

	// The widget reported a new size on repaint; the next frame adopts it
	s.rasterImage(80, 60)

	w, h := s.Size()
	assert.Equal(t, 80, w)
	assert.Equal(t, 60, h)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Present())
}

func TestSurface_SetMessageTogglesTheOverlay(t *testing.T) {
	test.NewApp()

	s := NewSurface(120, 120)
	require.False(t, s.overlay.Visible())

	s.SetMessage("source lost")
	assert.True(t, s.overlay.Visible())
	assert.Equal(t, "source lost", s.overlay.Text)

	// Repeating the same text is a no-op; clearing hides the overlay
	s.SetMessage("source lost")
	s.SetMessage("")
	assert.False(t, s.overlay.Visible())
}

func TestSurface_CanvasShowsThePresentedFrame(t *testing.T) {
	test.NewApp()

	s := NewSurface(120, 120)
	window := test.NewWindow(s.Object())
	defer window.Close()
	window.SetPadded(false)
	window.Resize(fyneapp.NewSize(120, 120))

	require.NoError(t, s.Clear())
	require.NoError(t, s.FillCircle(60, 60, 20, red))
	require.NoError(t, s.Present())

	captured := window.Canvas().Capture()

	r, g, b, _ := captured.At(60, 60).RGBA()
	assert.Greater(t, r, uint32(0x7fff), "the presented pixel should read back red")
	assert.Less(t, g, uint32(0x1000))
	assert.Less(t, b, uint32(0x1000))

	r, g, b, _ = captured.At(5, 5).RGBA()
	assert.Less(t, r+g+b, uint32(0x1000), "off-frame pixels stay background black")
}
