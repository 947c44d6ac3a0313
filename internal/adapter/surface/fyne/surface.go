// Package fyne provides the windowed render surface and its host window.
package fyne

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"

	"github.com/pulsarviz/pulsar/internal/adapter/surface/draw"
	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// background is the clear color.
var background = color.RGBA{A: 255}

// messageColor is the overlay text color.
var messageColor = color.RGBA{R: 220, G: 220, B: 230, A: 255}

// Surface implements ports.RenderSurface over a fyne canvas raster.
//
// Drawing goes into a back buffer. Present swaps it with the front buffer
// and asks the raster to repaint, so the window never shows a half drawn
// frame. The raster generator hands fyne a fresh copy of the front buffer,
// keeping the driver's texture upload off the buffer the next tick reuses.
// The generator also reports the widget size, which becomes the buffer
// size for the next frame, giving live resize one frame of lag.
type Surface struct {
	raster  *canvas.Raster
	overlay *canvas.Text

	width  int
	height int
	back   *image.RGBA
	front  *image.RGBA

	message string
	closed  bool

	draw draw.Utils
	mu   sync.RWMutex
}

// NewSurface creates a windowed surface with the given initial pixel size.
func NewSurface(width, height int) *Surface {
	s := &Surface{
		width:  width,
		height: height,
	}

	s.raster = canvas.NewRaster(s.rasterImage)
	s.overlay = canvas.NewText("", messageColor)
	s.overlay.Alignment = fyneapp.TextAlignCenter
	s.overlay.TextSize = 16
	s.overlay.Hide()

	return s
}

// Object returns the canvas object to mount in a window.
func (s *Surface) Object() fyneapp.CanvasObject {
	return container.NewStack(s.raster, container.NewCenter(s.overlay))
}

// Size returns the drawable dimensions in pixels.
func (s *Surface) Size() (w, h int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.width, s.height
}

// Clear starts a new frame on the back buffer, reallocating it when the
// widget size changed.
func (s *Surface) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}

	if s.back == nil || s.back.Bounds().Dx() != s.width || s.back.Bounds().Dy() != s.height {
		s.back = image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	}
	s.draw.FillBackground(s.back, background)

	return nil
}

// StrokeLine draws a line segment with the given weight.
func (s *Surface) StrokeLine(x1, y1, x2, y2 float64, weight float64, c color.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}
	if s.back == nil {
		return domain.NewRenderError("line", "no frame started", nil)
	}

	s.draw.ThickLine(s.back, x1, y1, x2, y2, weight, c)

	return nil
}

// StrokeCircle draws a circle outline with the given weight.
func (s *Surface) StrokeCircle(x, y, radius float64, weight float64, c color.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}
	if s.back == nil {
		return domain.NewRenderError("circle", "no frame started", nil)
	}

	s.draw.CircleOutline(s.back, x, y, radius, weight, c)

	return nil
}

// FillCircle draws a filled circle.
func (s *Surface) FillCircle(x, y, radius float64, c color.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}
	if s.back == nil {
		return domain.NewRenderError("fill", "no frame started", nil)
	}

	s.draw.FilledCircle(s.back, x, y, radius, c)

	return nil
}

// SetMessage shows the text centered over the raster, or hides the overlay
// when the text is empty.
func (s *Surface) SetMessage(text string) {
	s.mu.Lock()
	if text == s.message {
		s.mu.Unlock()
		return
	}
	s.message = text
	overlay := s.overlay
	s.mu.Unlock()

	if text == "" {
		overlay.Hide()
		return
	}
	overlay.Text = text
	overlay.Show()
	overlay.Refresh()
}

// Present publishes the finished frame and requests a repaint.
func (s *Surface) Present() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSurfaceClosed
	}
	if s.back != nil {
		s.front, s.back = s.back, s.front
	}
	raster := s.raster
	s.mu.Unlock()

	// Repaint outside the lock, the raster generator takes it again
	raster.Refresh()

	return nil
}

// Close releases the surface. Draw calls after Close fail.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}
	s.closed = true

	return nil
}

// rasterImage generates the image fyne textures on repaint. The requested
// size becomes the buffer size for subsequent frames.
func (s *Surface) rasterImage(w, h int) image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w > 0 && h > 0 {
		s.width, s.height = w, h
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	s.draw.FillBackground(out, background)
	if s.front != nil {
		stddraw.Draw(out, s.front.Bounds(), s.front, image.Point{}, stddraw.Src)
	}

	return out
}

// Verify interface implementation
var _ ports.RenderSurface = (*Surface)(nil)
