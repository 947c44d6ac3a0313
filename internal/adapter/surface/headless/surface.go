// Package headless provides an in-memory render surface.
// It backs the windowless run mode and gives tests a surface whose pixels
// and failure behavior they can inspect and control.
package headless

import (
	"image"
	"image/color"
	"sync"

	"github.com/pulsarviz/pulsar/internal/adapter/surface/draw"
	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

// background is the clear color.
var background = color.RGBA{A: 255}

// Surface implements ports.RenderSurface over an image.RGBA.
//
// Thread-safe: the render tick draws while tests read counters and pixels.
type Surface struct {
	img     *image.RGBA
	message string
	closed  bool

	// Call counters
	clears   int
	lines    int
	circles  int
	fills    int
	presents int

	// Failure control
	failClear   bool
	failStroke  bool
	failPresent bool

	draw draw.Utils
	mu   sync.RWMutex
}

// NewSurface creates a headless surface with the given pixel dimensions.
func NewSurface(width, height int) *Surface {
	return &Surface{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// SetFailClear makes Clear return an error.
func (s *Surface) SetFailClear(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failClear = fail
}

// SetFailStroke makes StrokeLine and StrokeCircle return an error.
func (s *Surface) SetFailStroke(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStroke = fail
}

// SetFailPresent makes Present return an error.
func (s *Surface) SetFailPresent(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPresent = fail
}

// Size returns the drawable dimensions in pixels.
func (s *Surface) Size() (w, h int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bounds := s.img.Bounds()

	return bounds.Dx(), bounds.Dy()
}

// Clear erases the surface to the background color.
func (s *Surface) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}
	if s.failClear {
		return domain.NewRenderError("clear", "clear failure requested", nil)
	}

	s.clears++
	s.draw.FillBackground(s.img, background)

	return nil
}

// StrokeLine draws a line segment with the given weight.
func (s *Surface) StrokeLine(x1, y1, x2, y2 float64, weight float64, c color.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}
	if s.failStroke {
		return domain.NewRenderError("line", "stroke failure requested", nil)
	}

	s.lines++
	s.draw.ThickLine(s.img, x1, y1, x2, y2, weight, c)

	return nil
}

// StrokeCircle draws a circle outline with the given weight.
func (s *Surface) StrokeCircle(x, y, radius float64, weight float64, c color.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}
	if s.failStroke {
		return domain.NewRenderError("circle", "stroke failure requested", nil)
	}

	s.circles++
	s.draw.CircleOutline(s.img, x, y, radius, weight, c)

	return nil
}

// FillCircle draws a filled circle.
func (s *Surface) FillCircle(x, y, radius float64, c color.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}

	s.fills++
	s.draw.FilledCircle(s.img, x, y, radius, c)

	return nil
}

// SetMessage stores the status message text.
func (s *Surface) SetMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = text
}

// Present marks the frame complete.
func (s *Surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}
	if s.failPresent {
		return domain.NewRenderError("present", "present failure requested", nil)
	}

	s.presents++

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

// Message returns the currently stored status message.
func (s *Surface) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.message
}

// Counts returns how many clear, line, circle, fill, and present calls the
// surface has served.
func (s *Surface) Counts() (clears, lines, circles, fills, presents int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.clears, s.lines, s.circles, s.fills, s.presents
}

// Snapshot returns a copy of the current pixel buffer.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)

	return out
}

// Verify interface implementation
var _ ports.RenderSurface = (*Surface)(nil)
