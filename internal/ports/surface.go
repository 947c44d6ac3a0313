// Package ports define the render surface interface for drawing abstraction.
// This interface allows the scheduler and renderer to paint without depending
// on a UI toolkit directly.
package ports

import (
	"image/color"
)

// RenderSurface is a 2D drawing surface addressed in a coordinate system
// whose origin the renderer treats as the visualization center via Size().
// The core issues primitive draw calls; it never manages the surface's
// lifecycle, sizing, or host windowing.
//
// Draw calls happen from the render tick goroutine only. Present hands the
// finished frame to the host; implementations decide how (raster refresh,
// buffer swap, no-op for headless surfaces).
type RenderSurface interface {
	// Size returns the current drawable width and height in pixels.
	Size() (w, h int)

	// Clear erases the surface to the background color.
	Clear() error

	// StrokeLine draws a line segment from (x1, y1) to (x2, y2) with the
	// given weight in pixels.
	StrokeLine(x1, y1, x2, y2 float64, weight float64, c color.Color) error

	// StrokeCircle draws an unfilled circle outline centered at (x, y).
	StrokeCircle(x, y, radius float64, weight float64, c color.Color) error

	// FillCircle draws a filled circle centered at (x, y).
	FillCircle(x, y, radius float64, c color.Color) error

	// SetMessage shows or clears a short status message on the surface.
	// An empty string clears it. How the message renders (overlay label,
	// caption, stored string) is up to the implementation.
	SetMessage(text string)

	// Present publishes the frame drawn since the last Clear.
	Present() error

	// Close releases surface resources. Draw calls after Close fail.
	Close() error
}

// SurfaceFactory is a function that creates a RenderSurface instance.
// This allows for dependency injection of different drawing backends.
type SurfaceFactory func() (RenderSurface, error)
