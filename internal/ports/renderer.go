// Package ports define the Renderer interface consumed by the render loop.
package ports

import (
	"github.com/pulsarviz/pulsar/internal/domain"
)

// Renderer paints one complete frame from a snapshot. Implementations pick
// the idle, active, or error routine from the snapshot state and issue
// primitive calls against a RenderSurface.
//
// Draw is called once per tick from the render loop goroutine; it does not
// need to be thread-safe. A returned error is caught at the tick boundary
// and forces the error state without stopping the loop.
type Renderer interface {
	// Draw clears the surface, paints the frame, and presents it.
	Draw(snapshot domain.FrameSnapshot) error
}
