// Package render turns frame snapshots into draw calls on a render surface.
// It owns the radial geometry; the surface owns pixels and presentation.
package render

import (
	"fmt"
	"math"
	"time"

	"github.com/pulsarviz/pulsar/internal/domain"
	"github.com/pulsarviz/pulsar/internal/ports"
)

const (
	// innerRadiusRatio sets the center disc radius as a fraction of min(w,h)/2
	innerRadiusRatio = 0.2

	// edgeMargin keeps the longest ray off the surface border, in pixels
	edgeMargin = 10.0

	// idlePulseDepth is the relative swing of the idle radius around the center disc
	idlePulseDepth = 0.15

	// idlePulsePeriod is one full idle oscillation
	idlePulsePeriod = 2 * time.Second
)

// RadialRenderer draws the radial waveform. Rays radiate from a central disc,
// one per segment, their length, brightness, and weight following the smoothed
// amplitude. The idle state breathes around the disc on wall-clock time; the
// error state is a static ring plus the stored message.
//
// Draw is called once per tick from the render loop and is not safe for
// concurrent use.
type RadialRenderer struct {
	surface ports.RenderSurface
}

// NewRadialRenderer creates a renderer drawing onto the given surface.
func NewRadialRenderer(surface ports.RenderSurface) *RadialRenderer {
	return &RadialRenderer{surface: surface}
}

// Draw renders one frame for the snapshot's state.
func (r *RadialRenderer) Draw(snapshot domain.FrameSnapshot) error {
	w, h := r.surface.Size()
	if w == 0 || h == 0 {
		return nil
	}

	if err := r.surface.Clear(); err != nil {
		return fmt.Errorf("clear surface: %w", err)
	}

	centerX := float64(w) / 2
	centerY := float64(h) / 2
	minDim := math.Min(float64(w), float64(h))
	maxRadius := minDim/2 - edgeMargin
	centerRadius := minDim / 2 * innerRadiusRatio
	if maxRadius < centerRadius {
		maxRadius = centerRadius
	}

	var err error
	switch snapshot.State {
	case domain.StateActive:
		err = r.drawActive(snapshot, centerX, centerY, centerRadius, maxRadius)
	case domain.StateError:
		err = r.drawError(snapshot, centerX, centerY, centerRadius)
	default:
		err = r.drawIdle(snapshot, centerX, centerY, centerRadius)
	}
	if err != nil {
		return err
	}

	if err := r.surface.Present(); err != nil {
		return fmt.Errorf("present frame: %w", err)
	}

	return nil
}

// drawIdle breathes a ring around the center disc. The oscillation follows
// wall-clock time so its pace is independent of the tick cadence.
func (r *RadialRenderer) drawIdle(snapshot domain.FrameSnapshot, centerX, centerY, centerRadius float64) error {
	r.surface.SetMessage("")

	t := float64(snapshot.Now.UnixNano()) / float64(idlePulsePeriod.Nanoseconds())
	radius := centerRadius * (1 + idlePulseDepth*math.Sin(2*math.Pi*t))

	if err := r.surface.FillCircle(centerX, centerY, radius, hubFill); err != nil {
		return fmt.Errorf("draw idle pulse: %w", err)
	}
	if err := r.surface.StrokeCircle(centerX, centerY, radius, snapshot.Config.StrokeWeight, hubRing); err != nil {
		return fmt.Errorf("draw idle pulse: %w", err)
	}

	return nil
}

// drawActive draws the center disc and one ray per segment.
func (r *RadialRenderer) drawActive(snapshot domain.FrameSnapshot, centerX, centerY, centerRadius, maxRadius float64) error {
	r.surface.SetMessage("")

	if err := r.surface.FillCircle(centerX, centerY, centerRadius, hubFill); err != nil {
		return fmt.Errorf("draw center disc: %w", err)
	}
	if err := r.surface.StrokeCircle(centerX, centerY, centerRadius, snapshot.Config.StrokeWeight, hubRing); err != nil {
		return fmt.Errorf("draw center disc: %w", err)
	}

	count := len(snapshot.Amplitudes)
	if count == 0 {
		return nil
	}

	angleStep := 2 * math.Pi / float64(count)
	span := maxRadius - centerRadius

	for i, amplitude := range snapshot.Amplitudes {
		// Start from the top, offset by the accumulated rotation
		angle := float64(i)*angleStep + snapshot.Rotation - math.Pi/2

		length := amplitude * span
		startX := centerX + math.Cos(angle)*centerRadius
		startY := centerY + math.Sin(angle)*centerRadius
		endX := centerX + math.Cos(angle)*(centerRadius+length)
		endY := centerY + math.Sin(angle)*(centerRadius+length)

		// Brightness and weight both rise with the amplitude
		col := rayColor(float64(i)/float64(count), amplitude)
		weight := snapshot.Config.StrokeWeight * (1 + amplitude)

		if err := r.surface.StrokeLine(startX, startY, endX, endY, weight, col); err != nil {
			return fmt.Errorf("draw ray %d: %w", i, err)
		}
	}

	return nil
}

// drawError paints the static failure indicator. Nothing here depends on time
// or tick count; the frame is identical until the state changes.
func (r *RadialRenderer) drawError(snapshot domain.FrameSnapshot, centerX, centerY, centerRadius float64) error {
	r.surface.SetMessage(snapshot.ErrorMessage)

	if err := r.surface.FillCircle(centerX, centerY, centerRadius, hubFill); err != nil {
		return fmt.Errorf("draw error indicator: %w", err)
	}
	if err := r.surface.StrokeCircle(centerX, centerY, centerRadius, snapshot.Config.StrokeWeight, errorRing); err != nil {
		return fmt.Errorf("draw error indicator: %w", err)
	}

	return nil
}

// Verify interface implementation at compile time.
var _ ports.Renderer = (*RadialRenderer)(nil)
