// Package draw provides the raster primitives shared by the render surfaces.
package draw

import (
	"image"
	"image/color"
	"math"
)

// Utils groups the pixel plotting operations. All methods clip to the image
// bounds, so callers never need to range check coordinates.
type Utils struct{}

// FillBackground fills the image with a solid color.
func (Utils) FillBackground(img *image.RGBA, col color.Color) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.Set(x, y, col)
		}
	}
}

// ThickLine draws a line segment. The weight is rounded to whole pixels with
// a minimum of one; zero length segments draw nothing.
func (Utils) ThickLine(img *image.RGBA, x1, y1, x2, y2, weight float64, col color.Color) {
	dx := x2 - x1
	dy := y2 - y1
	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return
	}

	// Perpendicular unit vector carries the thickness
	perpX := -dy / length
	perpY := dx / length

	thickness := int(math.Round(weight))
	if thickness < 1 {
		thickness = 1
	}
	steps := int(length) + 1
	bounds := img.Bounds()

	for t := -thickness / 2; t <= thickness/2; t++ {
		offsetX := float64(t) * perpX
		offsetY := float64(t) * perpY

		for i := 0; i <= steps; i++ {
			progress := float64(i) / float64(steps)
			px := int(x1 + dx*progress + offsetX)
			py := int(y1 + dy*progress + offsetY)

			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.Set(px, py, col)
			}
		}
	}
}

// CircleOutline draws a circle outline of the given weight as concentric
// single pixel rings centered on the radius.
func (u Utils) CircleOutline(img *image.RGBA, cx, cy, radius, weight float64, col color.Color) {
	rings := int(math.Round(weight))
	if rings < 1 {
		rings = 1
	}

	for k := 0; k < rings; k++ {
		ring(img, cx, cy, radius+float64(k)-float64(rings-1)/2, col)
	}
}

// FilledCircle draws a filled circle.
func (Utils) FilledCircle(img *image.RGBA, cx, cy, radius float64, col color.Color) {
	bounds := img.Bounds()
	x, y, r := int(cx), int(cy), int(radius)

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				px, py := x+dx, y+dy
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					img.Set(px, py, col)
				}
			}
		}
	}
}

// ring plots one single pixel circle.
func ring(img *image.RGBA, cx, cy, radius float64, col color.Color) {
	if radius <= 0 {
		return
	}

	bounds := img.Bounds()
	steps := int(2 * math.Pi * radius)
	if steps < 36 {
		steps = 36
	}

	for i := 0; i < steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		px := int(cx + math.Cos(angle)*radius)
		py := int(cy + math.Sin(angle)*radius)

		if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
			img.Set(px, py, col)
		}
	}
}
