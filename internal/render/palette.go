package render

import (
	"image/color"
)

// Colors shared by the render routines.
var (
	// hubFill is the dark disc at the visualization center
	hubFill = color.RGBA{R: 20, G: 20, B: 30, A: 255}

	// hubRing outlines the center disc and the idle pulse
	hubRing = color.RGBA{R: 80, G: 80, B: 120, A: 255}

	// errorRing marks the static error indicator
	errorRing = color.RGBA{R: 200, G: 60, B: 60, A: 255}
)

// rayColor returns the stroke color for one ray. The hue walks the full color
// wheel with the ray's position around the circle; lightness rises with the
// amplitude so louder segments read brighter.
func rayColor(position, amplitude float64) color.RGBA {
	lightness := 0.25 + 0.35*amplitude

	r, g, b := hslToRGB(position, 1.0, lightness)

	return color.RGBA{
		R: uint8(r * 255),
		G: uint8(g * 255),
		B: uint8(b * 255),
		A: 255,
	}
}

// hslToRGB converts HSL to RGB (h, s, l in 0-1 range).
func hslToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = hueToRGB(p, q, h+1.0/3.0)
	g = hueToRGB(p, q, h)
	b = hueToRGB(p, q, h-1.0/3.0)

	return r, g, b
}

// hueToRGB is a helper for HSL to RGB conversion.
func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 0.5 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
