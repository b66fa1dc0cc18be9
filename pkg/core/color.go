package core

import "math"

// Color represents an RGB radiance or display value.
// The wire format transfers colors as four floats with a zero pad, see wire.Writer.
type Color struct {
	R, G, B float32
}

// NewColor creates a new Color
func NewColor(r, g, b float32) Color {
	return Color{R: r, G: g, B: b}
}

// Add returns the sum of two colors
func (c Color) Add(other Color) Color {
	return Color{c.R + other.R, c.G + other.G, c.B + other.B}
}

// Multiply returns the color scaled by a scalar
func (c Color) Multiply(scalar float32) Color {
	return Color{c.R * scalar, c.G * scalar, c.B * scalar}
}

// MultiplyColor returns component-wise multiplication of two colors
func (c Color) MultiplyColor(other Color) Color {
	return Color{c.R * other.R, c.G * other.G, c.B * other.B}
}

// Lerp returns the linear interpolation between two colors at t in [0,1]
func (c Color) Lerp(other Color, t float32) Color {
	return Color{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
	}
}

// Clamp returns a color with components clamped to [min, max]
func (c Color) Clamp(minVal, maxVal float32) Color {
	return Color{
		R: max(minVal, min(maxVal, c.R)),
		G: max(minVal, min(maxVal, c.G)),
		B: max(minVal, min(maxVal, c.B)),
	}
}

// GammaCorrect applies gamma correction for display
func (c Color) GammaCorrect(gamma float32) Color {
	invGamma := 1.0 / float64(gamma)
	return Color{
		R: float32(math.Pow(float64(c.R), invGamma)),
		G: float32(math.Pow(float64(c.G), invGamma)),
		B: float32(math.Pow(float64(c.B), invGamma)),
	}
}

// Luminance returns the perceptual luminance of the color
// Uses standard luminance weights: 0.299*R + 0.587*G + 0.114*B
func (c Color) Luminance() float32 {
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}
