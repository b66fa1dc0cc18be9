package render

import (
	"github.com/df07/go-render-inspector/pkg/core"
)

// PixelStats accumulates color samples for a single pixel
type PixelStats struct {
	ColorAccum  core.Color // RGB accumulator for the final result
	SampleCount int        // Number of samples taken
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.Color) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	ps.SampleCount++
}

// GetColor returns the current average color for this pixel
func (ps *PixelStats) GetColor() core.Color {
	if ps.SampleCount == 0 {
		return core.NewColor(0, 0, 0)
	}
	return ps.ColorAccum.Multiply(1.0 / float32(ps.SampleCount))
}
