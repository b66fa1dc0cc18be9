package render

import (
	"math"
	"math/rand"

	"github.com/df07/go-render-inspector/pkg/core"
)

// LightSample contains information about a sampled point on a light
type LightSample struct {
	Point     core.Vec3  // Point on the light source
	Direction core.Vec3  // Unit direction from the shading point to the light
	Distance  float32    // Distance to the light
	Emission  core.Color // Emitted radiance toward the shading point
	PDF       float32    // Solid-angle probability density of this sample
}

// Light can be sampled for direct lighting
type Light interface {
	// Sample picks a point on the light visible from p. ok is false when
	// the light cannot illuminate p, for example from its back side.
	Sample(p core.Vec3, rng *rand.Rand) (sample LightSample, ok bool)

	// PDF returns the solid-angle density of sampling direction dir from p
	PDF(p core.Vec3, dir core.Vec3) float32
}

// QuadLight is a one-sided rectangular area light. It emits on the side its
// normal (U cross V) points toward.
type QuadLight struct {
	Corner   core.Vec3
	U, V     core.Vec3
	Emission core.Color

	normal core.Vec3
	area   float32
}

// NewQuadLight creates a rectangular area light
func NewQuadLight(corner, u, v core.Vec3, emission core.Color) *QuadLight {
	cross := u.Cross(v)
	return &QuadLight{
		Corner:   corner,
		U:        u,
		V:        v,
		Emission: emission,
		normal:   cross.Normalize(),
		area:     cross.Length(),
	}
}

// Sample picks a uniform point on the panel and converts its area density
// to a solid-angle density at p
func (q *QuadLight) Sample(p core.Vec3, rng *rand.Rand) (LightSample, bool) {
	target := q.Corner.
		Add(q.U.Multiply(rng.Float32())).
		Add(q.V.Multiply(rng.Float32()))

	toLight := target.Subtract(p)
	distanceSq := toLight.LengthSquared()
	if distanceSq == 0 {
		return LightSample{}, false
	}
	distance := float32(math.Sqrt(float64(distanceSq)))
	direction := toLight.Multiply(1.0 / distance)

	// cos between the light normal and the direction back toward p
	cosLight := -direction.Dot(q.normal)
	if cosLight <= 0 {
		return LightSample{}, false
	}

	return LightSample{
		Point:     target,
		Direction: direction,
		Distance:  distance,
		Emission:  q.Emission,
		PDF:       distanceSq / (cosLight * q.area),
	}, true
}

// PDF returns the solid-angle density of reaching the panel along dir from p
func (q *QuadLight) PDF(p core.Vec3, dir core.Vec3) float32 {
	denominator := dir.Dot(q.normal)
	if float32(math.Abs(float64(denominator))) < 1e-7 {
		return 0
	}

	// Ray-plane intersection, then a barycentric bounds check
	t := q.normal.Dot(q.Corner.Subtract(p)) / denominator
	if t <= 1e-4 {
		return 0
	}
	hitPoint := p.Add(dir.Multiply(t))
	hitVector := hitPoint.Subtract(q.Corner)

	w := q.normal.Multiply(1.0 / q.normal.Dot(q.U.Cross(q.V)))
	alpha := w.Dot(hitVector.Cross(q.V))
	beta := w.Dot(q.U.Cross(hitVector))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return 0
	}

	cosLight := -dir.Dot(q.normal)
	if cosLight <= 0 {
		return 0
	}

	distanceSq := hitPoint.Subtract(p).LengthSquared()
	return distanceSq / (cosLight * q.area)
}

// SampleLight picks one light uniformly and samples it, folding the
// selection probability into the sample's PDF
func SampleLight(lights []Light, p core.Vec3, rng *rand.Rand) (LightSample, bool) {
	if len(lights) == 0 {
		return LightSample{}, false
	}

	light := lights[rng.Intn(len(lights))]
	sample, ok := light.Sample(p, rng)
	if !ok {
		return LightSample{}, false
	}

	sample.PDF /= float32(len(lights))
	return sample, true
}

// CalculateLightPDF returns the combined density of sampling dir from p
// across all lights under uniform light selection
func CalculateLightPDF(lights []Light, p core.Vec3, dir core.Vec3) float32 {
	if len(lights) == 0 {
		return 0
	}

	var total float32
	for _, light := range lights {
		total += light.PDF(p, dir)
	}
	return total / float32(len(lights))
}

// PowerHeuristic computes the multiple importance sampling weight for a
// strategy taking nf samples with density fPdf against one taking ng
// samples with density gPdf
func PowerHeuristic(nf int, fPdf float32, ng int, gPdf float32) float32 {
	f := float32(nf) * fPdf
	g := float32(ng) * gPdf
	denominator := f*f + g*g
	if denominator == 0 {
		return 0
	}
	return f * f / denominator
}
