package render

import (
	"math"
	"math/rand"

	"github.com/df07/go-render-inspector/pkg/core"
)

// Material scatters incoming rays at surface hits
type Material interface {
	Scatter(rayIn core.Ray, hit HitRecord, rng *rand.Rand) (ScatterResult, bool)
}

// Emitter is implemented by materials that emit light
type Emitter interface {
	Emit() core.Color
}

// ScatterResult contains the result of material scattering
type ScatterResult struct {
	Scattered   core.Ray   // The scattered ray
	Attenuation core.Color // Color attenuation
	PDF         float32    // Probability density, 0 for specular materials
}

// IsSpecular returns true if this is specular scattering (no PDF)
func (s ScatterResult) IsSpecular() bool {
	return s.PDF <= 0
}

// HitRecord contains information about a ray-surface intersection
type HitRecord struct {
	Point     core.Vec3 // Point of intersection
	Normal    core.Vec3 // Surface normal at intersection
	T         float32   // Parameter t along the ray
	FrontFace bool      // Whether the ray hit the front face
	Material  Material  // Material of the hit object

	// Face identity for heatmap aggregation. HasFace is false for shapes
	// that are not mirrored to the client as triangle meshes.
	MeshID  uint32
	FaceID  uint32
	HasFace bool
}

// SetFaceNormal sets the normal vector and determines front/back face
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}

// Lambertian represents a perfectly diffuse material
type Lambertian struct {
	Albedo core.Color
}

// NewLambertian creates a new lambertian material
func NewLambertian(albedo core.Color) *Lambertian {
	return &Lambertian{Albedo: albedo}
}

// Scatter implements cosine-weighted diffuse scattering
func (l *Lambertian) Scatter(rayIn core.Ray, hit HitRecord, rng *rand.Rand) (ScatterResult, bool) {
	direction := core.SampleCosineHemisphere(hit.Normal, rng.Float32(), rng.Float32())
	scattered := core.NewRay(hit.Point, direction)

	// PDF: cos(θ)/π for cosine-weighted hemisphere sampling
	cosTheta := direction.Normalize().Dot(hit.Normal)
	if cosTheta < 0 {
		cosTheta = 0
	}
	pdf := cosTheta / math.Pi

	// BRDF: albedo/π for energy conservation
	attenuation := l.Albedo.Multiply(1.0 / math.Pi)

	return ScatterResult{
		Scattered:   scattered,
		Attenuation: attenuation,
		PDF:         float32(pdf),
	}, true
}

// Metal represents a metallic material with specular reflection
type Metal struct {
	Albedo core.Color
	Fuzz   float32 // 0 = perfect mirror, 1 = very fuzzy
}

// NewMetal creates a new metal material, clamping fuzz to [0, 1]
func NewMetal(albedo core.Color, fuzz float32) *Metal {
	if fuzz > 1 {
		fuzz = 1
	}
	if fuzz < 0 {
		fuzz = 0
	}
	return &Metal{Albedo: albedo, Fuzz: fuzz}
}

// Scatter implements specular reflection with optional fuzz
func (m *Metal) Scatter(rayIn core.Ray, hit HitRecord, rng *rand.Rand) (ScatterResult, bool) {
	reflected := reflect(rayIn.Direction.Normalize(), hit.Normal)

	if m.Fuzz > 0 {
		reflected = reflected.Add(randomInUnitSphere(rng).Multiply(m.Fuzz))
	}

	scattered := core.NewRay(hit.Point, reflected)

	// Absorb rays scattered below the surface
	scatters := scattered.Direction.Dot(hit.Normal) > 0

	return ScatterResult{
		Scattered:   scattered,
		Attenuation: m.Albedo,
		PDF:         0,
	}, scatters
}

// Emissive represents a light-emitting material. It absorbs all incoming
// rays and only contributes emitted light.
type Emissive struct {
	Emission core.Color
}

// NewEmissive creates a new emissive material
func NewEmissive(emission core.Color) *Emissive {
	return &Emissive{Emission: emission}
}

// Scatter implements the Material interface; emissive materials never scatter
func (e *Emissive) Scatter(rayIn core.Ray, hit HitRecord, rng *rand.Rand) (ScatterResult, bool) {
	return ScatterResult{}, false
}

// Emit returns the emitted light for this material
func (e *Emissive) Emit() core.Color {
	return e.Emission
}

// reflect calculates the reflection of v off a surface with normal n
func reflect(v, n core.Vec3) core.Vec3 {
	return v.Subtract(n.Multiply(2 * v.Dot(n)))
}

// randomInUnitSphere generates a random point inside the unit sphere
func randomInUnitSphere(rng *rand.Rand) core.Vec3 {
	for {
		p := core.NewVec3(
			2*rng.Float32()-1,
			2*rng.Float32()-1,
			2*rng.Float32()-1,
		)
		if p.LengthSquared() <= 1 {
			return p
		}
	}
}
