package core

import "math"

// SampleCosineHemisphere generates a cosine-weighted random direction in the
// hemisphere around normal. u1 and u2 are uniform samples in [0, 1).
func SampleCosineHemisphere(normal Vec3, u1, u2 float32) Vec3 {
	// Point on the unit disk, lifted onto the hemisphere
	a := 2.0 * math.Pi * float64(u1)
	r := math.Sqrt(float64(u2))

	x := float32(r * math.Cos(a))
	y := float32(r * math.Sin(a))
	z := float32(math.Sqrt(math.Max(0, 1.0-float64(u2))))

	// Build an orthonormal basis around the normal
	var nt Vec3
	if math.Abs(float64(normal.X)) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}
	tangent := nt.Cross(normal).Normalize()
	bitangent := normal.Cross(tangent)

	return tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(z))
}
