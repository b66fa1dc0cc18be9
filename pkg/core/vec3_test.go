package core

import (
	"testing"
)

func TestVec3_Cross(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vec3
		expected Vec3
	}{
		{
			name:     "X cross Y is Z",
			a:        NewVec3(1, 0, 0),
			b:        NewVec3(0, 1, 0),
			expected: NewVec3(0, 0, 1),
		},
		{
			name:     "Y cross Z is X",
			a:        NewVec3(0, 1, 0),
			b:        NewVec3(0, 0, 1),
			expected: NewVec3(1, 0, 0),
		},
		{
			name:     "Anti-commutative",
			a:        NewVec3(0, 1, 0),
			b:        NewVec3(1, 0, 0),
			expected: NewVec3(0, 0, -1),
		},
		{
			name:     "Parallel vectors give zero",
			a:        NewVec3(2, 4, 6),
			b:        NewVec3(1, 2, 3),
			expected: NewVec3(0, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.a.Cross(tt.b)

			const tolerance = 1e-6
			if result.Subtract(tt.expected).Length() > tolerance {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestVec3_Normalize(t *testing.T) {
	v := NewVec3(3, 4, 0).Normalize()
	if diff := v.Subtract(NewVec3(0.6, 0.8, 0)).Length(); diff > 1e-6 {
		t.Errorf("Expected (0.6, 0.8, 0), got %v", v)
	}

	// Zero vector stays zero instead of producing NaNs
	zero := Vec3{}.Normalize()
	if zero != (Vec3{}) {
		t.Errorf("Expected zero vector, got %v", zero)
	}
}

func TestVec3_Midpoint(t *testing.T) {
	m := Midpoint(NewVec3(0, 2, -4), NewVec3(2, 4, 4))
	if m != NewVec3(1, 3, 0) {
		t.Errorf("Expected (1, 3, 0), got %v", m)
	}
}

func TestRay_At(t *testing.T) {
	ray := NewRay(NewVec3(1, 0, 0), NewVec3(0, 2, 0))
	p := ray.At(0.5)
	if p != NewVec3(1, 1, 0) {
		t.Errorf("Expected (1, 1, 0), got %v", p)
	}
}

func TestColor_Lerp(t *testing.T) {
	a := NewColor(0, 0, 0)
	b := NewColor(1, 2, 4)

	mid := a.Lerp(b, 0.5)
	if mid != NewColor(0.5, 1, 2) {
		t.Errorf("Expected (0.5, 1, 2), got %v", mid)
	}
	if got := a.Lerp(b, 0); got != a {
		t.Errorf("Expected start color, got %v", got)
	}
	if got := a.Lerp(b, 1); got != b {
		t.Errorf("Expected end color, got %v", got)
	}
}

func TestColor_Clamp(t *testing.T) {
	c := NewColor(-0.5, 0.5, 1.5).Clamp(0, 1)
	if c != NewColor(0, 0.5, 1) {
		t.Errorf("Expected (0, 0.5, 1), got %v", c)
	}
}

func TestColor_Luminance(t *testing.T) {
	// Luminance weights sum to 1, so white has luminance 1
	if lum := NewColor(1, 1, 1).Luminance(); lum < 0.999 || lum > 1.001 {
		t.Errorf("Expected luminance 1 for white, got %v", lum)
	}

	// Green dominates the weighting
	if NewColor(0, 1, 0).Luminance() <= NewColor(1, 0, 0).Luminance() {
		t.Error("Expected green to carry more luminance than red")
	}
}
