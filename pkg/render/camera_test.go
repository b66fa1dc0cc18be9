package render

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-render-inspector/pkg/core"
)

func testCamera(width, height int) *Camera {
	return NewCamera(CameraConfig{
		Center:   core.NewVec3(0, 0, 0),
		LookAt:   core.NewVec3(0, 0, -1),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     90,
		Width:    width,
		Height:   height,
		NearClip: 0.1,
		FarClip:  100,
	})
}

func TestCamera_GetRay_Center(t *testing.T) {
	camera := testCamera(101, 101)
	random := rand.New(rand.NewSource(1))

	ray := camera.GetRay(50, 50, random)
	dir := ray.Direction.Normalize()

	// The center pixel looks straight down the view axis, give or take
	// one pixel of jitter
	tolerance := float32(0.02)
	if absf(dir.X) > tolerance || absf(dir.Y) > tolerance {
		t.Errorf("Expected center ray near (0,0,-1), got %v", dir)
	}
	if dir.Z >= 0 {
		t.Errorf("Expected center ray to look toward -z, got %v", dir)
	}
}

func TestCamera_GetRay_Corners(t *testing.T) {
	camera := testCamera(100, 100)
	random := rand.New(rand.NewSource(1))

	tests := []struct {
		name         string
		i, j         int
		wantX, wantY float32 // Expected direction signs
	}{
		{name: "top left", i: 0, j: 0, wantX: -1, wantY: 1},
		{name: "top right", i: 99, j: 0, wantX: 1, wantY: 1},
		{name: "bottom left", i: 0, j: 99, wantX: -1, wantY: -1},
		{name: "bottom right", i: 99, j: 99, wantX: 1, wantY: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := camera.GetRay(tt.i, tt.j, random)
			if ray.Direction.X*tt.wantX <= 0 {
				t.Errorf("Expected direction X sign %v, got %v", tt.wantX, ray.Direction.X)
			}
			if ray.Direction.Y*tt.wantY <= 0 {
				t.Errorf("Expected direction Y sign %v, got %v", tt.wantY, ray.Direction.Y)
			}
		})
	}
}

func TestCamera_GetRay_OriginatesAtCenter(t *testing.T) {
	config := CameraConfig{
		Center:   core.NewVec3(3, 4, 5),
		LookAt:   core.NewVec3(0, 0, 0),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     60,
		Width:    64,
		Height:   64,
		NearClip: 0.1,
		FarClip:  100,
	}
	camera := NewCamera(config)
	random := rand.New(rand.NewSource(2))

	ray := camera.GetRay(10, 20, random)
	if ray.Origin != config.Center {
		t.Errorf("Expected ray origin %v, got %v", config.Center, ray.Origin)
	}
}

func TestCamera_Describe(t *testing.T) {
	config := CameraConfig{
		Center:   core.NewVec3(278, 278, -800),
		LookAt:   core.NewVec3(278, 278, 0),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     40,
		Width:    512,
		Height:   512,
		NearClip: 1,
		FarClip:  5000,
	}
	camera := NewCamera(config)

	desc := camera.Describe()
	if desc.Origin != config.Center {
		t.Errorf("Expected origin %v, got %v", config.Center, desc.Origin)
	}
	if desc.Up != config.Up {
		t.Errorf("Expected up %v, got %v", config.Up, desc.Up)
	}
	if desc.NearClip != config.NearClip || desc.FarClip != config.FarClip {
		t.Errorf("Expected clips (%v, %v), got (%v, %v)", config.NearClip, config.FarClip, desc.NearClip, desc.FarClip)
	}
	if desc.FOV != config.VFov {
		t.Errorf("Expected fov %v, got %v", config.VFov, desc.FOV)
	}

	wantDir := core.NewVec3(0, 0, 1)
	if absf(desc.Direction.X-wantDir.X) > 1e-6 ||
		absf(desc.Direction.Y-wantDir.Y) > 1e-6 ||
		absf(desc.Direction.Z-wantDir.Z) > 1e-6 {
		t.Errorf("Expected direction %v, got %v", wantDir, desc.Direction)
	}
}

func TestCamera_FOVWidensView(t *testing.T) {
	random := rand.New(rand.NewSource(3))

	narrow := NewCamera(CameraConfig{
		Center: core.NewVec3(0, 0, 0), LookAt: core.NewVec3(0, 0, -1), Up: core.NewVec3(0, 1, 0),
		VFov: 30, Width: 100, Height: 100, NearClip: 0.1, FarClip: 100,
	})
	wide := NewCamera(CameraConfig{
		Center: core.NewVec3(0, 0, 0), LookAt: core.NewVec3(0, 0, -1), Up: core.NewVec3(0, 1, 0),
		VFov: 90, Width: 100, Height: 100, NearClip: 0.1, FarClip: 100,
	})

	// Top edge rays: the wide camera's should make a larger angle with the
	// view axis
	narrowDir := narrow.GetRay(50, 0, random).Direction.Normalize()
	wideDir := wide.GetRay(50, 0, random).Direction.Normalize()

	narrowAngle := math.Acos(float64(-narrowDir.Z))
	wideAngle := math.Acos(float64(-wideDir.Z))
	if wideAngle <= narrowAngle {
		t.Errorf("Expected wide fov angle %v > narrow fov angle %v", wideAngle, narrowAngle)
	}
}

func absf(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
