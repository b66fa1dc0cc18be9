package render

import (
	"math/rand"
	"testing"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/scenedata"
)

func testMaterial() Material {
	return NewLambertian(core.NewColor(0.5, 0.5, 0.5))
}

func TestSphere_Hit_Miss(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, 0), 1.0, testMaterial())
	ray := core.NewRay(core.NewVec3(2, 0, 0), core.NewVec3(0, 1, 0))

	var hit HitRecord
	if sphere.Hit(ray, 0.001, 1000.0, &hit) {
		t.Errorf("Expected miss, but got hit at t=%f", hit.T)
	}
}

func TestSphere_Hit_FrontAndBackFace(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, 0), 1.0, testMaterial())

	tests := []struct {
		name           string
		rayOrigin      core.Vec3
		rayDirection   core.Vec3
		expectedT      float32
		expectedFront  bool
		expectedNormal core.Vec3
	}{
		{
			name:           "front face hit",
			rayOrigin:      core.NewVec3(0, 0, 2),
			rayDirection:   core.NewVec3(0, 0, -1),
			expectedT:      1.0,
			expectedFront:  true,
			expectedNormal: core.NewVec3(0, 0, 1),
		},
		{
			name:           "back face hit from inside",
			rayOrigin:      core.NewVec3(0, 0, 0),
			rayDirection:   core.NewVec3(0, 0, 1),
			expectedT:      1.0,
			expectedFront:  false,
			expectedNormal: core.NewVec3(0, 0, -1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(tt.rayOrigin, tt.rayDirection)
			var hit HitRecord
			if !sphere.Hit(ray, 0.001, 1000.0, &hit) {
				t.Fatal("Expected hit, but got miss")
			}

			if absf(hit.T-tt.expectedT) > 1e-5 {
				t.Errorf("Expected t=%f, got t=%f", tt.expectedT, hit.T)
			}
			if hit.FrontFace != tt.expectedFront {
				t.Errorf("Expected front face %t, got %t", tt.expectedFront, hit.FrontFace)
			}

			tolerance := float32(1e-5)
			if absf(hit.Normal.X-tt.expectedNormal.X) > tolerance ||
				absf(hit.Normal.Y-tt.expectedNormal.Y) > tolerance ||
				absf(hit.Normal.Z-tt.expectedNormal.Z) > tolerance {
				t.Errorf("Expected normal %v, got %v", tt.expectedNormal, hit.Normal)
			}
			if hit.HasFace {
				t.Error("Expected sphere hit to carry no mesh face")
			}
		})
	}
}

func TestSphere_Hit_Bounds(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, 0), 1.0, testMaterial())
	ray := core.NewRay(core.NewVec3(0, 0, 2), core.NewVec3(0, 0, -1))

	var hit HitRecord
	if sphere.Hit(ray, 0.001, 0.5, &hit) {
		t.Errorf("Expected miss due to tMax bound, but got hit at t=%f", hit.T)
	}
	if sphere.Hit(ray, 3.5, 1000.0, &hit) {
		t.Errorf("Expected miss due to tMin bound, but got hit at t=%f", hit.T)
	}
}

func TestSphere_Describe(t *testing.T) {
	tests := []struct {
		name         string
		material     Material
		wantDiffuse  core.Color
		wantSpecular core.Color
	}{
		{
			name:        "lambertian",
			material:    NewLambertian(core.NewColor(0.2, 0.4, 0.6)),
			wantDiffuse: core.NewColor(0.2, 0.4, 0.6),
		},
		{
			name:         "metal",
			material:     NewMetal(core.NewColor(0.8, 0.8, 0.9), 0),
			wantSpecular: core.NewColor(0.8, 0.8, 0.9),
		},
		{
			name:        "emissive",
			material:    NewEmissive(core.NewColor(5, 5, 5)),
			wantDiffuse: core.NewColor(5, 5, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sphere := NewSphere(core.NewVec3(1, 2, 3), 4, tt.material)
			proxy := sphere.Describe()

			if proxy.Center != core.NewVec3(1, 2, 3) || proxy.Radius != 4 {
				t.Errorf("Expected center (1,2,3) radius 4, got %v radius %v", proxy.Center, proxy.Radius)
			}
			if proxy.DiffuseColor != tt.wantDiffuse {
				t.Errorf("Expected diffuse %v, got %v", tt.wantDiffuse, proxy.DiffuseColor)
			}
			if proxy.SpecularColor != tt.wantSpecular {
				t.Errorf("Expected specular %v, got %v", tt.wantSpecular, proxy.SpecularColor)
			}
		})
	}
}

func TestTriangle_Hit(t *testing.T) {
	// Unit triangle in the z=0 plane, normal +z
	tri := NewTriangle(
		core.NewVec3(0, 0, 0),
		core.NewVec3(1, 0, 0),
		core.NewVec3(0, 1, 0),
		testMaterial(), 3, 7,
	)

	tests := []struct {
		name      string
		origin    core.Vec3
		direction core.Vec3
		wantHit   bool
		wantFront bool
	}{
		{name: "center hit", origin: core.NewVec3(0.25, 0.25, 1), direction: core.NewVec3(0, 0, -1), wantHit: true, wantFront: true},
		{name: "back face hit", origin: core.NewVec3(0.25, 0.25, -1), direction: core.NewVec3(0, 0, 1), wantHit: true, wantFront: false},
		{name: "outside edge", origin: core.NewVec3(0.9, 0.9, 1), direction: core.NewVec3(0, 0, -1), wantHit: false},
		{name: "parallel ray", origin: core.NewVec3(0.25, 0.25, 1), direction: core.NewVec3(1, 0, 0), wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(tt.origin, tt.direction)
			var hit HitRecord
			gotHit := tri.Hit(ray, 0.001, 1000.0, &hit)
			if gotHit != tt.wantHit {
				t.Fatalf("Expected hit=%t, got %t", tt.wantHit, gotHit)
			}
			if !gotHit {
				return
			}
			if hit.FrontFace != tt.wantFront {
				t.Errorf("Expected front face %t, got %t", tt.wantFront, hit.FrontFace)
			}
			if !hit.HasFace || hit.MeshID != 3 || hit.FaceID != 7 {
				t.Errorf("Expected mesh 3 face 7, got mesh %d face %d hasFace %t", hit.MeshID, hit.FaceID, hit.HasFace)
			}
		})
	}
}

func TestTriangleMesh_Hit_FaceIDs(t *testing.T) {
	// A unit quad split into two triangles in the z=0 plane
	data := &scenedata.Mesh{
		Vertices: []core.Vec3{
			core.NewVec3(0, 0, 0),
			core.NewVec3(1, 0, 0),
			core.NewVec3(1, 1, 0),
			core.NewVec3(0, 1, 0),
		},
		Triangles: [][3]uint32{{0, 1, 2}, {0, 2, 3}},
	}
	mesh := NewTriangleMesh(9, data, testMaterial())

	if mesh.TriangleCount() != 2 {
		t.Fatalf("Expected 2 triangles, got %d", mesh.TriangleCount())
	}

	tests := []struct {
		name       string
		origin     core.Vec3
		wantFaceID uint32
	}{
		{name: "lower right triangle", origin: core.NewVec3(0.75, 0.25, 1), wantFaceID: 0},
		{name: "upper left triangle", origin: core.NewVec3(0.25, 0.75, 1), wantFaceID: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(tt.origin, core.NewVec3(0, 0, -1))
			var hit HitRecord
			if !mesh.Hit(ray, 0.001, 1000.0, &hit) {
				t.Fatal("Expected hit, but got miss")
			}
			if hit.MeshID != 9 {
				t.Errorf("Expected mesh id 9, got %d", hit.MeshID)
			}
			if hit.FaceID != tt.wantFaceID {
				t.Errorf("Expected face id %d, got %d", tt.wantFaceID, hit.FaceID)
			}
		})
	}
}

func TestBVH_MatchesLinearScan(t *testing.T) {
	random := rand.New(rand.NewSource(7))
	material := testMaterial()

	shapes := make([]Shape, 0, 64)
	for i := 0; i < 64; i++ {
		center := core.NewVec3(
			random.Float32()*20-10,
			random.Float32()*20-10,
			random.Float32()*20-10,
		)
		shapes = append(shapes, NewSphere(center, 0.5+random.Float32(), material))
	}
	bvh := NewBVH(shapes)

	for i := 0; i < 200; i++ {
		origin := core.NewVec3(
			random.Float32()*30-15,
			random.Float32()*30-15,
			random.Float32()*30-15,
		)
		direction := core.NewVec3(
			random.Float32()*2-1,
			random.Float32()*2-1,
			random.Float32()*2-1,
		)
		if direction.Length() < 1e-3 {
			continue
		}
		ray := core.NewRay(origin, direction)

		var bvhHit HitRecord
		gotBVH := bvh.Hit(ray, 0.001, 1000.0, &bvhHit)

		var linearHit HitRecord
		gotLinear := false
		closest := float32(1000.0)
		for _, shape := range shapes {
			var h HitRecord
			if shape.Hit(ray, 0.001, closest, &h) {
				gotLinear = true
				closest = h.T
				linearHit = h
			}
		}

		if gotBVH != gotLinear {
			t.Fatalf("Ray %d: BVH hit=%t but linear scan hit=%t", i, gotBVH, gotLinear)
		}
		if gotBVH && absf(bvhHit.T-linearHit.T) > 1e-4 {
			t.Errorf("Ray %d: BVH t=%f but linear scan t=%f", i, bvhHit.T, linearHit.T)
		}
	}
}

func TestBVH_SingleShape(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, -5), 1, testMaterial())
	bvh := NewBVH([]Shape{sphere})

	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	var hit HitRecord
	if !bvh.Hit(ray, 0.001, 1000.0, &hit) {
		t.Fatal("Expected hit through single-shape BVH")
	}
	if absf(hit.T-4) > 1e-4 {
		t.Errorf("Expected t=4, got t=%f", hit.T)
	}

	miss := core.NewRay(core.NewVec3(0, 5, 0), core.NewVec3(0, 0, -1))
	if bvh.Hit(miss, 0.001, 1000.0, &hit) {
		t.Error("Expected miss for ray outside the sphere")
	}
}
