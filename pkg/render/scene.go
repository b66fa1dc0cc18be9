package render

import (
	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/scenedata"
)

// Scene contains all the elements needed for rendering. Triangle meshes are
// kept in client proxy form alongside their renderable shapes; the slice
// index of a proxy in Meshes is its heatmap mesh id.
type Scene struct {
	Name   string
	Camera *Camera
	Shapes []Shape
	Lights []Light
	Meshes []*scenedata.Mesh
	BVH    *BVH

	BackgroundTop    core.Color
	BackgroundBottom core.Color

	spheres []*Sphere
}

// AddMesh registers a mesh proxy and adds its renderable form to the scene
func (s *Scene) AddMesh(data *scenedata.Mesh, material Material) *TriangleMesh {
	meshID := uint32(len(s.Meshes))
	s.Meshes = append(s.Meshes, data)

	mesh := NewTriangleMesh(meshID, data, material)
	s.Shapes = append(s.Shapes, mesh)
	return mesh
}

// AddSphere adds an analytic sphere to the scene
func (s *Scene) AddSphere(center core.Vec3, radius float32, material Material) *Sphere {
	sphere := NewSphere(center, radius, material)
	s.Shapes = append(s.Shapes, sphere)
	s.spheres = append(s.spheres, sphere)
	return sphere
}

// AddQuadLight adds a rectangular area light backed by an emissive
// two-triangle mesh, so light hits aggregate into the heatmap like any
// other mesh face
func (s *Scene) AddQuadLight(corner, u, v core.Vec3, emission core.Color) *QuadLight {
	light := NewQuadLight(corner, u, v, emission)
	s.Lights = append(s.Lights, light)

	panel := quadMesh(corner, u, v, emission)
	s.AddMesh(panel, NewEmissive(emission))
	return light
}

// Spheres returns the client proxies of the scene's spheres
func (s *Scene) Spheres() []*scenedata.Sphere {
	proxies := make([]*scenedata.Sphere, len(s.spheres))
	for i, sphere := range s.spheres {
		proxies[i] = sphere.Describe()
	}
	return proxies
}

// Preprocess builds the acceleration structure. Call after all shapes are
// added and after any reload.
func (s *Scene) Preprocess() {
	s.BVH = NewBVH(s.Shapes)
}

// Background returns the environment color for a ray that escaped the scene
func (s *Scene) Background(ray core.Ray) core.Color {
	unit := ray.Direction.Normalize()
	t := 0.5 * (unit.Y + 1.0)
	return s.BackgroundBottom.Lerp(s.BackgroundTop, t)
}

// quadMesh builds a two-triangle mesh proxy for a rectangle. The winding
// makes the face normals follow u cross v.
func quadMesh(corner, u, v core.Vec3, diffuse core.Color) *scenedata.Mesh {
	return &scenedata.Mesh{
		Vertices: []core.Vec3{
			corner,
			corner.Add(u),
			corner.Add(u).Add(v),
			corner.Add(v),
		},
		Triangles:    [][3]uint32{{0, 1, 2}, {0, 2, 3}},
		DiffuseColor: diffuse,
	}
}

// NewCornellScene creates the classic Cornell box: five diffuse walls in a
// 555-unit cube, a ceiling panel light, and two spheres. Every wall is a
// two-triangle mesh so the heatmap has faces to aggregate on.
func NewCornellScene(width, height int) *Scene {
	const boxSize float32 = 555

	camera := NewCamera(CameraConfig{
		Center:   core.NewVec3(278, 278, -800),
		LookAt:   core.NewVec3(278, 278, 0),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     40,
		Width:    width,
		Height:   height,
		NearClip: 1,
		FarClip:  5000,
	})

	s := &Scene{
		Name:   "cornell",
		Camera: camera,
		// Black background: the box is lit only by its panel
		BackgroundTop:    core.NewColor(0, 0, 0),
		BackgroundBottom: core.NewColor(0, 0, 0),
	}

	white := core.NewColor(0.73, 0.73, 0.73)
	red := core.NewColor(0.65, 0.05, 0.05)
	green := core.NewColor(0.12, 0.45, 0.15)

	// Walls wound so the face normals point into the box
	floor := quadMesh(
		core.NewVec3(0, 0, 0),
		core.NewVec3(0, 0, boxSize),
		core.NewVec3(boxSize, 0, 0),
		white,
	)
	ceiling := quadMesh(
		core.NewVec3(0, boxSize, 0),
		core.NewVec3(boxSize, 0, 0),
		core.NewVec3(0, 0, boxSize),
		white,
	)
	backWall := quadMesh(
		core.NewVec3(0, 0, boxSize),
		core.NewVec3(0, boxSize, 0),
		core.NewVec3(boxSize, 0, 0),
		white,
	)
	leftWall := quadMesh(
		core.NewVec3(0, 0, 0),
		core.NewVec3(0, boxSize, 0),
		core.NewVec3(0, 0, boxSize),
		red,
	)
	rightWall := quadMesh(
		core.NewVec3(boxSize, 0, 0),
		core.NewVec3(0, 0, boxSize),
		core.NewVec3(0, boxSize, 0),
		green,
	)

	s.AddMesh(floor, NewLambertian(white))
	s.AddMesh(ceiling, NewLambertian(white))
	s.AddMesh(backWall, NewLambertian(white))
	s.AddMesh(leftWall, NewLambertian(red))
	s.AddMesh(rightWall, NewLambertian(green))

	// Ceiling panel light, slightly below the ceiling, facing down
	const lightSize float32 = 130
	lightOffset := (boxSize - lightSize) / 2
	s.AddQuadLight(
		core.NewVec3(lightOffset, boxSize-1, lightOffset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
		core.NewColor(15, 15, 15),
	)

	// Two spheres: a mirror on the left, a diffuse one on the right
	s.AddSphere(core.NewVec3(185, 82.5, 169), 82.5, NewMetal(core.NewColor(0.8, 0.8, 0.9), 0))
	s.AddSphere(core.NewVec3(370, 90, 351), 90, NewLambertian(core.NewColor(0.35, 0.45, 0.7)))

	return s
}

// FitMesh translates and uniformly scales a mesh proxy so its bounding box
// is centered on targetCenter with its longest side equal to targetSize.
// Used to drop arbitrary PLY models into a fixed-size scene.
func FitMesh(data *scenedata.Mesh, targetCenter core.Vec3, targetSize float32) {
	if len(data.Vertices) == 0 {
		return
	}

	bounds := core.NewAABBFromPoints(data.Vertices...)
	size := bounds.Size()
	longest := max(size.X, size.Y, size.Z)
	if longest == 0 {
		return
	}

	scale := targetSize / longest
	center := bounds.Center()
	for i, vertex := range data.Vertices {
		data.Vertices[i] = vertex.Subtract(center).Multiply(scale).Add(targetCenter)
	}
}
