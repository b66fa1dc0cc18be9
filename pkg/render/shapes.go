package render

import (
	"math"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/scenedata"
)

// Shape is an object that can be hit by rays. Hit fills the passed record
// in place and returns true when the ray intersects within (tMin, tMax).
type Shape interface {
	Hit(ray core.Ray, tMin, tMax float32, hit *HitRecord) bool
	BoundingBox() core.AABB
}

// Sphere represents an analytic sphere shape
type Sphere struct {
	Center   core.Vec3
	Radius   float32
	Material Material
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float32, material Material) *Sphere {
	return &Sphere{Center: center, Radius: radius, Material: material}
}

// Hit tests if a ray intersects with the sphere
func (s *Sphere) Hit(ray core.Ray, tMin, tMax float32, hit *HitRecord) bool {
	oc := ray.Origin.Subtract(s.Center)

	// Quadratic at² + 2bt + c = 0 with b halved
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return false
	}

	sqrtD := float32(math.Sqrt(float64(discriminant)))

	// Closer intersection first, then the far one
	root := (-halfB - sqrtD) / a
	if root < tMin || root > tMax {
		root = (-halfB + sqrtD) / a
		if root < tMin || root > tMax {
			return false
		}
	}

	hit.T = root
	hit.Point = ray.At(root)
	hit.Material = s.Material
	hit.MeshID, hit.FaceID, hit.HasFace = 0, 0, false

	outwardNormal := hit.Point.Subtract(s.Center).Multiply(1.0 / s.Radius)
	hit.SetFaceNormal(ray, outwardNormal)

	return true
}

// BoundingBox returns the axis-aligned bounding box for this sphere
func (s *Sphere) BoundingBox() core.AABB {
	radius := core.NewVec3(s.Radius, s.Radius, s.Radius)
	return core.NewAABB(
		s.Center.Subtract(radius),
		s.Center.Add(radius),
	)
}

// Describe returns the sphere in client proxy form
func (s *Sphere) Describe() *scenedata.Sphere {
	proxy := &scenedata.Sphere{Center: s.Center, Radius: s.Radius}
	switch mat := s.Material.(type) {
	case *Lambertian:
		proxy.DiffuseColor = mat.Albedo
	case *Metal:
		proxy.SpecularColor = mat.Albedo
	case *Emissive:
		proxy.DiffuseColor = mat.Emission
	}
	return proxy
}

// Triangle is a single face of a triangle mesh. It carries the identity of
// its mesh and face so hits can be attributed for heatmap aggregation.
type Triangle struct {
	v0, v1, v2 core.Vec3
	normal     core.Vec3
	bbox       core.AABB
	material   Material
	meshID     uint32
	faceID     uint32
}

// NewTriangle creates a triangle belonging to face faceID of mesh meshID
func NewTriangle(v0, v1, v2 core.Vec3, material Material, meshID, faceID uint32) *Triangle {
	edge1 := v1.Subtract(v0)
	edge2 := v2.Subtract(v0)

	return &Triangle{
		v0: v0, v1: v1, v2: v2,
		normal:   edge1.Cross(edge2).Normalize(),
		bbox:     core.NewAABBFromPoints(v0, v1, v2),
		material: material,
		meshID:   meshID,
		faceID:   faceID,
	}
}

// Hit tests ray-triangle intersection using the Möller-Trumbore algorithm
func (t *Triangle) Hit(ray core.Ray, tMin, tMax float32, hit *HitRecord) bool {
	const epsilon = 1e-7

	edge1 := t.v1.Subtract(t.v0)
	edge2 := t.v2.Subtract(t.v0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// Ray parallel to the triangle plane
	if a > -epsilon && a < epsilon {
		return false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return false
	}

	tParam := f * edge2.Dot(q)
	if tParam < tMin || tParam > tMax {
		return false
	}

	hit.T = tParam
	hit.Point = ray.At(tParam)
	hit.Material = t.material
	hit.MeshID = t.meshID
	hit.FaceID = t.faceID
	hit.HasFace = true
	hit.SetFaceNormal(ray, t.normal)

	return true
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t *Triangle) BoundingBox() core.AABB {
	return t.bbox
}

// TriangleMesh is the renderable form of a client mesh proxy. The proxy is
// the source of truth: triangles are built from its vertices and faces, and
// hits report the proxy's heatmap mesh id.
type TriangleMesh struct {
	MeshID    uint32
	Data      *scenedata.Mesh
	triangles []Shape
	bvh       *BVH
}

// NewTriangleMesh builds renderable triangles from a mesh proxy
func NewTriangleMesh(meshID uint32, data *scenedata.Mesh, material Material) *TriangleMesh {
	triangles := make([]Shape, len(data.Triangles))
	for i, tri := range data.Triangles {
		triangles[i] = NewTriangle(
			data.Vertices[tri[0]],
			data.Vertices[tri[1]],
			data.Vertices[tri[2]],
			material,
			meshID,
			uint32(i),
		)
	}

	return &TriangleMesh{
		MeshID:    meshID,
		Data:      data,
		triangles: triangles,
		bvh:       NewBVH(triangles),
	}
}

// Hit tests if a ray intersects any triangle in the mesh
func (tm *TriangleMesh) Hit(ray core.Ray, tMin, tMax float32, hit *HitRecord) bool {
	return tm.bvh.Hit(ray, tMin, tMax, hit)
}

// BoundingBox returns the bounding box of the whole mesh
func (tm *TriangleMesh) BoundingBox() core.AABB {
	return tm.bvh.BoundingBox()
}

// TriangleCount returns the number of triangles in the mesh
func (tm *TriangleMesh) TriangleCount() int {
	return len(tm.triangles)
}
