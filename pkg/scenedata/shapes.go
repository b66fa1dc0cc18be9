package scenedata

import (
	"fmt"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/wire"
)

// Mesh is an indexed triangle mesh with optional per-face colors.
// FaceColors is either empty or holds exactly one color per triangle;
// heatmap proxy meshes use it to carry the finalized per-face values.
type Mesh struct {
	Vertices      []core.Vec3
	Triangles     [][3]uint32
	FaceColors    []core.Color
	DiffuseColor  core.Color
	SpecularColor core.Color
}

// Serialize writes the mesh as a shape record: type tag, packed vertex
// positions, packed triangle indices, packed face colors, then materials.
// Face colors are written as plain RGB triples, unpadded.
func (m *Mesh) Serialize(w *wire.Writer) error {
	if len(m.FaceColors) != 0 && len(m.FaceColors) != len(m.Triangles) {
		return fmt.Errorf("scenedata: %d face colors for %d triangles", len(m.FaceColors), len(m.Triangles))
	}

	w.WriteShort(wire.ShapeTriangleMesh)
	w.WriteUInt(uint32(len(m.Vertices)))
	for _, v := range m.Vertices {
		w.WriteVec3(v)
	}
	w.WriteUInt(uint32(len(m.Triangles)))
	for _, t := range m.Triangles {
		w.WriteUInt(t[0])
		w.WriteUInt(t[1])
		w.WriteUInt(t[2])
	}
	w.WriteUInt(uint32(len(m.FaceColors)))
	for _, c := range m.FaceColors {
		w.WriteFloat(c.R)
		w.WriteFloat(c.G)
		w.WriteFloat(c.B)
	}
	w.WriteColor(m.DiffuseColor)
	w.WriteColor(m.SpecularColor)
	return w.Err()
}

// DeserializeMesh reads a Mesh written by Serialize, including the leading
// shape type tag
func DeserializeMesh(r *wire.Reader) (Mesh, error) {
	var m Mesh
	if tag := r.ReadShort(); r.Err() == nil && tag != wire.ShapeTriangleMesh {
		return m, fmt.Errorf("scenedata: expected triangle mesh tag, got %d", tag)
	}
	nVerts := r.ReadUInt()
	if r.Err() != nil {
		return m, r.Err()
	}
	m.Vertices = make([]core.Vec3, nVerts)
	for i := range m.Vertices {
		m.Vertices[i] = r.ReadVec3()
	}
	nTris := r.ReadUInt()
	if r.Err() != nil {
		return m, r.Err()
	}
	m.Triangles = make([][3]uint32, nTris)
	for i := range m.Triangles {
		m.Triangles[i] = [3]uint32{r.ReadUInt(), r.ReadUInt(), r.ReadUInt()}
	}
	nColors := r.ReadUInt()
	if r.Err() != nil {
		return m, r.Err()
	}
	m.FaceColors = make([]core.Color, 0, nColors)
	for i := uint32(0); i < nColors; i++ {
		m.FaceColors = append(m.FaceColors, core.NewColor(r.ReadFloat(), r.ReadFloat(), r.ReadFloat()))
	}
	if nColors == 0 {
		m.FaceColors = nil
	}
	m.DiffuseColor = r.ReadColor()
	m.SpecularColor = r.ReadColor()
	return m, r.Err()
}

// Sphere is an analytic sphere shape
type Sphere struct {
	Center        core.Vec3
	Radius        float32
	DiffuseColor  core.Color
	SpecularColor core.Color
}

// Serialize writes the sphere as a shape record
func (s *Sphere) Serialize(w *wire.Writer) error {
	w.WriteShort(wire.ShapeSphere)
	w.WriteFloat(s.Radius)
	w.WriteVec3(s.Center)
	w.WriteColor(s.DiffuseColor)
	w.WriteColor(s.SpecularColor)
	return w.Err()
}
