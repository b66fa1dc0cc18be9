package heatmap

import (
	"sync/atomic"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/scenedata"
)

// Tessellation adaptively refines a base triangle mesh by loop
// subdivision: a face splits into four children by connecting its edge
// midpoints. Faces and vertices share one id space with the base mesh;
// ids below the base counts address base geometry, ids above address
// subdivision extras. A subdivided face keeps its id but stops being a
// leaf.
//
// Methods are not synchronized; the owning mesh heatmap serializes
// access (subdivision under its write lock, lookups under its read lock).
type Tessellation struct {
	base *scenedata.Mesh

	// vertices and faces added by subdivision; subdivided faces stay in
	// place so ids remain stable
	verts []core.Vec3
	faces [][3]uint32

	// base id of the four children per face, 0 while the face is a leaf
	subdivisions []uint32

	// midpoint vertex by (low, high) edge endpoints, shared between the
	// two faces adjacent to an edge
	midpoints map[[2]uint32]uint32

	// shared node budget, decremented by four per subdivision
	budget *atomic.Int64
}

// NewTessellation wraps a base mesh. Subdivisions draw from the shared
// budget counter.
func NewTessellation(base *scenedata.Mesh, budget *atomic.Int64) *Tessellation {
	return &Tessellation{
		base:         base,
		subdivisions: make([]uint32, len(base.Triangles)),
		midpoints:    make(map[[2]uint32]uint32),
		budget:       budget,
	}
}

// BaseMesh returns the mesh this tessellation refines
func (t *Tessellation) BaseMesh() *scenedata.Mesh { return t.base }

// NumBaseFaces returns the face count of the base mesh
func (t *Tessellation) NumBaseFaces() uint32 { return uint32(len(t.base.Triangles)) }

// NumFaces returns the total face count, including subdivided faces
func (t *Tessellation) NumFaces() uint32 {
	return uint32(len(t.base.Triangles) + len(t.faces))
}

// NumLeafFaces returns the number of current leaf faces
func (t *Tessellation) NumLeafFaces() uint32 {
	// each subdivision adds four faces and retires one
	return t.NumBaseFaces() + 3*uint32(len(t.faces)/4)
}

// NumVertices returns the total vertex count
func (t *Tessellation) NumVertices() uint32 {
	return uint32(len(t.base.Vertices) + len(t.verts))
}

// Face returns the vertex ids of a face
func (t *Tessellation) Face(id uint32) [3]uint32 {
	if int(id) < len(t.base.Triangles) {
		return t.base.Triangles[id]
	}
	return t.faces[int(id)-len(t.base.Triangles)]
}

// Vertex returns the position of a vertex
func (t *Tessellation) Vertex(id uint32) core.Vec3 {
	if int(id) < len(t.base.Vertices) {
		return t.base.Vertices[id]
	}
	return t.verts[int(id)-len(t.base.Vertices)]
}

// IsSubdivided reports whether a face has been replaced by children
func (t *Tessellation) IsSubdivided(id uint32) bool { return t.subdivisions[id] != 0 }

// SubdivisionID returns the base id of a face's children, 0 for leaves
func (t *Tessellation) SubdivisionID(id uint32) uint32 { return t.subdivisions[id] }

// SubdivideFace splits a leaf face into four children. If the face is
// already subdivided, the existing children's base id is returned.
// Returns 0 when the shared budget is exhausted.
func (t *Tessellation) SubdivideFace(face uint32) uint32 {
	if sub := t.subdivisions[face]; sub != 0 {
		return sub
	}
	if t.budget.Add(-4) < 0 {
		t.budget.Add(4)
		return 0
	}

	ids := t.Face(face)

	// midpoints sit on the edge opposite their corner vertex
	midA := t.midpoint(ids[1], ids[2])
	midB := t.midpoint(ids[2], ids[0])
	midC := t.midpoint(ids[0], ids[1])

	sub := t.NumFaces()

	// counter-clockwise winding preserves the face normal; the child
	// order (corner a, corner b, corner c, middle) is what Locate relies on
	t.faces = append(t.faces,
		[3]uint32{ids[0], midC, midB},
		[3]uint32{ids[1], midA, midC},
		[3]uint32{ids[2], midB, midA},
		[3]uint32{midA, midB, midC},
	)
	t.subdivisions = append(t.subdivisions, 0, 0, 0, 0)
	t.subdivisions[face] = sub

	return sub
}

// midpoint returns the vertex halfway between a and b, creating it on
// first use
func (t *Tessellation) midpoint(a, b uint32) uint32 {
	if b < a {
		a, b = b, a
	}
	key := [2]uint32{a, b}
	if id, ok := t.midpoints[key]; ok {
		return id
	}

	id := t.NumVertices()
	t.verts = append(t.verts, core.Midpoint(t.Vertex(a), t.Vertex(b)))
	t.midpoints[key] = id
	return id
}

// Locate descends from a face to the leaf whose region contains p.
// At each level, testing p against the middle child's edges classifies
// it into one of the four children.
func (t *Tessellation) Locate(p core.Vec3, face uint32) uint32 {
	for {
		sub := t.subdivisions[face]
		if sub == 0 {
			return face
		}

		mid := t.Face(sub + 3)
		a := t.Vertex(mid[0])
		b := t.Vertex(mid[1])
		c := t.Vertex(mid[2])

		ab := b.Subtract(a)
		ac := c.Subtract(a)
		up := ab.Cross(ac)
		ap := p.Subtract(a)

		crossB := ap.Cross(ac)
		crossC := ab.Cross(ap)

		switch {
		case up.Dot(crossB) < 0:
			// p lies beyond the edge shared with corner b
			face = sub + 1
		case up.Dot(crossC) < 0:
			// p lies beyond the edge shared with corner c
			face = sub + 2
		case crossB.Length()+crossC.Length() > up.Length():
			// the two outer barycentric areas exceed the whole triangle,
			// so p can only be beyond the edge shared with corner a
			face = sub + 0
		default:
			face = sub + 3
		}
	}
}

// TessellatedVertices returns all vertex positions, base then extras
func (t *Tessellation) TessellatedVertices() []core.Vec3 {
	out := make([]core.Vec3, 0, t.NumVertices())
	out = append(out, t.base.Vertices...)
	out = append(out, t.verts...)
	return out
}

// TessellatedFaces returns the current leaf faces in id order, omitting
// faces replaced by subdivision
func (t *Tessellation) TessellatedFaces() [][3]uint32 {
	out := make([][3]uint32, 0, t.NumLeafFaces())
	for id := uint32(0); id < t.NumFaces(); id++ {
		if t.subdivisions[id] == 0 {
			out = append(out, t.Face(id))
		}
	}
	return out
}
