package capture

import (
	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/wire"
)

// Intersection holds one bounce's geometric and radiometric data plus
// dynamic attributes. Optional fields carry explicit has-flags; only
// stamped intersections (those whose depth the renderer visited) are
// serialized.
type Intersection struct {
	Bag      Bag
	DepthIdx uint32
	Valid    bool

	HasPos bool
	Pos    core.Vec3

	HasNEE     bool
	NEEPos     core.Vec3
	NEEVisible bool

	HasEstimate bool
	Estimate    core.Color

	HasEmission bool
	Emission    core.Color
}

// SetPos records the intersection position
func (its *Intersection) SetPos(pos core.Vec3) {
	its.HasPos = true
	its.Pos = pos
}

// SetNextEventEstimation records the NEE target position and its visibility
func (its *Intersection) SetNextEventEstimation(pos core.Vec3, visible bool) {
	its.HasNEE = true
	its.NEEPos = pos
	its.NEEVisible = visible
}

// SetEstimate records the local radiance estimate at this bounce
func (its *Intersection) SetEstimate(li core.Color) {
	its.HasEstimate = true
	its.Estimate = li
}

// SetEmission records the emission picked up at this bounce
func (its *Intersection) SetEmission(le core.Color) {
	its.HasEmission = true
	its.Emission = le
}

// Serialize writes the bag, the depth index, and each optional field
// guarded by its has-flag
func (its *Intersection) Serialize(w *wire.Writer) {
	its.Bag.Serialize(w)

	w.WriteUInt(its.DepthIdx)

	w.WriteBool(its.HasPos)
	if its.HasPos {
		w.WriteVec3(its.Pos)
	}

	w.WriteBool(its.HasNEE)
	if its.HasNEE {
		w.WriteVec3(its.NEEPos)
		w.WriteBool(its.NEEVisible)
	}

	w.WriteBool(its.HasEstimate)
	if its.HasEstimate {
		w.WriteColor(its.Estimate)
	}

	w.WriteBool(its.HasEmission)
	if its.HasEmission {
		w.WriteColor(its.Emission)
	}
}

// DeserializeIntersection reads an Intersection written by Serialize
func DeserializeIntersection(r *wire.Reader) (Intersection, error) {
	var its Intersection
	bag, err := DeserializeBag(r)
	if err != nil {
		return its, err
	}
	its.Bag = bag
	its.Valid = true
	its.DepthIdx = r.ReadUInt()

	if its.HasPos = r.ReadBool(); its.HasPos {
		its.Pos = r.ReadVec3()
	}
	if its.HasNEE = r.ReadBool(); its.HasNEE {
		its.NEEPos = r.ReadVec3()
		its.NEEVisible = r.ReadBool()
	}
	if its.HasEstimate = r.ReadBool(); its.HasEstimate {
		its.Estimate = r.ReadColor()
	}
	if its.HasEmission = r.ReadBool(); its.HasEmission {
		its.Emission = r.ReadColor()
	}
	return its, r.Err()
}

// Path holds one sample's trajectory: its origin, final estimate, dynamic
// attributes and the ordered intersections along the path.
type Path struct {
	Bag       Bag
	SampleIdx uint32
	PathDepth uint32
	Origin    core.Vec3

	HasFinalEstimate bool
	FinalEstimate    core.Color

	Intersections []Intersection
}

// EnsureDepth grows the intersection sequence to include depth d, stamps
// that intersection and returns it. PathDepth tracks the deepest stamped
// index.
func (p *Path) EnsureDepth(d uint32) *Intersection {
	if int(d) >= len(p.Intersections) {
		for uint32(len(p.Intersections)) <= d {
			p.Intersections = append(p.Intersections, Intersection{})
		}
		p.PathDepth = d
	}
	its := &p.Intersections[d]
	its.Valid = true
	its.DepthIdx = d
	return its
}

// SetOrigin records the path origin
func (p *Path) SetOrigin(origin core.Vec3) {
	p.Origin = origin
}

// SetFinalEstimate records the final radiometric estimate of the path
func (p *Path) SetFinalEstimate(li core.Color) {
	p.HasFinalEstimate = true
	p.FinalEstimate = li
}

// Serialize writes the bag, sample index, path depth, origin, the flagged
// final estimate, and the stamped intersections in depth order
func (p *Path) Serialize(w *wire.Writer) {
	p.Bag.Serialize(w)

	w.WriteUInt(p.SampleIdx)
	w.WriteUInt(p.PathDepth)

	w.WriteVec3(p.Origin)

	w.WriteBool(p.HasFinalEstimate)
	if p.HasFinalEstimate {
		w.WriteColor(p.FinalEstimate)
	}

	var valid uint32
	for i := range p.Intersections {
		if p.Intersections[i].Valid {
			valid++
		}
	}
	w.WriteUInt(valid)
	for i := range p.Intersections {
		if p.Intersections[i].Valid {
			p.Intersections[i].Serialize(w)
		}
	}
}

// DeserializePath reads a Path written by Serialize
func DeserializePath(r *wire.Reader) (Path, error) {
	var p Path
	bag, err := DeserializeBag(r)
	if err != nil {
		return p, err
	}
	p.Bag = bag
	p.SampleIdx = r.ReadUInt()
	p.PathDepth = r.ReadUInt()
	p.Origin = r.ReadVec3()

	if p.HasFinalEstimate = r.ReadBool(); p.HasFinalEstimate {
		p.FinalEstimate = r.ReadColor()
	}

	count := r.ReadUInt()
	if r.Err() != nil {
		return p, r.Err()
	}
	for i := uint32(0); i < count; i++ {
		its, err := DeserializeIntersection(r)
		if err != nil {
			return p, err
		}
		p.Intersections = append(p.Intersections, its)
	}
	return p, r.Err()
}

// reset empties the path in place, keeping its stamped sample index
func (p *Path) reset() {
	p.Bag = nil
	p.PathDepth = 0
	p.Origin = core.Vec3{}
	p.HasFinalEstimate = false
	p.FinalEstimate = core.Color{}
	p.Intersections = p.Intersections[:0]
}
