package capture

import (
	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/wire"
)

// Store owns one Path record per (pixel, sample) of the current render
// configuration, laid out in a single preallocated array addressed by
// Index. The renderer drives it through a small cursor (current pixel,
// sample and depth); every write is a no-op while collection is disabled,
// so instrumentation calls can stay in the render loop at negligible cost.
//
// The store is single-writer: concurrent renderer threads must address
// disjoint pixels or synchronize externally.
type Store struct {
	height  uint32
	width   uint32
	samples uint32
	records []Path

	collecting bool

	x, y      uint32
	hasPixel  bool
	sampleIdx uint32
	hasSample bool
	depthIdx  uint32
	hasDepth  bool
}

// NewStore creates an empty store; Initialize must be called before use
func NewStore() *Store {
	return &Store{}
}

// Initialize (re)allocates height*width*sampleCount empty records and
// resets the cursor. Returns InvalidDimensionError if any argument is zero.
func (s *Store) Initialize(height, width, sampleCount uint32) error {
	if height == 0 || width == 0 || sampleCount == 0 {
		return &InvalidDimensionError{Height: height, Width: width, SampleCount: sampleCount}
	}
	s.height = height
	s.width = width
	s.samples = sampleCount
	s.records = make([]Path, height*width*sampleCount)
	// stamp each record's sample index; the layout makes it deterministic
	for i := range s.records {
		s.records[i].SampleIdx = uint32(i) % sampleCount
	}
	s.resetCursor()
	return nil
}

// Height returns the configured image height
func (s *Store) Height() uint32 { return s.height }

// Width returns the configured image width
func (s *Store) Width() uint32 { return s.width }

// SampleCount returns the configured samples per pixel
func (s *Store) SampleCount() uint32 { return s.samples }

// Index returns the linear record index for (x, y, c).
// Valid only for x < width, y < height, c < sampleCount.
func (s *Store) Index(x, y, c uint32) uint32 {
	return y*(s.width*s.samples) + x*s.samples + c
}

// Enable turns sample collection on; existing data is kept
func (s *Store) Enable() { s.collecting = true }

// Disable turns sample collection off; existing data is kept
func (s *Store) Disable() { s.collecting = false }

// IsCollecting reports whether writes are currently applied
func (s *Store) IsCollecting() bool { return s.collecting }

// Clear empties every record in place, keeping the allocation parameters
func (s *Store) Clear() {
	for i := range s.records {
		s.records[i].reset()
	}
	s.resetCursor()
}

func (s *Store) resetCursor() {
	s.hasPixel = false
	s.hasSample = false
	s.hasDepth = false
}

// SetPixel moves the cursor to a pixel and unsets the sample and depth
// cursors. Bounds are validated lazily on the next write.
func (s *Store) SetPixel(x, y uint32) {
	if !s.collecting {
		return
	}
	s.x, s.y = x, y
	s.hasPixel = true
	s.hasSample = false
	s.hasDepth = false
}

// SetSampleIdx moves the cursor to a sample of the current pixel and
// unsets the depth cursor
func (s *Store) SetSampleIdx(c uint32) {
	if !s.collecting {
		return
	}
	s.sampleIdx = c
	s.hasSample = true
	s.hasDepth = false
}

// SetDepthIdx moves the depth cursor and stamps the intersection at that
// depth on the current record, growing the path as needed
func (s *Store) SetDepthIdx(d uint32) error {
	if !s.collecting {
		return nil
	}
	record, err := s.current()
	if err != nil {
		return err
	}
	s.depthIdx = d
	s.hasDepth = true
	record.EnsureDepth(d)
	return nil
}

// current resolves the cursor to its record, validating bounds
func (s *Store) current() (*Path, error) {
	if !s.hasPixel || !s.hasSample || s.x >= s.width || s.y >= s.height || s.sampleIdx >= s.samples {
		return nil, &OutOfRangeError{
			X: s.x, Y: s.y, SampleIdx: s.sampleIdx,
			Index: uint32(len(s.records)), Size: uint32(len(s.records)),
		}
	}
	return &s.records[s.Index(s.x, s.y, s.sampleIdx)], nil
}

// currentIntersection resolves the depth cursor; ok is false when the
// depth cursor is unset, which callers treat as a silent no-op
func (s *Store) currentIntersection() (*Intersection, bool, error) {
	if !s.hasDepth {
		return nil, false, nil
	}
	record, err := s.current()
	if err != nil {
		return nil, false, err
	}
	return record.EnsureDepth(s.depthIdx), true, nil
}

// SetPathOrigin records the origin of the current path
func (s *Store) SetPathOrigin(origin core.Vec3) error {
	if !s.collecting {
		return nil
	}
	record, err := s.current()
	if err != nil {
		return err
	}
	record.SetOrigin(origin)
	return nil
}

// SetFinalEstimate records the final estimate of the current path
func (s *Store) SetFinalEstimate(li core.Color) error {
	if !s.collecting {
		return nil
	}
	record, err := s.current()
	if err != nil {
		return err
	}
	record.SetFinalEstimate(li)
	return nil
}

// SetIntersectionPos records the position of the current intersection.
// No-op while the depth cursor is unset.
func (s *Store) SetIntersectionPos(pos core.Vec3) error {
	if !s.collecting {
		return nil
	}
	its, ok, err := s.currentIntersection()
	if !ok {
		return err
	}
	its.SetPos(pos)
	return nil
}

// SetNextEventEstimationPos records the NEE target of the current
// intersection. No-op while the depth cursor is unset.
func (s *Store) SetNextEventEstimationPos(pos core.Vec3, visible bool) error {
	if !s.collecting {
		return nil
	}
	its, ok, err := s.currentIntersection()
	if !ok {
		return err
	}
	its.SetNextEventEstimation(pos, visible)
	return nil
}

// SetIntersectionEstimate records the local radiance estimate of the
// current intersection. No-op while the depth cursor is unset.
func (s *Store) SetIntersectionEstimate(li core.Color) error {
	if !s.collecting {
		return nil
	}
	its, ok, err := s.currentIntersection()
	if !ok {
		return err
	}
	its.SetEstimate(li)
	return nil
}

// SetIntersectionEmission records the emission of the current
// intersection. No-op while the depth cursor is unset.
func (s *Store) SetIntersectionEmission(le core.Color) error {
	if !s.collecting {
		return nil
	}
	its, ok, err := s.currentIntersection()
	if !ok {
		return err
	}
	its.SetEmission(le)
	return nil
}

// AddPathValue appends a dynamic attribute to the current path record
func (s *Store) AddPathValue(name string, v Value) error {
	if !s.collecting {
		return nil
	}
	record, err := s.current()
	if err != nil {
		return err
	}
	record.Bag.Add(name, v)
	return nil
}

// AddIntersectionValue appends a dynamic attribute to the current
// intersection. No-op while the depth cursor is unset.
func (s *Store) AddIntersectionValue(name string, v Value) error {
	if !s.collecting {
		return nil
	}
	its, ok, err := s.currentIntersection()
	if !ok {
		return err
	}
	its.Bag.Add(name, v)
	return nil
}

// Typed conveniences over AddPathValue / AddIntersectionValue.

func (s *Store) AddPathBool(name string, v bool) error      { return s.AddPathValue(name, Bool(v)) }
func (s *Store) AddPathFloat(name string, v float32) error  { return s.AddPathValue(name, Float(v)) }
func (s *Store) AddPathDouble(name string, v float64) error { return s.AddPathValue(name, Double(v)) }
func (s *Store) AddPathInt(name string, v int32) error      { return s.AddPathValue(name, Int(v)) }
func (s *Store) AddPathString(name string, v string) error  { return s.AddPathValue(name, String(v)) }
func (s *Store) AddPathVec2i(name string, x, y int32) error {
	return s.AddPathValue(name, Vec2i(x, y))
}
func (s *Store) AddPathVec2f(name string, x, y float32) error {
	return s.AddPathValue(name, Vec2f(x, y))
}
func (s *Store) AddPathVec3i(name string, x, y, z int32) error {
	return s.AddPathValue(name, Vec3i(x, y, z))
}
func (s *Store) AddPathVec3f(name string, x, y, z float32) error {
	return s.AddPathValue(name, Vec3f(x, y, z))
}
func (s *Store) AddPathVec4f(name string, x, y, z, w float32) error {
	return s.AddPathValue(name, Vec4f(x, y, z, w))
}

func (s *Store) AddIntersectionBool(name string, v bool) error {
	return s.AddIntersectionValue(name, Bool(v))
}
func (s *Store) AddIntersectionFloat(name string, v float32) error {
	return s.AddIntersectionValue(name, Float(v))
}
func (s *Store) AddIntersectionDouble(name string, v float64) error {
	return s.AddIntersectionValue(name, Double(v))
}
func (s *Store) AddIntersectionInt(name string, v int32) error {
	return s.AddIntersectionValue(name, Int(v))
}
func (s *Store) AddIntersectionString(name string, v string) error {
	return s.AddIntersectionValue(name, String(v))
}
func (s *Store) AddIntersectionVec2i(name string, x, y int32) error {
	return s.AddIntersectionValue(name, Vec2i(x, y))
}
func (s *Store) AddIntersectionVec2f(name string, x, y float32) error {
	return s.AddIntersectionValue(name, Vec2f(x, y))
}
func (s *Store) AddIntersectionVec3i(name string, x, y, z int32) error {
	return s.AddIntersectionValue(name, Vec3i(x, y, z))
}
func (s *Store) AddIntersectionVec3f(name string, x, y, z float32) error {
	return s.AddIntersectionValue(name, Vec3f(x, y, z))
}
func (s *Store) AddIntersectionVec4f(name string, x, y, z, w float32) error {
	return s.AddIntersectionValue(name, Vec4f(x, y, z, w))
}

// Record returns the record at (x, y, c) for inspection
func (s *Store) Record(x, y, c uint32) (*Path, error) {
	if x >= s.width || y >= s.height || c >= s.samples {
		return nil, &OutOfRangeError{
			X: x, Y: y, SampleIdx: c,
			Index: s.Index(x, y, c), Size: uint32(len(s.records)),
		}
	}
	return &s.records[s.Index(x, y, c)], nil
}

// Serialize writes every record in linear index order, preceded by the
// total record count
func (s *Store) Serialize(w *wire.Writer) error {
	w.WriteUInt(uint32(len(s.records)))
	for i := range s.records {
		s.records[i].Serialize(w)
	}
	return w.Err()
}

// SerializePixel writes exactly the sampleCount records of one pixel in
// sample order, preceded by the count. This is the access pattern when a
// client inspects a single pixel.
func (s *Store) SerializePixel(w *wire.Writer, x, y uint32) error {
	if x >= s.width || y >= s.height {
		return &OutOfRangeError{
			X: x, Y: y,
			Index: s.Index(x, y, 0), Size: uint32(len(s.records)),
		}
	}
	w.WriteUInt(s.samples)
	for c := uint32(0); c < s.samples; c++ {
		s.records[s.Index(x, y, c)].Serialize(w)
	}
	return w.Err()
}
