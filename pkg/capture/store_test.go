package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/wire"
)

func TestStore_InitializeRejectsZeroDimensions(t *testing.T) {
	tests := []struct {
		name                       string
		height, width, sampleCount uint32
	}{
		{"zero height", 0, 4, 2},
		{"zero width", 4, 0, 2},
		{"zero samples", 4, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStore().Initialize(tt.height, tt.width, tt.sampleCount)
			var dimErr *InvalidDimensionError
			require.ErrorAs(t, err, &dimErr)
			assert.Equal(t, tt.height, dimErr.Height)
			assert.Equal(t, tt.width, dimErr.Width)
			assert.Equal(t, tt.sampleCount, dimErr.SampleCount)
		})
	}
}

func TestStore_IndexInjectiveAndCovering(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(3, 4, 2))

	size := s.Height() * s.Width() * s.SampleCount()
	seen := make(map[uint32]bool)
	for y := uint32(0); y < s.Height(); y++ {
		for x := uint32(0); x < s.Width(); x++ {
			for c := uint32(0); c < s.SampleCount(); c++ {
				idx := s.Index(x, y, c)
				assert.Less(t, idx, size)
				assert.False(t, seen[idx], "index %d reached twice", idx)
				seen[idx] = true
			}
		}
	}
	assert.Len(t, seen, int(size), "indices should cover the full range")
}

func TestStore_RecordsStampedWithSampleIndex(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(2, 3, 4))

	for y := uint32(0); y < 2; y++ {
		for x := uint32(0); x < 3; x++ {
			for c := uint32(0); c < 4; c++ {
				record, err := s.Record(x, y, c)
				require.NoError(t, err)
				assert.Equal(t, c, record.SampleIdx)
			}
		}
	}
}

// A pixel serializes to exactly sampleCount records, in sample order,
// including the samples the renderer never wrote to.
func TestStore_SerializePixelEmitsExactlySampleCount(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(2, 2, 3))

	s.Enable()
	s.SetPixel(0, 1)
	s.SetSampleIdx(1)
	require.NoError(t, s.SetPathOrigin(core.NewVec3(1, 2, 3)))
	require.NoError(t, s.SetFinalEstimate(core.NewColor(0.5, 0.25, 0.125)))
	require.NoError(t, s.AddPathInt("bounces", 4))
	require.NoError(t, s.SetDepthIdx(0))
	require.NoError(t, s.SetIntersectionPos(core.NewVec3(4, 5, 6)))
	require.NoError(t, s.SetDepthIdx(1))
	require.NoError(t, s.SetNextEventEstimationPos(core.NewVec3(7, 8, 9), true))
	s.Disable()

	stream := wire.NewBufferStream()
	w := wire.NewWriter(stream)
	require.NoError(t, s.SerializePixel(w, 0, 1))

	r := wire.NewReader(stream)
	count := r.ReadUInt()
	require.NoError(t, r.Err())
	require.Equal(t, s.SampleCount(), count)

	for c := uint32(0); c < count; c++ {
		decoded, err := DeserializePath(r)
		require.NoError(t, err)
		stored, err := s.Record(0, 1, c)
		require.NoError(t, err)
		assert.Equal(t, *stored, decoded, "sample %d should round-trip", c)
	}
	assert.Equal(t, 0, stream.Len(), "decode should consume the full stream")
}

// Serializing one pixel must not leak records of any other pixel.
func TestStore_SerializePixelIsolation(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(2, 2, 1))

	s.Enable()
	for y := uint32(0); y < 2; y++ {
		for x := uint32(0); x < 2; x++ {
			s.SetPixel(x, y)
			s.SetSampleIdx(0)
			require.NoError(t, s.SetPathOrigin(core.NewVec3(float32(x), float32(y), 0)))
		}
	}
	s.SetPixel(1, 0)
	s.SetSampleIdx(0)
	require.NoError(t, s.SetPathOrigin(core.NewVec3(0, 0, 0)))
	s.Disable()

	stream := wire.NewBufferStream()
	w := wire.NewWriter(stream)
	require.NoError(t, s.SerializePixel(w, 1, 0))

	r := wire.NewReader(stream)
	require.Equal(t, uint32(1), r.ReadUInt())
	decoded, err := DeserializePath(r)
	require.NoError(t, err)
	assert.Equal(t, core.NewVec3(0, 0, 0), decoded.Origin)
	assert.Equal(t, 0, stream.Len(), "no other pixel's record should follow")
}

func TestStore_SerializeWholeStoreInIndexOrder(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(2, 2, 1))

	s.Enable()
	for y := uint32(0); y < 2; y++ {
		for x := uint32(0); x < 2; x++ {
			s.SetPixel(x, y)
			s.SetSampleIdx(0)
			require.NoError(t, s.SetPathOrigin(core.NewVec3(float32(x), float32(y), 0)))
		}
	}
	s.Disable()

	stream := wire.NewBufferStream()
	w := wire.NewWriter(stream)
	require.NoError(t, s.Serialize(w))

	r := wire.NewReader(stream)
	require.Equal(t, uint32(4), r.ReadUInt())

	// linear order is y-major, then x, then sample
	expected := []core.Vec3{
		core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0),
		core.NewVec3(0, 1, 0), core.NewVec3(1, 1, 0),
	}
	for i, want := range expected {
		decoded, err := DeserializePath(r)
		require.NoError(t, err)
		assert.Equal(t, want, decoded.Origin, "record %d out of order", i)
	}
}

func TestStore_DisabledWritesAreSilentNoOps(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(2, 2, 2))

	// collection is off: every call returns nil and records nothing
	s.SetPixel(0, 0)
	s.SetSampleIdx(0)
	require.NoError(t, s.SetDepthIdx(0))
	require.NoError(t, s.SetPathOrigin(core.NewVec3(1, 2, 3)))
	require.NoError(t, s.SetFinalEstimate(core.NewColor(1, 1, 1)))
	require.NoError(t, s.AddPathFloat("pdf", 0.5))
	require.NoError(t, s.SetIntersectionPos(core.NewVec3(1, 2, 3)))
	require.NoError(t, s.AddIntersectionString("lobe", "diffuse"))

	for c := uint32(0); c < 2; c++ {
		record, err := s.Record(0, 0, c)
		require.NoError(t, err)
		assert.Empty(t, record.Bag)
		assert.Empty(t, record.Intersections)
		assert.False(t, record.HasFinalEstimate)
		assert.Equal(t, core.Vec3{}, record.Origin)
	}
}

func TestStore_DepthCursorGatesIntersectionWrites(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(2, 2, 1))
	s.Enable()
	s.SetPixel(0, 0)
	s.SetSampleIdx(0)

	// depth cursor unset: intersection writes are silent no-ops
	require.NoError(t, s.SetIntersectionPos(core.NewVec3(1, 2, 3)))
	require.NoError(t, s.AddIntersectionFloat("pdf", 0.5))

	record, err := s.Record(0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, record.Intersections)

	require.NoError(t, s.SetDepthIdx(1))
	require.NoError(t, s.SetIntersectionPos(core.NewVec3(1, 2, 3)))

	require.Len(t, record.Intersections, 2, "setting depth 1 grows the path through depth 0")
	assert.Equal(t, uint32(1), record.PathDepth)
	assert.False(t, record.Intersections[0].Valid)
	assert.True(t, record.Intersections[1].Valid)
	assert.True(t, record.Intersections[1].HasPos)

	// moving back to an existing depth stamps it without shrinking
	require.NoError(t, s.SetDepthIdx(0))
	require.NoError(t, s.SetIntersectionEmission(core.NewColor(1, 0, 0)))
	assert.Equal(t, uint32(1), record.PathDepth)
	assert.True(t, record.Intersections[0].Valid)
	assert.True(t, record.Intersections[0].HasEmission)
}

func TestStore_CursorInvalidation(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(2, 2, 2))
	s.Enable()

	s.SetPixel(0, 0)
	s.SetSampleIdx(0)
	require.NoError(t, s.SetDepthIdx(0))

	// a new pixel unsets the sample cursor: path writes now fail
	s.SetPixel(1, 1)
	var rangeErr *OutOfRangeError
	require.ErrorAs(t, s.SetPathOrigin(core.NewVec3(1, 2, 3)), &rangeErr)

	// a new sample unsets the depth cursor: intersection writes no-op
	s.SetSampleIdx(1)
	require.NoError(t, s.SetIntersectionPos(core.NewVec3(1, 2, 3)))
	record, err := s.Record(1, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, record.Intersections)
}

func TestStore_OutOfRangeAddressing(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(2, 2, 1))
	s.Enable()

	s.SetPixel(5, 0)
	s.SetSampleIdx(0)
	var rangeErr *OutOfRangeError
	require.ErrorAs(t, s.SetPathOrigin(core.NewVec3(1, 2, 3)), &rangeErr)

	s.SetPixel(0, 0)
	s.SetSampleIdx(9)
	require.ErrorAs(t, s.SetDepthIdx(0), &rangeErr)

	_, err := s.Record(0, 0, 7)
	require.ErrorAs(t, err, &rangeErr)

	stream := wire.NewBufferStream()
	require.ErrorAs(t, s.SerializePixel(wire.NewWriter(stream), 2, 0), &rangeErr)
	assert.Equal(t, 0, stream.Len(), "nothing should be written on a failed pixel lookup")
}

func TestStore_ClearEmptiesRecordsKeepingLayout(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(2, 2, 2))
	s.Enable()
	s.SetPixel(1, 1)
	s.SetSampleIdx(1)
	require.NoError(t, s.SetPathOrigin(core.NewVec3(1, 2, 3)))
	require.NoError(t, s.AddPathInt("bounces", 3))
	require.NoError(t, s.SetDepthIdx(0))

	s.Clear()

	assert.Equal(t, uint32(2), s.Height())
	assert.Equal(t, uint32(2), s.Width())
	assert.Equal(t, uint32(2), s.SampleCount())
	assert.True(t, s.IsCollecting(), "clear does not change the collection state")

	record, err := s.Record(1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), record.SampleIdx, "sample stamp survives clear")
	assert.Empty(t, record.Bag)
	assert.Empty(t, record.Intersections)
	assert.Equal(t, core.Vec3{}, record.Origin)

	// the cursor was invalidated, so stale writes fail loudly
	var rangeErr *OutOfRangeError
	require.ErrorAs(t, s.SetPathOrigin(core.NewVec3(4, 5, 6)), &rangeErr)
}

func TestStore_DisableKeepsCollectedData(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Initialize(1, 1, 1))
	s.Enable()
	s.SetPixel(0, 0)
	s.SetSampleIdx(0)
	require.NoError(t, s.SetFinalEstimate(core.NewColor(1, 0.5, 0.25)))

	s.Disable()
	assert.False(t, s.IsCollecting())

	record, err := s.Record(0, 0, 0)
	require.NoError(t, err)
	assert.True(t, record.HasFinalEstimate)
	assert.Equal(t, core.NewColor(1, 0.5, 0.25), record.FinalEstimate)

	// further writes are dropped without disturbing the data
	require.NoError(t, s.SetFinalEstimate(core.NewColor(0, 0, 0)))
	assert.Equal(t, core.NewColor(1, 0.5, 0.25), record.FinalEstimate)
}
