package capture

import "fmt"

// InvalidDimensionError reports a zero dimension passed to Initialize.
// The store is unusable until Initialize succeeds.
type InvalidDimensionError struct {
	Height, Width, SampleCount uint32
}

func (e *InvalidDimensionError) Error() string {
	return fmt.Sprintf("capture: invalid store dimensions %dx%dx%d (all must be positive)",
		e.Height, e.Width, e.SampleCount)
}

// OutOfRangeError reports a write addressed outside the allocated records.
// This indicates an integration bug in the renderer driving the store.
type OutOfRangeError struct {
	X, Y, SampleIdx uint32
	Index, Size     uint32
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("capture: record index %d for pixel (%d,%d) sample %d outside store of %d records",
		e.Index, e.X, e.Y, e.SampleIdx, e.Size)
}
