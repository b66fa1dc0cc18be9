package heatmap

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when heatmap data is requested before Finalize
var ErrNotReady = errors.New("heatmap: data requested before finalize")

// UnknownFaceError reports a sample for a face that was never registered.
// The sample is dropped; collection continues.
type UnknownFaceError struct {
	MeshID, FaceID uint32
}

func (e *UnknownFaceError) Error() string {
	return fmt.Sprintf("heatmap: unknown face %d on mesh %d", e.FaceID, e.MeshID)
}
