package heatmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// ExportPLY writes one mesh's heatmap as a colored point-per-vertex PLY
// model, either human-readable or binary little-endian. Fails with
// ErrNotReady before Finalize.
func (e *Engine) ExportPLY(w io.Writer, meshID uint32, ascii bool) error {
	mh, err := e.finalizedMesh(meshID)
	if err != nil {
		return err
	}
	return mh.exportPLY(w, ascii)
}

func (mh *meshHeatmap) exportPLY(w io.Writer, ascii bool) error {
	mh.mu.RLock()
	verts := mh.tess.TessellatedVertices()
	faces := mh.tess.TessellatedFaces()
	values := mh.vertexValuesLocked(mh.leafValuesLocked())
	mh.mu.RUnlock()

	bw := bufio.NewWriter(w)

	format := "binary_little_endian"
	if ascii {
		format = "ascii"
	}
	fmt.Fprintf(bw, "ply\nformat %s 1.0\n", format)
	fmt.Fprintf(bw, "element vertex %d\n", len(verts))
	bw.WriteString("property float x\nproperty float y\nproperty float z\n")
	bw.WriteString("property float red\nproperty float green\nproperty float blue\n")
	fmt.Fprintf(bw, "element face %d\n", len(faces))
	bw.WriteString("property list uchar uint32 vertex_indices\nend_header\n")

	for i, v := range verts {
		c := values[i]
		if ascii {
			fmt.Fprintf(bw, "%g %g %g %g %g %g\n", v.X, v.Y, v.Z, c.R, c.G, c.B)
		} else {
			binary.Write(bw, binary.LittleEndian, [6]float32{v.X, v.Y, v.Z, c.R, c.G, c.B})
		}
	}
	for _, f := range faces {
		if ascii {
			fmt.Fprintf(bw, "3 %d %d %d\n", f[0], f[1], f[2])
		} else {
			bw.WriteByte(3)
			binary.Write(bw, binary.LittleEndian, f)
		}
	}
	return bw.Flush()
}

// vertexValuesLocked folds each leaf's value into its three corner
// vertices, producing per-vertex colors for the PLY export. Caller holds
// at least a read lock.
func (mh *meshHeatmap) vertexValuesLocked(leafValues []FaceValue) []FaceValue {
	out := make([]FaceValue, mh.tess.NumVertices())
	leaf := 0
	for id := uint32(0); id < mh.tess.NumFaces(); id++ {
		if mh.tess.IsSubdivided(id) {
			continue
		}
		for _, vid := range mh.tess.Face(id) {
			out[vid].merge(leafValues[leaf])
		}
		leaf++
	}
	return out
}
