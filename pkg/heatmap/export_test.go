package heatmap

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/scenedata"
)

func TestExportPLY_Ascii(t *testing.T) {
	e := NewEngine(DefaultDisplayOptions())
	e.Initialize([]*scenedata.Mesh{singleTriangleMesh()}, 0)
	require.NoError(t, e.AddSample(0, core.NewVec3(0.1, 0.1, 0), 0, core.NewColor(1, 0.5, 0), 2))
	e.Disable()
	e.Finalize()

	var buf bytes.Buffer
	require.NoError(t, e.ExportPLY(&buf, 0, true))

	expected := strings.Join([]string{
		"ply",
		"format ascii 1.0",
		"element vertex 3",
		"property float x",
		"property float y",
		"property float z",
		"property float red",
		"property float green",
		"property float blue",
		"element face 1",
		"property list uchar uint32 vertex_indices",
		"end_header",
		"0 0 0 1 0.5 0",
		"1 0 0 1 0.5 0",
		"0 1 0 1 0.5 0",
		"3 0 1 2",
		"",
	}, "\n")
	assert.Equal(t, expected, buf.String())
}

func TestExportPLY_Binary(t *testing.T) {
	e := NewEngine(DefaultDisplayOptions())
	e.Initialize([]*scenedata.Mesh{singleTriangleMesh()}, 0)
	require.NoError(t, e.AddSample(0, core.NewVec3(0.1, 0.1, 0), 0, core.NewColor(1, 0.5, 0), 2))
	e.Disable()
	e.Finalize()

	var buf bytes.Buffer
	require.NoError(t, e.ExportPLY(&buf, 0, false))

	out := buf.String()
	assert.Contains(t, out, "format binary_little_endian 1.0\n")

	marker := "end_header\n"
	idx := strings.Index(out, marker)
	require.GreaterOrEqual(t, idx, 0)
	body := []byte(out[idx+len(marker):])

	// 3 vertices of 6 floats, then one face of uchar count + 3 uint32
	require.Len(t, body, 3*24+13)

	var v [6]float32
	require.NoError(t, binary.Read(bytes.NewReader(body[:24]), binary.LittleEndian, &v))
	assert.Equal(t, [6]float32{0, 0, 0, 1, 0.5, 0}, v)

	face := body[3*24:]
	assert.Equal(t, byte(3), face[0])
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(face[1:5]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(face[5:9]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(face[9:13]))
}

func TestExportPLY_BeforeFinalizeFails(t *testing.T) {
	e := NewEngine(DefaultDisplayOptions())
	e.Initialize([]*scenedata.Mesh{singleTriangleMesh()}, 0)

	var buf bytes.Buffer
	assert.ErrorIs(t, e.ExportPLY(&buf, 0, true), ErrNotReady)
}
