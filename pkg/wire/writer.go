package wire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/df07/go-render-inspector/pkg/core"
)

// Writer encodes typed values onto a stream. The first write error is
// retained and all later writes become no-ops, so serializers can emit a
// whole record and check Err once.
type Writer struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewWriter creates a Writer on top of a stream or any io.Writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered while writing
func (w *Writer) Err() error { return w.err }

func (w *Writer) writeBytes(p []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(p)
}

// WriteBool writes a single 0/1 byte
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf[0] = 1
	} else {
		w.buf[0] = 0
	}
	w.writeBytes(w.buf[:1])
}

// WriteChar writes a single raw byte
func (w *Writer) WriteChar(c byte) {
	w.buf[0] = c
	w.writeBytes(w.buf[:1])
}

// WriteShort writes an int16
func (w *Writer) WriteShort(v int16) {
	binary.LittleEndian.PutUint16(w.buf[:2], uint16(v))
	w.writeBytes(w.buf[:2])
}

// WriteUShort writes a uint16
func (w *Writer) WriteUShort(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.writeBytes(w.buf[:2])
}

// WriteInt writes an int32
func (w *Writer) WriteInt(v int32) {
	binary.LittleEndian.PutUint32(w.buf[:4], uint32(v))
	w.writeBytes(w.buf[:4])
}

// WriteUInt writes a uint32
func (w *Writer) WriteUInt(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.writeBytes(w.buf[:4])
}

// WriteLong writes an int64
func (w *Writer) WriteLong(v int64) {
	binary.LittleEndian.PutUint64(w.buf[:8], uint64(v))
	w.writeBytes(w.buf[:8])
}

// WriteULong writes a uint64
func (w *Writer) WriteULong(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	w.writeBytes(w.buf[:8])
}

// WriteFloat writes a float32
func (w *Writer) WriteFloat(v float32) {
	binary.LittleEndian.PutUint32(w.buf[:4], math.Float32bits(v))
	w.writeBytes(w.buf[:4])
}

// WriteDouble writes a float64
func (w *Writer) WriteDouble(v float64) {
	binary.LittleEndian.PutUint64(w.buf[:8], math.Float64bits(v))
	w.writeBytes(w.buf[:8])
}

// WriteString writes a uint64 byte length followed by the UTF-8 bytes
func (w *Writer) WriteString(s string) {
	w.WriteULong(uint64(len(s)))
	w.writeBytes([]byte(s))
}

// WriteVec3 writes three floats
func (w *Writer) WriteVec3(v core.Vec3) {
	w.WriteFloat(v.X)
	w.WriteFloat(v.Y)
	w.WriteFloat(v.Z)
}

// WriteColor writes a color as four floats.
// The client reads colors with four components; the last one is a zero pad.
func (w *Writer) WriteColor(c core.Color) {
	w.WriteFloat(c.R)
	w.WriteFloat(c.G)
	w.WriteFloat(c.B)
	w.WriteFloat(0)
}

// WriteFloatArray writes floats back to back without a length prefix
func (w *Writer) WriteFloatArray(vs []float32) {
	for _, v := range vs {
		w.WriteFloat(v)
	}
}

// WriteIntArray writes int32s back to back without a length prefix
func (w *Writer) WriteIntArray(vs []int32) {
	for _, v := range vs {
		w.WriteInt(v)
	}
}
