package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/df07/go-render-inspector/pkg/core"
)

// maxStringLen bounds decoded string allocations against corrupt input.
const maxStringLen = 1 << 24

// Reader decodes typed values from a stream, mirroring Writer. The first
// read error is retained and all later reads return zero values.
type Reader struct {
	r   io.Reader
	buf [8]byte
	err error
}

// NewReader creates a Reader on top of a stream or any io.Reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered while reading
func (r *Reader) Err() error { return r.err }

func (r *Reader) readBytes(n int) []byte {
	if r.err != nil {
		return r.buf[:n]
	}
	_, r.err = io.ReadFull(r.r, r.buf[:n])
	return r.buf[:n]
}

// ReadBool reads a single 0/1 byte
func (r *Reader) ReadBool() bool {
	return r.readBytes(1)[0] != 0
}

// ReadChar reads a single raw byte
func (r *Reader) ReadChar() byte {
	return r.readBytes(1)[0]
}

// ReadShort reads an int16
func (r *Reader) ReadShort() int16 {
	return int16(binary.LittleEndian.Uint16(r.readBytes(2)))
}

// ReadUShort reads a uint16
func (r *Reader) ReadUShort() uint16 {
	return binary.LittleEndian.Uint16(r.readBytes(2))
}

// ReadInt reads an int32
func (r *Reader) ReadInt() int32 {
	return int32(binary.LittleEndian.Uint32(r.readBytes(4)))
}

// ReadUInt reads a uint32
func (r *Reader) ReadUInt() uint32 {
	return binary.LittleEndian.Uint32(r.readBytes(4))
}

// ReadLong reads an int64
func (r *Reader) ReadLong() int64 {
	return int64(binary.LittleEndian.Uint64(r.readBytes(8)))
}

// ReadULong reads a uint64
func (r *Reader) ReadULong() uint64 {
	return binary.LittleEndian.Uint64(r.readBytes(8))
}

// ReadFloat reads a float32
func (r *Reader) ReadFloat() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(r.readBytes(4)))
}

// ReadDouble reads a float64
func (r *Reader) ReadDouble() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(r.readBytes(8)))
}

// ReadString reads a uint64 byte length followed by the UTF-8 bytes
func (r *Reader) ReadString() string {
	n := r.ReadULong()
	if r.err != nil {
		return ""
	}
	if n > maxStringLen {
		r.err = fmt.Errorf("wire: string length %d exceeds limit", n)
		return ""
	}
	data := make([]byte, n)
	_, r.err = io.ReadFull(r.r, data)
	if r.err != nil {
		return ""
	}
	return string(data)
}

// ReadVec3 reads three floats
func (r *Reader) ReadVec3() core.Vec3 {
	return core.Vec3{X: r.ReadFloat(), Y: r.ReadFloat(), Z: r.ReadFloat()}
}

// ReadColor reads a four-float color, discarding the zero pad
func (r *Reader) ReadColor() core.Color {
	c := core.Color{R: r.ReadFloat(), G: r.ReadFloat(), B: r.ReadFloat()}
	r.ReadFloat()
	return c
}

// ReadFloatArray reads n floats
func (r *Reader) ReadFloatArray(n int) []float32 {
	vs := make([]float32, n)
	for i := range vs {
		vs[i] = r.ReadFloat()
	}
	return vs
}

// ReadIntArray reads n int32s
func (r *Reader) ReadIntArray(n int) []int32 {
	vs := make([]int32, n)
	for i := range vs {
		vs[i] = r.ReadInt()
	}
	return vs
}
