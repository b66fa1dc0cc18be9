// Package capture records per-pixel, per-sample path trajectories reported
// by a renderer, for later serialization to a visualization client.
package capture

import (
	"fmt"

	"github.com/df07/go-render-inspector/pkg/wire"
)

// Kind identifies the payload type held by a Value.
type Kind uint8

const (
	KindBool Kind = iota
	KindFloat
	KindDouble
	KindInt
	KindVec2i
	KindVec2f
	KindVec3i
	KindVec3f
	KindVec4f
	KindString
)

// Value is a tagged variant holding one attribute payload of arity 1-4.
// The tag characters on the wire follow Python's struct format characters,
// with a leading digit for multi-component values.
type Value struct {
	kind Kind
	b    bool
	s    string
	d    float64
	i    [4]int32
	f    [4]float32
}

// Bool creates a boolean Value
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Float creates a single-precision Value
func Float(v float32) Value { return Value{kind: KindFloat, f: [4]float32{v}} }

// Double creates a double-precision Value
func Double(v float64) Value { return Value{kind: KindDouble, d: v} }

// Int creates an integer Value
func Int(v int32) Value { return Value{kind: KindInt, i: [4]int32{v}} }

// Vec2i creates a two-component integer Value
func Vec2i(x, y int32) Value { return Value{kind: KindVec2i, i: [4]int32{x, y}} }

// Vec2f creates a two-component float Value
func Vec2f(x, y float32) Value { return Value{kind: KindVec2f, f: [4]float32{x, y}} }

// Vec3i creates a three-component integer Value
func Vec3i(x, y, z int32) Value { return Value{kind: KindVec3i, i: [4]int32{x, y, z}} }

// Vec3f creates a three-component float Value
func Vec3f(x, y, z float32) Value { return Value{kind: KindVec3f, f: [4]float32{x, y, z}} }

// Vec4f creates a four-component float Value
func Vec4f(x, y, z, w float32) Value { return Value{kind: KindVec4f, f: [4]float32{x, y, z, w}} }

// String creates a string Value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the payload type
func (v Value) Kind() Kind { return v.kind }

// Tag returns the wire type tag for the payload
func (v Value) Tag() string {
	switch v.kind {
	case KindBool:
		return "?"
	case KindFloat:
		return "f"
	case KindDouble:
		return "d"
	case KindInt:
		return "i"
	case KindVec2i:
		return "2i"
	case KindVec2f:
		return "2f"
	case KindVec3i:
		return "3i"
	case KindVec3f:
		return "3f"
	case KindVec4f:
		return "4f"
	case KindString:
		return "s"
	}
	return ""
}

// Interface returns the payload as a plain Go value, for JSON display
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindFloat:
		return v.f[0]
	case KindDouble:
		return v.d
	case KindInt:
		return v.i[0]
	case KindVec2i:
		return v.i[:2]
	case KindVec2f:
		return v.f[:2]
	case KindVec3i:
		return v.i[:3]
	case KindVec3f:
		return v.f[:3]
	case KindVec4f:
		return v.f[:4]
	case KindString:
		return v.s
	}
	return nil
}

// Serialize writes the tag characters and payload
func (v Value) Serialize(w *wire.Writer) {
	tag := v.Tag()
	for i := 0; i < len(tag); i++ {
		w.WriteChar(tag[i])
	}
	switch v.kind {
	case KindBool:
		w.WriteBool(v.b)
	case KindFloat:
		w.WriteFloat(v.f[0])
	case KindDouble:
		w.WriteDouble(v.d)
	case KindInt:
		w.WriteInt(v.i[0])
	case KindVec2i:
		w.WriteInt(v.i[0])
		w.WriteInt(v.i[1])
	case KindVec2f:
		w.WriteFloat(v.f[0])
		w.WriteFloat(v.f[1])
	case KindVec3i:
		w.WriteInt(v.i[0])
		w.WriteInt(v.i[1])
		w.WriteInt(v.i[2])
	case KindVec3f:
		w.WriteFloat(v.f[0])
		w.WriteFloat(v.f[1])
		w.WriteFloat(v.f[2])
	case KindVec4f:
		w.WriteFloat(v.f[0])
		w.WriteFloat(v.f[1])
		w.WriteFloat(v.f[2])
		w.WriteFloat(v.f[3])
	case KindString:
		w.WriteString(v.s)
	}
}

// DeserializeValue reads the tag characters and payload written by Serialize
func DeserializeValue(r *wire.Reader) (Value, error) {
	tag := r.ReadChar()
	if r.Err() != nil {
		return Value{}, r.Err()
	}

	var arity byte = 1
	if tag >= '1' && tag <= '9' {
		arity = tag - '0'
		tag = r.ReadChar()
	}

	switch {
	case tag == '?' && arity == 1:
		return Bool(r.ReadBool()), r.Err()
	case tag == 'f' && arity == 1:
		return Float(r.ReadFloat()), r.Err()
	case tag == 'd' && arity == 1:
		return Double(r.ReadDouble()), r.Err()
	case tag == 'i' && arity == 1:
		return Int(r.ReadInt()), r.Err()
	case tag == 'i' && arity == 2:
		return Vec2i(r.ReadInt(), r.ReadInt()), r.Err()
	case tag == 'f' && arity == 2:
		return Vec2f(r.ReadFloat(), r.ReadFloat()), r.Err()
	case tag == 'i' && arity == 3:
		return Vec3i(r.ReadInt(), r.ReadInt(), r.ReadInt()), r.Err()
	case tag == 'f' && arity == 3:
		return Vec3f(r.ReadFloat(), r.ReadFloat(), r.ReadFloat()), r.Err()
	case tag == 'f' && arity == 4:
		return Vec4f(r.ReadFloat(), r.ReadFloat(), r.ReadFloat(), r.ReadFloat()), r.Err()
	case tag == 's' && arity == 1:
		return String(r.ReadString()), r.Err()
	}
	return Value{}, fmt.Errorf("capture: unknown value tag %d%c", arity, tag)
}

// Attribute is one named entry in a Bag.
type Attribute struct {
	Name  string
	Value Value
}

// Bag is an append-only list of named attributes. Repeated names append
// additional entries; this is a debug trace, not a dictionary.
type Bag []Attribute

// Add appends an attribute
func (b *Bag) Add(name string, v Value) {
	*b = append(*b, Attribute{Name: name, Value: v})
}

// Serialize writes the entry count followed by (name, tag, payload) tuples
func (b Bag) Serialize(w *wire.Writer) {
	w.WriteUInt(uint32(len(b)))
	for _, attr := range b {
		w.WriteString(attr.Name)
		attr.Value.Serialize(w)
	}
}

// DeserializeBag reads a Bag written by Serialize
func DeserializeBag(r *wire.Reader) (Bag, error) {
	count := r.ReadUInt()
	if r.Err() != nil {
		return nil, r.Err()
	}
	var bag Bag
	for i := uint32(0); i < count; i++ {
		name := r.ReadString()
		v, err := DeserializeValue(r)
		if err != nil {
			return nil, err
		}
		bag.Add(name, v)
	}
	return bag, nil
}
