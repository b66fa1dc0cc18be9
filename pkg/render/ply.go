package render

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/scenedata"
)

// plyProperty is one property definition from a PLY header
type plyProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the elements
}

// plyHeader holds the parsed header of a PLY file
type plyHeader struct {
	Format      string
	VertexCount int
	FaceCount   int
	VertexProps []plyProperty
	FaceProps   []plyProperty
}

// LoadPLYMesh reads a PLY file into a mesh proxy
func LoadPLYMesh(filename string) (*scenedata.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open PLY file: %w", err)
	}
	defer file.Close()
	return ParsePLYMesh(file)
}

// ParsePLYMesh parses PLY data in ascii or binary_little_endian format.
// Only vertex positions and face indices are kept; faces with more than
// three vertices are fan triangulated.
func ParsePLYMesh(r io.Reader) (*scenedata.Mesh, error) {
	reader := bufio.NewReader(r)

	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, err
	}

	mesh := &scenedata.Mesh{
		Vertices:  make([]core.Vec3, 0, header.VertexCount),
		Triangles: make([][3]uint32, 0, header.FaceCount),
	}

	switch header.Format {
	case "ascii":
		err = readASCIIMesh(reader, header, mesh)
	case "binary_little_endian":
		err = readBinaryMesh(reader, header, mesh)
	case "binary_big_endian":
		return nil, fmt.Errorf("binary big-endian PLY format not supported")
	default:
		return nil, fmt.Errorf("unsupported PLY format: %q", header.Format)
	}
	if err != nil {
		return nil, err
	}

	return mesh, nil
}

// parsePLYHeader reads header lines up to and including end_header
func parsePLYHeader(reader *bufio.Reader) (*plyHeader, error) {
	magic, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read PLY magic: %w", err)
	}
	if strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("not a PLY file")
	}

	header := &plyHeader{}
	currentElement := ""

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("unterminated PLY header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 2 {
				return nil, fmt.Errorf("invalid format line: %q", line)
			}
			header.Format = parts[1]
		case "comment", "obj_info":
			// Ignored
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element line: %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("invalid element count: %q", parts[2])
			}
			currentElement = parts[1]
			switch currentElement {
			case "vertex":
				header.VertexCount = count
			case "face":
				header.FaceCount = count
			}
		case "property":
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, err
			}
			switch currentElement {
			case "vertex":
				header.VertexProps = append(header.VertexProps, prop)
			case "face":
				header.FaceProps = append(header.FaceProps, prop)
			}
		}
	}

	return header, nil
}

// parsePLYProperty parses the tail of a property line
func parsePLYProperty(parts []string) (plyProperty, error) {
	if len(parts) < 2 {
		return plyProperty{}, fmt.Errorf("invalid property definition")
	}
	if parts[0] == "list" {
		if len(parts) < 4 {
			return plyProperty{}, fmt.Errorf("invalid list property definition")
		}
		return plyProperty{
			IsList:   true,
			ListType: parts[1],
			DataType: parts[2],
			Name:     parts[3],
		}, nil
	}
	return plyProperty{Type: parts[0], Name: parts[1]}, nil
}

// coordIndices locates the x, y, z properties of the vertex element
func coordIndices(props []plyProperty) (xi, yi, zi int, err error) {
	xi, yi, zi = -1, -1, -1
	for i, prop := range props {
		if prop.IsList {
			continue
		}
		switch prop.Name {
		case "x":
			xi = i
		case "y":
			yi = i
		case "z":
			zi = i
		}
	}
	if xi < 0 || yi < 0 || zi < 0 {
		return 0, 0, 0, fmt.Errorf("PLY vertex element missing x/y/z properties")
	}
	return xi, yi, zi, nil
}

// readDataLine returns the fields of the next non-empty body line
func readDataLine(reader *bufio.Reader) ([]string, error) {
	for {
		line, err := reader.ReadString('\n')
		fields := strings.Fields(line)
		if len(fields) > 0 {
			return fields, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func readASCIIMesh(reader *bufio.Reader, header *plyHeader, mesh *scenedata.Mesh) error {
	xi, yi, zi, err := coordIndices(header.VertexProps)
	if err != nil {
		return err
	}

	for i := 0; i < header.VertexCount; i++ {
		fields, err := readDataLine(reader)
		if err != nil {
			return fmt.Errorf("read vertex %d: %w", i, err)
		}
		if len(fields) < len(header.VertexProps) {
			return fmt.Errorf("vertex %d: %d values for %d properties", i, len(fields), len(header.VertexProps))
		}

		var coords [3]float64
		for k, fi := range [3]int{xi, yi, zi} {
			coords[k], err = strconv.ParseFloat(fields[fi], 32)
			if err != nil {
				return fmt.Errorf("vertex %d: invalid coordinate %q", i, fields[fi])
			}
		}
		mesh.Vertices = append(mesh.Vertices, core.NewVec3(float32(coords[0]), float32(coords[1]), float32(coords[2])))
	}

	for i := 0; i < header.FaceCount; i++ {
		fields, err := readDataLine(reader)
		if err != nil {
			return fmt.Errorf("read face %d: %w", i, err)
		}

		count, err := strconv.Atoi(fields[0])
		if err != nil || count < 3 {
			return fmt.Errorf("face %d: invalid vertex count %q", i, fields[0])
		}
		if len(fields) < 1+count {
			return fmt.Errorf("face %d: %d indices for count %d", i, len(fields)-1, count)
		}

		indices := make([]uint32, count)
		for k := range indices {
			v, err := strconv.ParseUint(fields[1+k], 10, 32)
			if err != nil {
				return fmt.Errorf("face %d: invalid index %q", i, fields[1+k])
			}
			indices[k] = uint32(v)
		}
		if err := appendFan(mesh, indices, header.VertexCount); err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
	}

	return nil
}

func readBinaryMesh(reader *bufio.Reader, header *plyHeader, mesh *scenedata.Mesh) error {
	xi, yi, zi, err := coordIndices(header.VertexProps)
	if err != nil {
		return err
	}

	for i := 0; i < header.VertexCount; i++ {
		var coords [3]float64
		for propIdx, prop := range header.VertexProps {
			if prop.IsList {
				return fmt.Errorf("list property %q in vertex element not supported", prop.Name)
			}
			value, err := readScalar(reader, prop.Type)
			if err != nil {
				return fmt.Errorf("read vertex %d: %w", i, err)
			}
			switch propIdx {
			case xi:
				coords[0] = value
			case yi:
				coords[1] = value
			case zi:
				coords[2] = value
			}
		}
		mesh.Vertices = append(mesh.Vertices, core.NewVec3(float32(coords[0]), float32(coords[1]), float32(coords[2])))
	}

	for i := 0; i < header.FaceCount; i++ {
		for _, prop := range header.FaceProps {
			switch {
			case prop.IsList && (prop.Name == "vertex_indices" || prop.Name == "vertex_index"):
				count, err := readScalar(reader, prop.ListType)
				if err != nil {
					return fmt.Errorf("read face %d count: %w", i, err)
				}
				n := int(count)
				if n < 3 {
					return fmt.Errorf("face %d: invalid vertex count %d", i, n)
				}
				indices := make([]uint32, n)
				for k := range indices {
					v, err := readScalar(reader, prop.DataType)
					if err != nil {
						return fmt.Errorf("read face %d index: %w", i, err)
					}
					indices[k] = uint32(v)
				}
				if err := appendFan(mesh, indices, header.VertexCount); err != nil {
					return fmt.Errorf("face %d: %w", i, err)
				}
			case prop.IsList:
				count, err := readScalar(reader, prop.ListType)
				if err != nil {
					return fmt.Errorf("skip face %d property %q: %w", i, prop.Name, err)
				}
				for k := 0; k < int(count); k++ {
					if _, err := readScalar(reader, prop.DataType); err != nil {
						return fmt.Errorf("skip face %d property %q: %w", i, prop.Name, err)
					}
				}
			default:
				if _, err := readScalar(reader, prop.Type); err != nil {
					return fmt.Errorf("skip face %d property %q: %w", i, prop.Name, err)
				}
			}
		}
	}

	return nil
}

// appendFan triangulates a convex polygon as a fan around its first vertex
func appendFan(mesh *scenedata.Mesh, indices []uint32, vertexCount int) error {
	for _, idx := range indices {
		if idx >= uint32(vertexCount) {
			return fmt.Errorf("vertex index %d out of range (%d vertices)", idx, vertexCount)
		}
	}
	for k := 1; k+1 < len(indices); k++ {
		mesh.Triangles = append(mesh.Triangles, [3]uint32{indices[0], indices[k], indices[k+1]})
	}
	return nil
}

// plyTypeSize returns the size in bytes of a PLY scalar type, 0 if unknown
func plyTypeSize(dataType string) int {
	switch dataType {
	case "char", "int8", "uchar", "uint8":
		return 1
	case "short", "int16", "ushort", "uint16":
		return 2
	case "int", "int32", "uint", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	default:
		return 0
	}
}

// readScalar reads one little-endian scalar and widens it to float64
func readScalar(reader *bufio.Reader, dataType string) (float64, error) {
	size := plyTypeSize(dataType)
	if size == 0 {
		return 0, fmt.Errorf("unsupported PLY type %q", dataType)
	}

	var buf [8]byte
	if _, err := io.ReadFull(reader, buf[:size]); err != nil {
		return 0, err
	}

	switch dataType {
	case "char", "int8":
		return float64(int8(buf[0])), nil
	case "uchar", "uint8":
		return float64(buf[0]), nil
	case "short", "int16":
		return float64(int16(binary.LittleEndian.Uint16(buf[:2]))), nil
	case "ushort", "uint16":
		return float64(binary.LittleEndian.Uint16(buf[:2])), nil
	case "int", "int32":
		return float64(int32(binary.LittleEndian.Uint32(buf[:4]))), nil
	case "uint", "uint32":
		return float64(binary.LittleEndian.Uint32(buf[:4])), nil
	case "float", "float32":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[:4]))), nil
	default: // double, float64
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[:8])), nil
	}
}
