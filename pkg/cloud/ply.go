package cloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/rbfsurf/pkg/geom"
)

// plyProperty is a property definition from a PLY header.
type plyProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // type of the list count
}

// plyElement is an element definition from a PLY header.
type plyElement struct {
	Name  string
	Count int
	Props []plyProperty
}

// plyHeader is the parsed header of a PLY stream.
type plyHeader struct {
	Format   string // "ascii", "binary_little_endian" or "binary_big_endian"
	Elements []plyElement
	lines    int
}

// vertexIndices locates the position and normal properties of a vertex
// element. Missing properties are -1.
type vertexIndices struct {
	pos    [3]int
	normal [3]int
}

func (vi vertexIndices) hasNormals() bool {
	return vi.normal[0] >= 0 && vi.normal[1] >= 0 && vi.normal[2] >= 0
}

// ReadPLY reads the vertex element of a PLY stream as oriented points.
// The x, y and z properties are required; nx, ny and nz are optional and
// default to a zero normal. Elements after the vertex element are not read.
func ReadPLY(r io.Reader) ([]geom.OrientedPoint, error) {
	br := bufio.NewReaderSize(r, 1024*1024)

	header, err := parsePLYHeader(br)
	if err != nil {
		return nil, err
	}

	var order binary.ByteOrder
	switch header.Format {
	case "ascii":
	case "binary_little_endian":
		order = binary.LittleEndian
	case "binary_big_endian":
		order = binary.BigEndian
	default:
		return nil, &ParseError{Msg: fmt.Sprintf("unsupported PLY format %q", header.Format)}
	}

	line := header.lines
	for _, el := range header.Elements {
		if el.Name != "vertex" {
			if order == nil {
				if line, err = skipASCIIElement(br, el, line); err != nil {
					return nil, err
				}
			} else if err := skipBinaryElement(br, el, order); err != nil {
				return nil, err
			}
			continue
		}

		vi, err := locateVertexProps(el)
		if err != nil {
			return nil, err
		}
		if order == nil {
			points, _, err := readASCIIVertices(br, el, vi, line)
			return points, err
		}
		return readBinaryVertices(br, el, vi, order)
	}
	return nil, &ParseError{Msg: "PLY has no vertex element"}
}

// parsePLYHeader parses the header up to and including end_header,
// leaving br positioned at the first body byte.
func parsePLYHeader(br *bufio.Reader) (*plyHeader, error) {
	header := &plyHeader{}
	var current *plyElement

	for {
		raw, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || raw == "") {
			return nil, &ParseError{Line: header.lines + 1, Msg: "truncated PLY header", Err: err}
		}
		header.lines++
		line := strings.TrimSpace(raw)

		if header.lines == 1 {
			if line != "ply" {
				return nil, &ParseError{Line: 1, Msg: "missing ply magic"}
			}
			continue
		}
		if line == "end_header" {
			break
		}
		if err == io.EOF {
			return nil, &ParseError{Line: header.lines, Msg: "truncated PLY header"}
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, &ParseError{Line: header.lines, Msg: "invalid format line"}
			}
			header.Format = parts[1]
		case "comment", "obj_info":
		case "element":
			if len(parts) < 3 {
				return nil, &ParseError{Line: header.lines, Msg: "invalid element line"}
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, &ParseError{Line: header.lines, Msg: "invalid element count " + strconv.Quote(parts[2])}
			}
			header.Elements = append(header.Elements, plyElement{Name: parts[1], Count: count})
			current = &header.Elements[len(header.Elements)-1]
		case "property":
			if current == nil {
				return nil, &ParseError{Line: header.lines, Msg: "property before element"}
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, &ParseError{Line: header.lines, Msg: err.Error()}
			}
			current.Props = append(current.Props, prop)
		}
	}

	if header.Format == "" {
		return nil, &ParseError{Line: header.lines, Msg: "PLY header has no format"}
	}
	return header, nil
}

// parsePLYProperty parses the fields of a property line after "property".
func parsePLYProperty(parts []string) (plyProperty, error) {
	if len(parts) < 2 {
		return plyProperty{}, fmt.Errorf("invalid property definition")
	}
	if parts[0] == "list" {
		if len(parts) < 4 {
			return plyProperty{}, fmt.Errorf("invalid list property definition")
		}
		if plyTypeSize(parts[1]) == 0 || plyTypeSize(parts[2]) == 0 {
			return plyProperty{}, fmt.Errorf("unsupported list types %s %s", parts[1], parts[2])
		}
		return plyProperty{IsList: true, ListType: parts[1], Type: parts[2], Name: parts[3]}, nil
	}
	if plyTypeSize(parts[0]) == 0 {
		return plyProperty{}, fmt.Errorf("unsupported property type %s", parts[0])
	}
	return plyProperty{Type: parts[0], Name: parts[1]}, nil
}

func locateVertexProps(el plyElement) (vertexIndices, error) {
	vi := vertexIndices{pos: [3]int{-1, -1, -1}, normal: [3]int{-1, -1, -1}}
	for i, p := range el.Props {
		if p.IsList {
			continue
		}
		switch p.Name {
		case "x":
			vi.pos[0] = i
		case "y":
			vi.pos[1] = i
		case "z":
			vi.pos[2] = i
		case "nx":
			vi.normal[0] = i
		case "ny":
			vi.normal[1] = i
		case "nz":
			vi.normal[2] = i
		}
	}
	for _, idx := range vi.pos {
		if idx < 0 {
			return vi, &ParseError{Msg: "PLY vertex element lacks x, y or z"}
		}
	}
	return vi, nil
}

func vertexFromValues(vals []float64, vi vertexIndices) geom.OrientedPoint {
	p := geom.OrientedPoint{}
	p.Pos.X, p.Pos.Y, p.Pos.Z = vals[vi.pos[0]], vals[vi.pos[1]], vals[vi.pos[2]]
	if vi.hasNormals() {
		p.Normal.X, p.Normal.Y, p.Normal.Z = vals[vi.normal[0]], vals[vi.normal[1]], vals[vi.normal[2]]
	}
	return p
}

// maxPrealloc caps the capacity reserved from a header's vertex count.
const maxPrealloc = 1 << 16

// readASCIIVertices reads el.Count vertex lines. List properties are
// consumed and discarded.
func readASCIIVertices(br *bufio.Reader, el plyElement, vi vertexIndices, line int) ([]geom.OrientedPoint, int, error) {
	points := make([]geom.OrientedPoint, 0, min(el.Count, maxPrealloc))
	vals := make([]float64, len(el.Props))

	for n := 0; n < el.Count; n++ {
		fields, next, err := nextASCIIRecord(br, line)
		line = next
		if err != nil {
			return nil, line, err
		}

		pos := 0
		for i, p := range el.Props {
			if pos >= len(fields) {
				return nil, line, &ParseError{Line: line, Msg: "too few values for vertex"}
			}
			if p.IsList {
				cnt, err := strconv.Atoi(fields[pos])
				if err != nil || cnt < 0 {
					return nil, line, &ParseError{Line: line, Msg: "invalid list count", Err: err}
				}
				pos += 1 + cnt
				continue
			}
			f, err := strconv.ParseFloat(fields[pos], 64)
			if err != nil {
				return nil, line, &ParseError{Line: line, Msg: "invalid number " + strconv.Quote(fields[pos]), Err: err}
			}
			vals[i] = f
			pos++
		}
		points = append(points, vertexFromValues(vals, vi))
	}
	return points, line, nil
}

// nextASCIIRecord returns the fields of the next non-blank line.
func nextASCIIRecord(br *bufio.Reader, line int) ([]string, int, error) {
	for {
		raw, err := br.ReadString('\n')
		if raw == "" && err != nil {
			return nil, line, &ParseError{Line: line + 1, Msg: "unexpected end of PLY body", Err: err}
		}
		line++
		if fields := strings.Fields(raw); len(fields) > 0 {
			return fields, line, nil
		}
		if err != nil {
			return nil, line, &ParseError{Line: line, Msg: "unexpected end of PLY body", Err: err}
		}
	}
}

func skipASCIIElement(br *bufio.Reader, el plyElement, line int) (int, error) {
	for n := 0; n < el.Count; n++ {
		var err error
		if _, line, err = nextASCIIRecord(br, line); err != nil {
			return line, err
		}
	}
	return line, nil
}

// readBinaryVertices decodes el.Count binary vertex records.
func readBinaryVertices(br *bufio.Reader, el plyElement, vi vertexIndices, order binary.ByteOrder) ([]geom.OrientedPoint, error) {
	points := make([]geom.OrientedPoint, 0, min(el.Count, maxPrealloc))
	vals := make([]float64, len(el.Props))
	var buf [8]byte

	for n := 0; n < el.Count; n++ {
		for i, p := range el.Props {
			if p.IsList {
				if err := skipBinaryList(br, p, order, &buf); err != nil {
					return nil, &ParseError{Msg: fmt.Sprintf("vertex %d: %s", n, p.Name), Err: err}
				}
				continue
			}
			v, err := readBinaryScalar(br, p.Type, order, &buf)
			if err != nil {
				return nil, &ParseError{Msg: fmt.Sprintf("vertex %d: %s", n, p.Name), Err: err}
			}
			vals[i] = v
		}
		points = append(points, vertexFromValues(vals, vi))
	}
	return points, nil
}

func skipBinaryElement(br *bufio.Reader, el plyElement, order binary.ByteOrder) error {
	var buf [8]byte
	for n := 0; n < el.Count; n++ {
		for _, p := range el.Props {
			var err error
			if p.IsList {
				err = skipBinaryList(br, p, order, &buf)
			} else {
				_, err = br.Discard(plyTypeSize(p.Type))
			}
			if err != nil {
				return &ParseError{Msg: fmt.Sprintf("%s %d: %s", el.Name, n, p.Name), Err: err}
			}
		}
	}
	return nil
}

func skipBinaryList(br *bufio.Reader, p plyProperty, order binary.ByteOrder, buf *[8]byte) error {
	cnt, err := readBinaryScalar(br, p.ListType, order, buf)
	if err != nil {
		return err
	}
	if cnt < 0 {
		return fmt.Errorf("negative list count %v", cnt)
	}
	_, err = br.Discard(int(cnt) * plyTypeSize(p.Type))
	return err
}

// readBinaryScalar reads one value of the given PLY type as float64.
func readBinaryScalar(br *bufio.Reader, typ string, order binary.ByteOrder, buf *[8]byte) (float64, error) {
	size := plyTypeSize(typ)
	b := buf[:size]
	if _, err := io.ReadFull(br, b); err != nil {
		return 0, err
	}
	switch typ {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		return float64(int16(order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(order.Uint16(b)), nil
	case "int", "int32":
		return float64(int32(order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(order.Uint32(b)), nil
	case "float", "float32":
		return float64(math.Float32frombits(order.Uint32(b))), nil
	case "double", "float64":
		return math.Float64frombits(order.Uint64(b)), nil
	}
	return 0, fmt.Errorf("unsupported data type: %s", typ)
}

// plyTypeSize returns the size in bytes of a PLY scalar type, or zero if
// the type is unknown.
func plyTypeSize(typ string) int {
	switch typ {
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
