package pointcloud

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mapforge/pc2pgm/pkg/errors"
)

// plyProperty is a scalar vertex property. List properties (used for face
// indices) never appear on the vertex element in practice and are rejected.
type plyProperty struct {
	name string
	size int  // bytes in the binary encoding
	fp   bool // float or double
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

var plyScalarSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4,
	"double": 8, "float64": 8,
}

// DecodePLY reads a point cloud in PLY format from r.
// ASCII and binary little-endian encodings are supported. Only the vertex
// element's x, y and z properties are used; for the binary encoding the
// vertex element must be the first element declared, which holds for point
// clouds written by common tools.
func DecodePLY(r io.Reader) (*Cloud, error) {
	br := bufio.NewReader(r)

	format, elements, err := parsePLYHeader(br)
	if err != nil {
		return nil, err
	}

	vi := -1
	for i, el := range elements {
		if el.name == "vertex" {
			vi = i
			break
		}
	}
	if vi < 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "PLY has no vertex element")
	}
	vertex := elements[vi]

	xi := vertex.propIndex("x")
	yi := vertex.propIndex("y")
	zi := vertex.propIndex("z")
	if xi < 0 || yi < 0 || zi < 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "PLY vertex element is missing x/y/z properties")
	}
	for _, i := range []int{xi, yi, zi} {
		if !vertex.props[i].fp {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "PLY coordinate property %q must be float or double", vertex.props[i].name)
		}
	}

	switch format {
	case "ascii":
		return decodePLYASCII(br, elements, vi, xi, yi, zi)
	case "binary_little_endian":
		if vi != 0 {
			return nil, errors.New(errors.ErrCodeUnsupported, "binary PLY with elements before vertex is not supported")
		}
		return decodePLYBinary(br, vertex, xi, yi, zi)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "PLY format %q is not supported", format)
	}
}

func parsePLYHeader(br *bufio.Reader) (format string, elements []*plyElement, err error) {
	magic, err := readPLYLine(br)
	if err != nil || magic != "ply" {
		return "", nil, errors.New(errors.ErrCodeInvalidFormat, "not a PLY file")
	}

	for {
		line, err := readPLYLine(br)
		if err != nil {
			return "", nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "truncated PLY header")
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		switch tokens[0] {
		case "comment", "obj_info":
			// ignored
		case "format":
			if len(tokens) < 2 {
				return "", nil, errors.New(errors.ErrCodeInvalidFormat, "bad PLY format line %q", line)
			}
			format = tokens[1]
		case "element":
			if len(tokens) != 3 {
				return "", nil, errors.New(errors.ErrCodeInvalidFormat, "bad PLY element line %q", line)
			}
			count, err := strconv.Atoi(tokens[2])
			if err != nil || count < 0 {
				return "", nil, errors.New(errors.ErrCodeInvalidFormat, "bad PLY element count %q", line)
			}
			elements = append(elements, &plyElement{name: tokens[1], count: count})
		case "property":
			if len(elements) == 0 {
				return "", nil, errors.New(errors.ErrCodeInvalidFormat, "PLY property before any element")
			}
			el := elements[len(elements)-1]
			if len(tokens) >= 2 && tokens[1] == "list" {
				if el.name == "vertex" {
					return "", nil, errors.New(errors.ErrCodeUnsupported, "list properties on the vertex element are not supported")
				}
				// Non-vertex list properties only matter for ASCII line skipping.
				el.props = append(el.props, plyProperty{name: "list", size: -1})
				continue
			}
			if len(tokens) != 3 {
				return "", nil, errors.New(errors.ErrCodeInvalidFormat, "bad PLY property line %q", line)
			}
			size, ok := plyScalarSizes[tokens[1]]
			if !ok {
				return "", nil, errors.New(errors.ErrCodeInvalidFormat, "unknown PLY property type %q", tokens[1])
			}
			fp := size >= 4 && (tokens[1] == "float" || tokens[1] == "float32" || tokens[1] == "double" || tokens[1] == "float64")
			el.props = append(el.props, plyProperty{name: tokens[2], size: size, fp: fp})
		case "end_header":
			if format == "" {
				return "", nil, errors.New(errors.ErrCodeInvalidFormat, "PLY header has no format line")
			}
			return format, elements, nil
		default:
			return "", nil, errors.New(errors.ErrCodeInvalidFormat, "unknown PLY header line %q", line)
		}
	}
}

func (el *plyElement) propIndex(name string) int {
	for i, p := range el.props {
		if p.name == name {
			return i
		}
	}
	return -1
}

func decodePLYASCII(br *bufio.Reader, elements []*plyElement, vi, xi, yi, zi int) (*Cloud, error) {
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cloud *Cloud
	for ei, el := range elements {
		if ei != vi {
			// Skip one line per row of the element, list rows included.
			for i := 0; i < el.count; i++ {
				if !scanDataLine(sc) {
					return nil, errors.New(errors.ErrCodeInvalidFormat, "truncated PLY element %q", el.name)
				}
			}
			continue
		}

		cloud = &Cloud{Points: make([]Point, 0, el.count)}
		for i := 0; i < el.count; i++ {
			if !scanDataLine(sc) {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "PLY declares %d vertices but data ended after %d", el.count, i)
			}
			tokens := strings.Fields(sc.Text())
			if len(tokens) < len(el.props) {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "short PLY vertex record %q", sc.Text())
			}
			x, errX := strconv.ParseFloat(tokens[xi], 64)
			y, errY := strconv.ParseFloat(tokens[yi], 64)
			z, errZ := strconv.ParseFloat(tokens[zi], 64)
			if errX != nil || errY != nil || errZ != nil {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "bad PLY coordinate in record %q", sc.Text())
			}
			if p := (Point{x, y, z}); valid(p) {
				cloud.Points = append(cloud.Points, p)
			}
		}
		break // everything past the vertex element is irrelevant
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read PLY data")
	}
	return cloud, nil
}

// scanDataLine advances the scanner to the next non-empty line.
func scanDataLine(sc *bufio.Scanner) bool {
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			return true
		}
	}
	return false
}

func decodePLYBinary(br *bufio.Reader, vertex *plyElement, xi, yi, zi int) (*Cloud, error) {
	offsets := make([]int, len(vertex.props))
	stride := 0
	for i, p := range vertex.props {
		offsets[i] = stride
		stride += p.size
	}

	cloud := &Cloud{Points: make([]Point, 0, vertex.count)}
	record := make([]byte, stride)

	for i := 0; i < vertex.count; i++ {
		if _, err := io.ReadFull(br, record); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "truncated PLY binary data at vertex %d of %d", i, vertex.count)
		}
		p := Point{
			X: readPLYFloat(record[offsets[xi]:], vertex.props[xi].size),
			Y: readPLYFloat(record[offsets[yi]:], vertex.props[yi].size),
			Z: readPLYFloat(record[offsets[zi]:], vertex.props[zi].size),
		}
		if valid(p) {
			cloud.Points = append(cloud.Points, p)
		}
	}
	return cloud, nil
}

func readPLYFloat(b []byte, size int) float64 {
	if size == 8 {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

func readPLYLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
