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

// pcdHeader holds the subset of the PCD header the reader cares about.
// Field layout is described by parallel slices: FIELDS, SIZE, TYPE and COUNT
// entries share an index.
type pcdHeader struct {
	fields []string
	sizes  []int
	types  []string
	counts []int
	points int
	data   string // "ascii" or "binary"
}

// DecodePCD reads a point cloud in PCD format from r.
// Both "DATA ascii" and "DATA binary" encodings are supported; the
// compressed "binary_compressed" encoding is not. Fields other than x, y
// and z are skipped.
func DecodePCD(r io.Reader) (*Cloud, error) {
	br := bufio.NewReader(r)

	hdr, err := parsePCDHeader(br)
	if err != nil {
		return nil, err
	}

	xi, yi, zi := indexOf(hdr.fields, "x"), indexOf(hdr.fields, "y"), indexOf(hdr.fields, "z")
	if xi < 0 || yi < 0 || zi < 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "PCD is missing x/y/z fields (got %s)", strings.Join(hdr.fields, " "))
	}

	switch hdr.data {
	case "ascii":
		return decodePCDASCII(br, hdr, xi, yi, zi)
	case "binary":
		return decodePCDBinary(br, hdr, xi, yi, zi)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "PCD data encoding %q is not supported", hdr.data)
	}
}

// parsePCDHeader consumes header lines up to and including the DATA line.
func parsePCDHeader(br *bufio.Reader) (*pcdHeader, error) {
	hdr := &pcdHeader{points: -1}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "truncated PCD header")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		tokens := strings.Fields(line)
		key, args := strings.ToUpper(tokens[0]), tokens[1:]

		switch key {
		case "FIELDS":
			hdr.fields = make([]string, len(args))
			for i, f := range args {
				hdr.fields[i] = strings.ToLower(f)
			}
		case "SIZE":
			if hdr.sizes, err = atoiAll(args); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "bad SIZE line %q", line)
			}
		case "TYPE":
			hdr.types = args
		case "COUNT":
			if hdr.counts, err = atoiAll(args); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "bad COUNT line %q", line)
			}
		case "POINTS":
			if len(args) != 1 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "bad POINTS line %q", line)
			}
			if hdr.points, err = strconv.Atoi(args[0]); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "bad POINTS line %q", line)
			}
		case "DATA":
			if len(args) != 1 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "bad DATA line %q", line)
			}
			hdr.data = strings.ToLower(args[0])
			return finishPCDHeader(hdr)
		case "VERSION", "WIDTH", "HEIGHT", "VIEWPOINT":
			// not needed for coordinate extraction
		default:
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown PCD header line %q", line)
		}
	}
}

// finishPCDHeader fills optional defaults and checks consistency.
func finishPCDHeader(hdr *pcdHeader) (*pcdHeader, error) {
	if len(hdr.fields) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "PCD header has no FIELDS line")
	}
	if hdr.points < 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "PCD header has no POINTS line")
	}
	if hdr.counts == nil {
		hdr.counts = make([]int, len(hdr.fields))
		for i := range hdr.counts {
			hdr.counts[i] = 1
		}
	}
	if len(hdr.sizes) != len(hdr.fields) || len(hdr.types) != len(hdr.fields) || len(hdr.counts) != len(hdr.fields) {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "PCD header FIELDS/SIZE/TYPE/COUNT lengths disagree")
	}
	return hdr, nil
}

func decodePCDASCII(br *bufio.Reader, hdr *pcdHeader, xi, yi, zi int) (*Cloud, error) {
	// Token offset of each field within an ASCII record.
	offsets := make([]int, len(hdr.fields))
	total := 0
	for i, n := range hdr.counts {
		offsets[i] = total
		total += n
	}

	cloud := &Cloud{Points: make([]Point, 0, hdr.points)}
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	records := 0
	for records < hdr.points && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		records++
		tokens := strings.Fields(line)
		if len(tokens) < total {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "short PCD record %q", line)
		}
		x, errX := strconv.ParseFloat(tokens[offsets[xi]], 64)
		y, errY := strconv.ParseFloat(tokens[offsets[yi]], 64)
		z, errZ := strconv.ParseFloat(tokens[offsets[zi]], 64)
		if errX != nil || errY != nil || errZ != nil {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "bad PCD coordinate in record %q", line)
		}
		if p := (Point{x, y, z}); valid(p) {
			cloud.Points = append(cloud.Points, p)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read PCD data")
	}
	// NaN returns are dropped silently, but a truncated file is not.
	if records < hdr.points {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "PCD declares %d points but data ended after %d", hdr.points, records)
	}
	return cloud, nil
}

func decodePCDBinary(br *bufio.Reader, hdr *pcdHeader, xi, yi, zi int) (*Cloud, error) {
	// Byte offset of each field within a binary record.
	offsets := make([]int, len(hdr.fields))
	stride := 0
	for i := range hdr.fields {
		offsets[i] = stride
		stride += hdr.sizes[i] * hdr.counts[i]
	}

	for _, i := range []int{xi, yi, zi} {
		if hdr.types[i] != "F" || (hdr.sizes[i] != 4 && hdr.sizes[i] != 8) {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"PCD field %q must be a 4- or 8-byte float, got %s%d", hdr.fields[i], hdr.types[i], hdr.sizes[i])
		}
	}

	cloud := &Cloud{Points: make([]Point, 0, hdr.points)}
	record := make([]byte, stride)

	for i := 0; i < hdr.points; i++ {
		if _, err := io.ReadFull(br, record); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "truncated PCD binary data at point %d of %d", i, hdr.points)
		}
		p := Point{
			X: readPCDFloat(record[offsets[xi]:], hdr.sizes[xi]),
			Y: readPCDFloat(record[offsets[yi]:], hdr.sizes[yi]),
			Z: readPCDFloat(record[offsets[zi]:], hdr.sizes[zi]),
		}
		if valid(p) {
			cloud.Points = append(cloud.Points, p)
		}
	}
	return cloud, nil
}

// readPCDFloat decodes a little-endian float of the given byte size.
func readPCDFloat(b []byte, size int) float64 {
	if size == 8 {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

func atoiAll(tokens []string) ([]int, error) {
	out := make([]int, len(tokens))
	for i, t := range tokens {
		n, err := strconv.Atoi(t)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func indexOf(ss []string, want string) int {
	for i, s := range ss {
		if s == want {
			return i
		}
	}
	return -1
}
