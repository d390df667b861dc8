package pointcloud

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/mapforge/pc2pgm/pkg/errors"
)

func TestDecodePLYASCII(t *testing.T) {
	in := `ply
format ascii 1.0
comment made by a scanner
element vertex 3
property float x
property float y
property float z
end_header
0 0 0
1.5 -2.5 0.75
3 3 3
`
	cloud, err := DecodePLY(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodePLY error: %v", err)
	}
	if cloud.Len() != 3 {
		t.Fatalf("points = %d, want 3", cloud.Len())
	}
	if got := cloud.Points[1]; got != (Point{1.5, -2.5, 0.75}) {
		t.Errorf("point[1] = %v, want {1.5 -2.5 0.75}", got)
	}
}

func TestDecodePLYASCIIExtraProperties(t *testing.T) {
	// Color properties after the coordinates are ignored.
	in := `ply
format ascii 1.0
element vertex 1
property float x
property float y
property float z
property uchar red
property uchar green
property uchar blue
end_header
1 2 3 255 0 0
`
	cloud, err := DecodePLY(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodePLY error: %v", err)
	}
	if cloud.Len() != 1 || cloud.Points[0] != (Point{1, 2, 3}) {
		t.Errorf("points = %v, want [{1 2 3}]", cloud.Points)
	}
}

func TestDecodePLYASCIISkipsOtherElements(t *testing.T) {
	// A face element after the vertices must not be parsed as vertex data.
	in := `ply
format ascii 1.0
element vertex 2
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 1 1
3 0 1 0
`
	cloud, err := DecodePLY(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodePLY error: %v", err)
	}
	if cloud.Len() != 2 {
		t.Errorf("points = %d, want 2", cloud.Len())
	}
}

func TestDecodePLYASCIITruncated(t *testing.T) {
	in := `ply
format ascii 1.0
element vertex 2
property float x
property float y
property float z
end_header
0 0 0
`
	_, err := DecodePLY(strings.NewReader(in))
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
	}
}

func TestDecodePLYBinary(t *testing.T) {
	header := `ply
format binary_little_endian 1.0
element vertex 2
property float x
property float y
property float z
end_header
`
	var buf bytes.Buffer
	buf.WriteString(header)
	for _, v := range []float32{1, 2, 3, -0.5, 0.25, 9} {
		binary.Write(&buf, binary.LittleEndian, v)
	}

	cloud, err := DecodePLY(&buf)
	if err != nil {
		t.Fatalf("DecodePLY error: %v", err)
	}
	if cloud.Len() != 2 {
		t.Fatalf("points = %d, want 2", cloud.Len())
	}
	if got := cloud.Points[1]; got != (Point{-0.5, 0.25, 9}) {
		t.Errorf("point[1] = %v, want {-0.5 0.25 9}", got)
	}
}

func TestDecodePLYBinaryInterleavedProperties(t *testing.T) {
	// A uchar intensity between coordinates shifts the byte offsets.
	header := `ply
format binary_little_endian 1.0
element vertex 1
property float x
property uchar intensity
property float y
property float z
end_header
`
	var buf bytes.Buffer
	buf.WriteString(header)
	binary.Write(&buf, binary.LittleEndian, float32(4))
	buf.WriteByte(200)
	binary.Write(&buf, binary.LittleEndian, float32(5))
	binary.Write(&buf, binary.LittleEndian, float32(6))

	cloud, err := DecodePLY(&buf)
	if err != nil {
		t.Fatalf("DecodePLY error: %v", err)
	}
	if cloud.Len() != 1 || cloud.Points[0] != (Point{4, 5, 6}) {
		t.Errorf("points = %v, want [{4 5 6}]", cloud.Points)
	}
}

func TestDecodePLYDoubleCoordinates(t *testing.T) {
	header := `ply
format binary_little_endian 1.0
element vertex 1
property double x
property double y
property double z
end_header
`
	var buf bytes.Buffer
	buf.WriteString(header)
	for _, v := range []float64{1.0000000001, 2, 3} {
		binary.Write(&buf, binary.LittleEndian, v)
	}

	cloud, err := DecodePLY(&buf)
	if err != nil {
		t.Fatalf("DecodePLY error: %v", err)
	}
	if cloud.Points[0].X != 1.0000000001 {
		t.Errorf("x = %v, double precision lost", cloud.Points[0].X)
	}
}

func TestDecodePLYNotAPLY(t *testing.T) {
	_, err := DecodePLY(strings.NewReader("solid teapot\n"))
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
	}
}

func TestDecodePLYBigEndianUnsupported(t *testing.T) {
	in := `ply
format binary_big_endian 1.0
element vertex 0
property float x
property float y
property float z
end_header
`
	_, err := DecodePLY(strings.NewReader(in))
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeUnsupported)
	}
}

func TestDecodePLYIntegerCoordinatesRejected(t *testing.T) {
	in := `ply
format ascii 1.0
element vertex 1
property int x
property int y
property int z
end_header
1 2 3
`
	_, err := DecodePLY(strings.NewReader(in))
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
	}
}
