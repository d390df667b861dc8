package slicer

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestGeometryCellCenterRoundTrip(t *testing.T) {
	geom := Geometry{
		Resolution: 0.25,
		Origin:     orb.Point{-1.5, 2.0},
		Width:      8,
		Height:     5,
	}

	for row := 0; row < geom.Height; row++ {
		for col := 0; col < geom.Width; col++ {
			center := geom.CellCenter(col, row)
			gotCol, gotRow := geom.Cell(center)
			if gotCol != col || gotRow != row {
				t.Fatalf("Cell(CellCenter(%d, %d)) = (%d, %d)", col, row, gotCol, gotRow)
			}
		}
	}
}

func TestGeometryCellRowOrientation(t *testing.T) {
	geom := Geometry{Resolution: 1, Origin: orb.Point{0, 0}, Width: 3, Height: 3}

	// Maximum-Y points land in row 0, minimum-Y points in the last row.
	if _, row := geom.Cell(orb.Point{0.5, 2.5}); row != 0 {
		t.Errorf("high-y row = %d, want 0", row)
	}
	if _, row := geom.Cell(orb.Point{0.5, 0.5}); row != 2 {
		t.Errorf("low-y row = %d, want 2", row)
	}
}

func TestGeometryBound(t *testing.T) {
	geom := Geometry{Resolution: 0.5, Origin: orb.Point{1, 2}, Width: 4, Height: 6}

	b := geom.Bound()
	if b.Min != geom.Origin {
		t.Errorf("bound min = %v, want %v", b.Min, geom.Origin)
	}
	if b.Max.X() != 3 || b.Max.Y() != 5 {
		t.Errorf("bound max = %v, want (3, 5)", b.Max)
	}
}

func TestCellIndexClamp(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{1.99, 3},
		{2.0, 3},  // exact max boundary stays in the last cell
		{-0.1, 0}, // float noise below min clamps up
	}
	for _, tt := range tests {
		if got := cellIndex(tt.v, 0, 0.5, 4); got != tt.want {
			t.Errorf("cellIndex(%g) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestDimension(t *testing.T) {
	tests := []struct {
		extent, res float64
		want        int
	}{
		{0, 0.05, 1},   // degenerate extent still yields one cell
		{0.1, 0.05, 2},
		{0.11, 0.05, 3}, // partial cell rounds up
		{1, 1, 1},
	}
	for _, tt := range tests {
		if got := dimension(tt.extent, tt.res); got != tt.want {
			t.Errorf("dimension(%g, %g) = %d, want %d", tt.extent, tt.res, got, tt.want)
		}
	}
}

func TestGeometryCellCenterWorld(t *testing.T) {
	geom := Geometry{Resolution: 2, Origin: orb.Point{10, 20}, Width: 2, Height: 2}

	// Bottom-left cell is (0, Height-1) in raster coordinates.
	c := geom.CellCenter(0, 1)
	if math.Abs(c.X()-11) > 1e-12 || math.Abs(c.Y()-21) > 1e-12 {
		t.Errorf("bottom-left center = %v, want (11, 21)", c)
	}
	c = geom.CellCenter(1, 0)
	if math.Abs(c.X()-13) > 1e-12 || math.Abs(c.Y()-23) > 1e-12 {
		t.Errorf("top-right center = %v, want (13, 23)", c)
	}
}
