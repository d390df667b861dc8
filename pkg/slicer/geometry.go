package slicer

import (
	"math"

	"github.com/paulmach/orb"
)

// Geometry maps grid cells back to world coordinates and vice versa.
//
// Origin is the world coordinate of the grid's lower-left corner (the
// corner, not the center of the corner cell). Together with Resolution it
// georeferences every pixel of the exported raster.
type Geometry struct {
	// Resolution is the cell edge length in world units (meters per cell).
	Resolution float64
	// Origin is the lower-left world corner (minX, minY) of the grid.
	Origin orb.Point
	// Width and Height are the grid dimensions in cells.
	Width, Height int
}

// Bound returns the world-space extent covered by the grid.
func (g Geometry) Bound() orb.Bound {
	return orb.Bound{
		Min: g.Origin,
		Max: orb.Point{
			g.Origin.X() + float64(g.Width)*g.Resolution,
			g.Origin.Y() + float64(g.Height)*g.Resolution,
		},
	}
}

// Cell returns the raster cell containing the world point p, with row 0 at
// the top of the raster (maximum-Y world band). Points on the exact maximum
// boundary clamp into the last valid cell; callers are expected to pass
// points inside Bound.
func (g Geometry) Cell(p orb.Point) (col, row int) {
	col = cellIndex(p.X(), g.Origin.X(), g.Resolution, g.Width)
	iy := cellIndex(p.Y(), g.Origin.Y(), g.Resolution, g.Height)
	return col, g.Height - 1 - iy
}

// CellCenter returns the world coordinate of the center of the cell at
// (col, row), the inverse of Cell up to half a cell.
func (g Geometry) CellCenter(col, row int) orb.Point {
	iy := g.Height - 1 - row
	return orb.Point{
		g.Origin.X() + (float64(col)+0.5)*g.Resolution,
		g.Origin.Y() + (float64(iy)+0.5)*g.Resolution,
	}
}

// cellIndex bins a coordinate into one of n cells of the given resolution
// starting at min. Values that floor onto n, which happens for the exact
// maximum boundary, clamp into the last cell (boundary-inclusive policy).
func cellIndex(v, min, resolution float64, n int) int {
	i := int(math.Floor((v - min) / resolution))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// dimension returns the number of cells needed to span extent at the given
// resolution, at least 1.
func dimension(extent, resolution float64) int {
	n := int(math.Ceil(extent / resolution))
	if n < 1 {
		return 1
	}
	return n
}
