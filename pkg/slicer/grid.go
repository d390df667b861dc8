package slicer

// CellState classifies one grid cell after thresholding.
//
// The PGM raster is two-valued, so Unknown exists only in this API: cells
// that never received a point report Unknown, cells with points below the
// occupancy threshold report Free, and both serialize to the same free
// pixel value.
type CellState uint8

const (
	// CellUnknown marks a cell no in-band point fell into.
	CellUnknown CellState = iota
	// CellFree marks a cell with points below the occupancy threshold.
	CellFree
	// CellOccupied marks a cell whose point count reached the threshold.
	CellOccupied
)

// String returns the lowercase name of the state.
func (s CellState) String() string {
	switch s {
	case CellOccupied:
		return "occupied"
	case CellFree:
		return "free"
	default:
		return "unknown"
	}
}

// Grid is a 2D occupancy grid of per-cell point counts.
//
// Storage is row-major with row 0 covering the maximum-Y world band, the
// order raster consumers expect (image top = the grid's north edge). A Grid
// is immutable once returned by Rasterize.
type Grid struct {
	Width  int // columns
	Height int // rows

	// MinOccupiedPoints is the occupancy threshold the grid was
	// classified with.
	MinOccupiedPoints int

	counts []int
}

// newGrid allocates a zeroed grid. Callers guarantee width, height >= 1 and
// minOccupied >= 1.
func newGrid(width, height, minOccupied int) *Grid {
	return &Grid{
		Width:             width,
		Height:            height,
		MinOccupiedPoints: minOccupied,
		counts:            make([]int, width*height),
	}
}

// CountAt returns the number of points binned into the cell at (col, row),
// with row 0 at the top of the raster.
func (g *Grid) CountAt(col, row int) int {
	return g.counts[row*g.Width+col]
}

// StateAt classifies the cell at (col, row).
func (g *Grid) StateAt(col, row int) CellState {
	switch n := g.CountAt(col, row); {
	case n >= g.MinOccupiedPoints:
		return CellOccupied
	case n > 0:
		return CellFree
	default:
		return CellUnknown
	}
}

// TotalPoints returns the sum of all cell counts. By construction this
// equals the number of points inside the height band.
func (g *Grid) TotalPoints() int {
	total := 0
	for _, n := range g.counts {
		total += n
	}
	return total
}

// OccupiedCells returns the number of cells classified occupied.
func (g *Grid) OccupiedCells() int {
	occupied := 0
	for _, n := range g.counts {
		if n >= g.MinOccupiedPoints {
			occupied++
		}
	}
	return occupied
}
