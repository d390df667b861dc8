// Package mapfile serializes occupancy grids to the portable map format
// used by robotics stacks: a PGM raster plus a YAML sidecar describing how
// to map pixels back to world coordinates.
//
// The raster is two-valued. Occupied cells become black pixels (0), free
// and unknown cells become white pixels (255); a negate flag flips both.
// Row 0 of the image covers the maximum-Y world band, so the image top is
// the grid's north edge, matching what downstream map consumers expect.
package mapfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mapforge/pc2pgm/pkg/slicer"
)

// Pixel values of the two-valued raster before negation.
const (
	PixelOccupied = 0
	PixelFree     = 255
)

// Conventional normalized thresholds written to the metadata sidecar.
const (
	DefaultOccupiedThresh = 0.65
	DefaultFreeThresh     = 0.2
)

// EncodePGM writes grid to w as a PGM image. The binary P5 flavor is the
// default; ascii selects the plain-text P2 flavor, which is larger but
// diffable. Rows are written top to bottom in the grid's raster order.
func EncodePGM(w io.Writer, grid *slicer.Grid, negate bool, ascii bool) error {
	bw := bufio.NewWriter(w)

	magic := "P5"
	if ascii {
		magic = "P2"
	}
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n255\n", magic, grid.Width, grid.Height); err != nil {
		return err
	}

	if ascii {
		if err := encodeP2(bw, grid, negate); err != nil {
			return err
		}
	} else {
		if err := encodeP5(bw, grid, negate); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func encodeP5(w *bufio.Writer, grid *slicer.Grid, negate bool) error {
	row := make([]byte, grid.Width)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			row[x] = pixel(grid.StateAt(x, y), negate)
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func encodeP2(w *bufio.Writer, grid *slicer.Grid, negate bool) error {
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if x > 0 {
				if err := w.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%d", pixel(grid.StateAt(x, y), negate)); err != nil {
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// pixel maps a cell state to its raster value. Unknown collapses to the
// free value: the two-valued format cannot represent a third state.
func pixel(state slicer.CellState, negate bool) byte {
	v := byte(PixelFree)
	if state == slicer.CellOccupied {
		v = PixelOccupied
	}
	if negate {
		v = 255 - v
	}
	return v
}
