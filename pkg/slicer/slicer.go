// Package slicer converts a 3D point cloud into a 2D occupancy grid.
//
// Rasterize is a pure function: it selects the points inside an inclusive
// height band, projects them onto the XY plane, bins them into a regular
// grid and classifies each cell against an occupancy threshold. The result
// is deterministic for a given input, holds no reference to the input cloud
// and shares no state between calls, so concurrent conversions over
// independent inputs are safe.
package slicer

import (
	"runtime"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/mapforge/pc2pgm/pkg/errors"
	"github.com/mapforge/pc2pgm/pkg/pointcloud"
)

// Options configures a single rasterization call. There are no ambient
// defaults: every parameter is explicit so calls are reproducible.
type Options struct {
	// ZMin and ZMax select the inclusive height band to rasterize.
	ZMin, ZMax float64

	// Resolution is the cell edge length in world units. Must be > 0.
	Resolution float64

	// MinOccupiedPoints is the minimum point count for a cell to classify
	// as occupied. Must be >= 1.
	MinOccupiedPoints int

	// Workers shards the binning step across goroutines when > 1. Cell
	// counts are summed per shard and merged, so the result is identical
	// to the single-threaded path. 0 means runtime.NumCPU().
	Workers int
}

// Validate checks the options eagerly, before any point is touched.
// Invalid parameters are reported, never clamped.
func (o Options) Validate() error {
	if err := errors.ValidateHeightBand(o.ZMin, o.ZMax); err != nil {
		return err
	}
	if err := errors.ValidateResolution(o.Resolution); err != nil {
		return err
	}
	return errors.ValidateMinOccupiedPoints(o.MinOccupiedPoints)
}

// Rasterize slices cloud by the height band in opts and bins the surviving
// points into an occupancy grid.
//
// Every point with z in [ZMin, ZMax] contributes to exactly one cell:
// its XY offset from the bounding-box minimum divided by the resolution,
// floored, with exact maximum-boundary values clamped into the last cell.
// Points outside the band are excluded entirely and never influence the
// grid dimensions.
//
// An empty band is not an error: the result is a 1x1 grid with a zero
// count and origin (0, 0), which exports as a single free pixel.
func Rasterize(cloud *pointcloud.Cloud, opts Options) (*Grid, Geometry, error) {
	if err := opts.Validate(); err != nil {
		return nil, Geometry{}, err
	}

	selected := cloud.FilterZ(opts.ZMin, opts.ZMax)
	if selected.IsEmpty() {
		grid := newGrid(1, 1, opts.MinOccupiedPoints)
		geom := Geometry{Resolution: opts.Resolution, Width: 1, Height: 1}
		return grid, geom, nil
	}

	bound := selected.Bounds()
	geom := Geometry{
		Resolution: opts.Resolution,
		Origin:     bound.Min,
		Width:      dimension(bound.Max.X()-bound.Min.X(), opts.Resolution),
		Height:     dimension(bound.Max.Y()-bound.Min.Y(), opts.Resolution),
	}

	grid := newGrid(geom.Width, geom.Height, opts.MinOccupiedPoints)

	workers := opts.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > 1 && selected.Len() >= minPointsPerShard*2 {
		binParallel(grid, geom, selected.Points, workers)
	} else {
		bin(grid.counts, geom, selected.Points)
	}

	return grid, geom, nil
}

// minPointsPerShard keeps the parallel path from spawning goroutines for
// clouds small enough that the fan-out costs more than the counting.
const minPointsPerShard = 4096

// bin accumulates per-cell counts for points into counts.
func bin(counts []int, geom Geometry, points []pointcloud.Point) {
	for _, p := range points {
		col, row := geom.Cell(orb.Point{p.X, p.Y})
		counts[row*geom.Width+col]++
	}
}

// binParallel shards the points across workers, bins each shard into its
// own count slice and merges by summation. Counts are commutative and
// associative, so the merged grid is bit-identical to the serial result.
func binParallel(grid *Grid, geom Geometry, points []pointcloud.Point, workers int) {
	shards := workers
	if max := len(points) / minPointsPerShard; shards > max {
		shards = max
	}

	partial := make([][]int, shards)
	var g errgroup.Group
	for s := 0; s < shards; s++ {
		lo := s * len(points) / shards
		hi := (s + 1) * len(points) / shards
		s := s
		g.Go(func() error {
			counts := make([]int, len(grid.counts))
			bin(counts, geom, points[lo:hi])
			partial[s] = counts
			return nil
		})
	}
	// The workers never fail; Wait only synchronizes.
	_ = g.Wait()

	for _, counts := range partial {
		for i, n := range counts {
			grid.counts[i] += n
		}
	}
}
