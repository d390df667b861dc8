package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mapforge/pc2pgm/pkg/mapfile"
	"github.com/mapforge/pc2pgm/pkg/pointcloud"
	"github.com/mapforge/pc2pgm/pkg/slicer"
)

// Runner executes conversions. It is stateless except for the logger, so
// multiple goroutines can safely share one Runner with different options.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. A nil logger falls back to log.Default().
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute runs the complete load → rasterize → export pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	loadStart := time.Now()
	cloud, err := pointcloud.ReadFile(opts.Input)
	if err != nil {
		return nil, err
	}
	loadTime := time.Since(loadStart)

	opts.Logger.Info("loaded point cloud",
		"path", opts.Input,
		"points", cloud.Len(),
		"duration", loadTime.Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := r.Convert(ctx, cloud, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.LoadTime = loadTime
	return result, nil
}

// Convert rasterizes and exports an already-loaded cloud. The TUI and the
// preview server use this entry point so the cloud is read once and every
// parameter change is a fresh pure conversion over the same immutable data.
func (r *Runner) Convert(ctx context.Context, cloud *pointcloud.Cloud, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	grid, geom, band, rasterTime, err := r.rasterize(cloud, opts)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exportStart := time.Now()
	files, err := mapfile.Export(grid, geom, opts.exportOptions())
	if err != nil {
		return nil, err
	}
	exportTime := time.Since(exportStart)

	opts.Logger.Info("exported map",
		"image", files.ImagePath,
		"metadata", files.MetadataPath,
		"duration", exportTime.Round(time.Millisecond))

	return &Result{
		Grid:     grid,
		Geometry: geom,
		Band:     band,
		Files:    files,
		Stats: Stats{
			TotalPoints:   cloud.Len(),
			BandPoints:    grid.TotalPoints(),
			Width:         grid.Width,
			Height:        grid.Height,
			OccupiedCells: grid.OccupiedCells(),
			RasterizeTime: rasterTime,
			ExportTime:    exportTime,
		},
	}, nil
}

// Rasterize runs only the slicing stage, without touching the filesystem.
func (r *Runner) Rasterize(cloud *pointcloud.Cloud, opts Options) (*slicer.Grid, slicer.Geometry, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, slicer.Geometry{}, err
	}
	grid, geom, _, _, err := r.rasterize(cloud, opts)
	return grid, geom, err
}

func (r *Runner) rasterize(cloud *pointcloud.Cloud, opts Options) (*slicer.Grid, slicer.Geometry, [2]float64, time.Duration, error) {
	band := resolveBand(cloud, opts)

	start := time.Now()
	grid, geom, err := slicer.Rasterize(cloud, opts.slicerOptions(band[0], band[1]))
	if err != nil {
		return nil, slicer.Geometry{}, band, 0, err
	}
	elapsed := time.Since(start)

	opts.Logger.Info("rasterized height band",
		"z_min", band[0],
		"z_max", band[1],
		"in_band", grid.TotalPoints(),
		"grid", fmt.Sprintf("%dx%d", grid.Width, grid.Height),
		"occupied", grid.OccupiedCells(),
		"duration", elapsed.Round(time.Millisecond))

	return grid, geom, band, elapsed, nil
}

// resolveBand substitutes the cloud's own z-range for unset band ends.
// An empty cloud resolves to the degenerate band [0, 0]; the rasterizer
// handles it as the documented empty case.
func resolveBand(cloud *pointcloud.Cloud, opts Options) [2]float64 {
	zMin, zMax := opts.ZMin, opts.ZMax
	if math.IsNaN(zMin) || math.IsNaN(zMax) {
		lo, hi, ok := cloud.ZRange()
		if !ok {
			lo, hi = 0, 0
		}
		if math.IsNaN(zMin) {
			zMin = lo
		}
		if math.IsNaN(zMax) {
			zMax = hi
		}
	}
	return [2]float64{zMin, zMax}
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
