// Package pipeline provides the core conversion pipeline for pc2pgm.
//
// This package implements the complete load → rasterize → export pipeline
// shared by the CLI commands and the preview server. Centralizing it keeps
// behavior identical across entry points.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read a point cloud from a .pcd or .ply file
//  2. Rasterize: slice the height band and bin points into an occupancy grid
//  3. Export: write the PGM raster and YAML metadata sidecar
//
// Each stage can be run independently or as part of the complete pipeline.
// A Runner holds no mutable state between calls: every Execute is an
// independent one-shot conversion, and callers that can trigger overlapping
// conversions are responsible for treating each call's inputs and outputs
// as independent values.
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	opts := pipeline.Options{
//	    Input:      "scan.pcd",
//	    OutputDir:  "out",
//	    Name:       "map",
//	    Resolution: 0.05,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Files.ImagePath)
package pipeline

import (
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mapforge/pc2pgm/pkg/errors"
	"github.com/mapforge/pc2pgm/pkg/mapfile"
	"github.com/mapforge/pc2pgm/pkg/slicer"
)

// Default values shared by the CLI and the preview server.
const (
	// DefaultResolution is the default cell size in meters per pixel.
	DefaultResolution = 0.05

	// DefaultMinOccupiedPoints is the default occupancy threshold in
	// points per cell.
	DefaultMinOccupiedPoints = 2

	// DefaultName is the default output map name.
	DefaultName = "map"

	// DefaultVoxelSize is the default downsampling voxel edge for preview
	// displays. It never affects the exported map.
	DefaultVoxelSize = 0.1
)

// Options contains all configuration for a conversion.
//
// The zero value of an optional field means "use the default": Resolution,
// MinOccupiedPoints, Name, OutputDir and the sidecar thresholds all have
// documented defaults applied by ValidateAndSetDefaults. Explicitly set
// parameters are never clamped: slicer.Options and mapfile.Options reject
// invalid values after defaulting has run.
type Options struct {
	// Input is the point cloud path (.pcd or .ply).
	Input string

	// OutputDir and Name locate the exported files. OutputDir defaults to
	// ".", Name to DefaultName.
	OutputDir string
	Name      string

	// ZMin and ZMax select the height band. NaN (the default) means the
	// corresponding end of the cloud's full z-range.
	ZMin, ZMax float64

	// Resolution is the cell size in meters; 0 means DefaultResolution.
	Resolution float64

	// MinOccupiedPoints is the occupancy threshold; 0 means
	// DefaultMinOccupiedPoints.
	MinOccupiedPoints int

	// OccupiedThresh and FreeThresh are the normalized sidecar thresholds;
	// 0 means the conventional defaults (0.65 and 0.2).
	OccupiedThresh float64
	FreeThresh     float64

	// Negate flips raster pixel values.
	Negate bool

	// ASCII selects the plain-text P2 raster flavor.
	ASCII bool

	// Workers shards the binning step; 0 lets the rasterizer decide.
	Workers int

	// Logger receives stage progress. Nil discards.
	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// NewOptions returns Options with the band unset (full z-range).
func NewOptions(input string) Options {
	return Options{Input: input, ZMin: math.NaN(), ZMax: math.NaN()}
}

// ValidateAndSetDefaults applies defaults and eagerly validates every
// parameter that does not depend on the loaded cloud. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input point cloud path is required")
	}
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Resolution == 0 {
		o.Resolution = DefaultResolution
	}
	if o.MinOccupiedPoints == 0 {
		o.MinOccupiedPoints = DefaultMinOccupiedPoints
	}
	if o.OccupiedThresh == 0 {
		o.OccupiedThresh = mapfile.DefaultOccupiedThresh
	}
	if o.FreeThresh == 0 {
		o.FreeThresh = mapfile.DefaultFreeThresh
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	// A half-set band keeps its set end; validation of ordering happens
	// here only when both ends are explicit, otherwise after load.
	if !math.IsNaN(o.ZMin) && !math.IsNaN(o.ZMax) {
		if err := errors.ValidateHeightBand(o.ZMin, o.ZMax); err != nil {
			return err
		}
	}
	if err := errors.ValidateResolution(o.Resolution); err != nil {
		return err
	}
	if err := errors.ValidateMinOccupiedPoints(o.MinOccupiedPoints); err != nil {
		return err
	}
	if err := o.exportOptions().Validate(); err != nil {
		return err
	}

	o.validated = true
	return nil
}

// slicerOptions builds the rasterizer options for a resolved band.
func (o *Options) slicerOptions(zMin, zMax float64) slicer.Options {
	return slicer.Options{
		ZMin:              zMin,
		ZMax:              zMax,
		Resolution:        o.Resolution,
		MinOccupiedPoints: o.MinOccupiedPoints,
		Workers:           o.Workers,
	}
}

// exportOptions builds the exporter options.
func (o *Options) exportOptions() mapfile.Options {
	return mapfile.Options{
		Dir:            o.OutputDir,
		Name:           o.Name,
		OccupiedThresh: o.OccupiedThresh,
		FreeThresh:     o.FreeThresh,
		Negate:         o.Negate,
		ASCII:          o.ASCII,
	}
}

// Stats contains pipeline execution statistics.
type Stats struct {
	TotalPoints   int
	BandPoints    int
	Width, Height int
	OccupiedCells int
	LoadTime      time.Duration
	RasterizeTime time.Duration
	ExportTime    time.Duration
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Grid is the thresholded occupancy grid.
	Grid *slicer.Grid

	// Geometry georeferences the grid.
	Geometry slicer.Geometry

	// Band is the height band actually used, after defaulting to the
	// cloud's z-range.
	Band [2]float64

	// Files names the written image and metadata files.
	Files mapfile.Result

	// Stats contains timing and size information.
	Stats Stats
}
