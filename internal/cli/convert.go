package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapforge/pc2pgm/pkg/pipeline"
)

// convertOpts holds the command-line flags for the convert command.
// Unset band flags mean "use the cloud's full z-range for that end".
type convertOpts struct {
	zMin       float64 // lower band edge in meters
	zMax       float64 // upper band edge in meters
	resolution float64 // cell size in meters per pixel
	minPoints  int     // points required to mark a cell occupied
	outputDir  string  // output directory
	name       string  // output map name (extension optional)
	negate     bool    // invert raster pixel values
	ascii      bool    // write plain-text P2 instead of binary P5
	workers    int     // binning parallelism
}

// convertCommand creates the convert command, the one-shot pipeline run.
//
// Default options come from the configuration file (or the built-in
// defaults), and any flag set on the command line overrides both.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "convert <cloud.pcd|cloud.ply>",
		Short: "Convert a point cloud into a PGM occupancy grid map",
		Long: `Convert a point cloud into a 2D occupancy grid map.

Points inside the height band [--z-min, --z-max] are projected onto the XY
plane and binned into grid cells. Cells holding at least --min-points points
become occupied (black); all other cells are free (white). The command writes
a PGM raster plus a YAML metadata sidecar next to it.

Examples:
  pc2pgm convert scan.pcd                                # full z-range
  pc2pgm convert scan.pcd --z-min 0.1 --z-max 1.8        # waist-height slice
  pc2pgm convert scan.ply -o maps -n floor2 --ascii      # P2 text raster`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd, args[0], opts)
		},
	}

	cmd.Flags().Float64Var(&opts.zMin, "z-min", 0, "lower band edge in meters (default: cloud minimum)")
	cmd.Flags().Float64Var(&opts.zMax, "z-max", 0, "upper band edge in meters (default: cloud maximum)")
	cmd.Flags().Float64VarP(&opts.resolution, "resolution", "r", c.Config.Resolution, "cell size in meters per pixel")
	cmd.Flags().IntVar(&opts.minPoints, "min-points", c.Config.MinOccupiedPoints, "points per cell required for occupancy")
	cmd.Flags().StringVarP(&opts.outputDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVarP(&opts.name, "name", "n", pipeline.DefaultName, "output map name")
	cmd.Flags().BoolVar(&opts.negate, "negate", false, "invert raster pixel values")
	cmd.Flags().BoolVar(&opts.ascii, "ascii", false, "write plain-text P2 instead of binary P5")
	cmd.Flags().IntVar(&opts.workers, "workers", c.Config.Workers, "binning goroutines (0 = NumCPU)")

	return cmd
}

func (c *CLI) runConvert(cmd *cobra.Command, input string, opts convertOpts) error {
	p := c.newPipelineOptions(input)
	p.OutputDir = opts.outputDir
	p.Name = opts.name
	p.Resolution = opts.resolution
	p.MinOccupiedPoints = opts.minPoints
	p.Negate = opts.negate
	p.ASCII = opts.ascii
	p.Workers = opts.workers
	if cmd.Flags().Changed("z-min") {
		p.ZMin = opts.zMin
	}
	if cmd.Flags().Changed("z-max") {
		p.ZMax = opts.zMax
	}

	prog := newProgress(loggerFromContext(cmd.Context()))
	result, err := c.newRunner().Execute(cmd.Context(), p)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Converted %d points", result.Stats.TotalPoints))

	printSuccess("Exported %s (%dx%d cells, %.0f%% occupied)",
		opts.name,
		result.Stats.Width, result.Stats.Height,
		percent(result.Stats.OccupiedCells, result.Stats.Width*result.Stats.Height))
	printKeyValue("band", fmt.Sprintf("[%.3f, %.3f] m", result.Band[0], result.Band[1]))
	printKeyValue("in band", fmt.Sprintf("%d / %d points", result.Stats.BandPoints, result.Stats.TotalPoints))
	printKeyValue("origin", fmt.Sprintf("(%.3f, %.3f)", result.Geometry.Origin.X(), result.Geometry.Origin.Y()))
	printFile(result.Files.ImagePath)
	printFile(result.Files.MetadataPath)

	if result.Stats.BandPoints == 0 {
		printWarning("No points in the height band; wrote an empty map")
	}
	return nil
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}
