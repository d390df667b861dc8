package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mapforge/pc2pgm/pkg/pointcloud"
	"github.com/mapforge/pc2pgm/pkg/slicer"
)

// histogramBins is the number of bins in the z-distribution display.
const histogramBins = 16

// infoCommand creates the info command for inspecting point clouds.
//
// The z-height distribution is what users need to pick a sensible band:
// floors and ceilings show up as sharp spikes, so the quantiles and the
// histogram make good --z-min/--z-max candidates obvious.
func (c *CLI) infoCommand() *cobra.Command {
	var resolution float64

	cmd := &cobra.Command{
		Use:   "info <cloud.pcd|cloud.ply>",
		Short: "Print point cloud statistics and the z-height distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInfo(args[0], resolution)
		},
	}

	cmd.Flags().Float64VarP(&resolution, "resolution", "r", c.Config.Resolution, "cell size used for the projected grid size estimate")

	return cmd
}

func (c *CLI) runInfo(input string, resolution float64) error {
	cloud, err := pointcloud.ReadFile(input)
	if err != nil {
		return err
	}

	fmt.Println(StyleTitle.Render(input))
	printKeyValue("points", fmt.Sprintf("%d", cloud.Len()))
	if cloud.IsEmpty() {
		printWarning("Cloud contains no finite points")
		return nil
	}

	bound := cloud.Bounds()
	printKeyValue("x extent", fmt.Sprintf("[%.3f, %.3f] m", bound.Min.X(), bound.Max.X()))
	printKeyValue("y extent", fmt.Sprintf("[%.3f, %.3f] m", bound.Min.Y(), bound.Max.Y()))

	zs := make([]float64, cloud.Len())
	for i, p := range cloud.Points {
		zs[i] = p.Z
	}
	sort.Float64s(zs)

	printKeyValue("z extent", fmt.Sprintf("[%.3f, %.3f] m", zs[0], zs[len(zs)-1]))
	printKeyValue("z mean", fmt.Sprintf("%.3f m (stddev %.3f)", stat.Mean(zs, nil), stat.StdDev(zs, nil)))
	for _, q := range []float64{0.05, 0.25, 0.5, 0.75, 0.95} {
		printKeyValue(fmt.Sprintf("z p%02.0f", q*100),
			fmt.Sprintf("%.3f m", stat.Quantile(q, stat.Empirical, zs, nil)))
	}

	// Grid size at the requested resolution, full z-range.
	zMin, zMax, _ := cloud.ZRange()
	if grid, g, err := slicer.Rasterize(cloud, slicer.Options{
		ZMin: zMin, ZMax: zMax, Resolution: resolution, MinOccupiedPoints: 1,
	}); err == nil {
		printKeyValue("grid", fmt.Sprintf("%dx%d cells at %.3g m/px", g.Width, g.Height, resolution))
		printKeyValue("occupied", fmt.Sprintf("%d cells (threshold 1)", grid.OccupiedCells()))
	}

	fmt.Println()
	fmt.Println(StyleDim.Render("z distribution"))
	printHistogram(zs)
	return nil
}

// printHistogram renders a horizontal bar chart of the z distribution.
func printHistogram(sorted []float64) {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		printKeyValue(fmt.Sprintf("%.3f", lo), strings.Repeat("█", 40))
		return
	}

	dividers := make([]float64, histogramBins+1)
	floats.Span(dividers, lo, hi)
	// Histogram requires the last divider to exceed the maximum sample.
	dividers[histogramBins] = hi + 1e-9

	counts := stat.Histogram(nil, dividers, sorted, nil)
	max := floats.Max(counts)
	for i, n := range counts {
		bar := int(40 * n / max)
		fmt.Printf("%s %s %s\n",
			StyleDim.Render(fmt.Sprintf("%8.3f", dividers[i])),
			StyleHighlight.Render(strings.Repeat("█", bar)),
			StyleDim.Render(fmt.Sprintf("%d", int(n))))
	}
}
