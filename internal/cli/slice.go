package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mapforge/pc2pgm/pkg/pipeline"
	"github.com/mapforge/pc2pgm/pkg/pointcloud"
)

// sliceCommand creates the slice command, the interactive band tuner.
//
// The TUI renders an ASCII preview of the occupancy grid for a downsampled
// copy of the cloud and recomputes it on every key press. Exporting always
// re-runs the conversion on the full cloud, so the downsampling never leaks
// into the written map.
func (c *CLI) sliceCommand() *cobra.Command {
	var (
		voxel     float64
		outputDir string
		name      string
	)

	cmd := &cobra.Command{
		Use:   "slice <cloud.pcd|cloud.ply>",
		Short: "Interactively tune the height band and export the map",
		Long: `Interactively tune the height band in the terminal.

Keys:
  a / z    raise / lower the band bottom (z_min)
  s / x    raise / lower the band top (z_max)
  [ / ]    coarser / finer resolution
  - / +    lower / raise the occupancy threshold
  enter    export the map and quit
  q        quit without exporting`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSlice(cmd, args[0], voxel, outputDir, name)
		},
	}

	cmd.Flags().Float64Var(&voxel, "voxel", c.Config.VoxelSize, "preview downsampling voxel edge in meters (0 = off)")
	cmd.Flags().StringVarP(&outputDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVarP(&name, "name", "n", pipeline.DefaultName, "output map name")

	return cmd
}

func (c *CLI) runSlice(cmd *cobra.Command, input string, voxel float64, outputDir, name string) error {
	spinner := newSpinnerWithContext(cmd.Context(), "Loading "+input)
	spinner.Start()
	cloud, err := pointcloud.ReadFile(input)
	if err != nil {
		spinner.StopWithError("Failed to load " + input)
		return err
	}
	spinner.Stop()
	if cloud.IsEmpty() {
		printWarning("Cloud contains no finite points; nothing to tune")
		return nil
	}

	preview := cloud
	if voxel > 0 {
		preview = pointcloud.VoxelDownsample(cloud, voxel)
		c.Logger.Debug("downsampled preview cloud",
			"voxel", voxel, "points", preview.Len(), "full", cloud.Len())
	}

	model := newSliceModel(preview, c.Config)
	final, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return err
	}

	m, ok := final.(sliceModel)
	if !ok || !m.export {
		printInfo("No map exported")
		return nil
	}

	// Re-run on the full cloud with the tuned parameters.
	opts := c.newPipelineOptions(input)
	opts.OutputDir = outputDir
	opts.Name = name
	opts.ZMin = m.zMin
	opts.ZMax = m.zMax
	opts.Resolution = m.resolution
	opts.MinOccupiedPoints = m.minPoints

	result, err := c.newRunner().Convert(cmd.Context(), cloud, opts)
	if err != nil {
		return err
	}

	printSuccess("Exported %s (%dx%d cells)", name, result.Stats.Width, result.Stats.Height)
	printKeyValue("band", fmt.Sprintf("[%.3f, %.3f] m", result.Band[0], result.Band[1]))
	printFile(result.Files.ImagePath)
	printFile(result.Files.MetadataPath)
	return nil
}
