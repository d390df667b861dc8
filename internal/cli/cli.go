package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mapforge/pc2pgm/pkg/buildinfo"
	"github.com/mapforge/pc2pgm/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pc2pgm"

	// configFile is the per-project configuration file name.
	configFile = "pc2pgm.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger and the
// configuration discovered on disk (built-in defaults if none exists).
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{Logger: newLogger(w, level)}
	cfg, path, err := LoadConfig()
	if err != nil {
		c.Logger.Warnf("Ignoring config %s: %v", path, err)
		cfg = DefaultConfig()
	}
	c.Config = cfg
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "pc2pgm slices point clouds into occupancy grid maps",
		Long:         `pc2pgm is a CLI tool for converting 3D point clouds (.pcd, .ply) into 2D occupancy grid maps in the PGM + YAML format used by robot navigation stacks.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.sliceCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.Logger)
}

// newPipelineOptions seeds pipeline options from the loaded configuration.
// Flag values override these afterwards.
func (c *CLI) newPipelineOptions(input string) pipeline.Options {
	opts := pipeline.NewOptions(input)
	opts.Resolution = c.Config.Resolution
	opts.MinOccupiedPoints = c.Config.MinOccupiedPoints
	opts.OccupiedThresh = c.Config.OccupiedThresh
	opts.FreeThresh = c.Config.FreeThresh
	opts.Workers = c.Config.Workers
	opts.Logger = c.Logger
	return opts
}

// =============================================================================
// Paths
// =============================================================================

// configDir returns the config directory using XDG standard (~/.config/pc2pgm/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
