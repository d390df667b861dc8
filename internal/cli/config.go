package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mapforge/pc2pgm/pkg/errors"
	"github.com/mapforge/pc2pgm/pkg/mapfile"
	"github.com/mapforge/pc2pgm/pkg/pipeline"
)

// Config holds persistent defaults for the conversion commands.
//
// It is read from pc2pgm.toml in the working directory, falling back to the
// XDG config directory. Command-line flags always win over config values,
// and config values win over the built-in defaults.
type Config struct {
	// Resolution is the default cell size in meters per pixel.
	Resolution float64 `toml:"resolution"`

	// MinOccupiedPoints is the default occupancy threshold.
	MinOccupiedPoints int `toml:"min_occupied_points"`

	// OccupiedThresh and FreeThresh are the sidecar probability thresholds.
	OccupiedThresh float64 `toml:"occupied_thresh"`
	FreeThresh     float64 `toml:"free_thresh"`

	// VoxelSize is the downsampling voxel edge for interactive previews.
	VoxelSize float64 `toml:"voxel_size"`

	// Workers is the parallelism of the binning step; 0 picks NumCPU.
	Workers int `toml:"workers"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Resolution:        pipeline.DefaultResolution,
		MinOccupiedPoints: pipeline.DefaultMinOccupiedPoints,
		OccupiedThresh:    mapfile.DefaultOccupiedThresh,
		FreeThresh:        mapfile.DefaultFreeThresh,
		VoxelSize:         pipeline.DefaultVoxelSize,
	}
}

// LoadConfig finds and parses the configuration file. It returns the
// built-in defaults and an empty path when no file exists. The returned
// path names the file that was read (or failed to parse).
func LoadConfig() (Config, string, error) {
	path, ok := findConfig()
	if !ok {
		return DefaultConfig(), "", nil
	}

	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return DefaultConfig(), path, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return DefaultConfig(), path, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", undecoded[0].String())
	}
	if err := validateConfig(cfg); err != nil {
		return DefaultConfig(), path, err
	}
	return cfg, path, nil
}

// findConfig returns the first existing config file, preferring the
// working directory over the XDG config directory.
func findConfig() (string, bool) {
	if _, err := os.Stat(configFile); err == nil {
		return configFile, true
	}
	dir, err := configDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	return "", false
}

// validateConfig rejects values the conversion would reject later, so the
// failure names the config file instead of a flag.
func validateConfig(cfg Config) error {
	if err := errors.ValidateResolution(cfg.Resolution); err != nil {
		return err
	}
	if err := errors.ValidateMinOccupiedPoints(cfg.MinOccupiedPoints); err != nil {
		return err
	}
	if err := errors.ValidateProbability("occupied_thresh", cfg.OccupiedThresh); err != nil {
		return err
	}
	if err := errors.ValidateProbability("free_thresh", cfg.FreeThresh); err != nil {
		return err
	}
	if cfg.VoxelSize <= 0 {
		return errors.New(errors.ErrCodeInvalidResolution, "voxel_size must be positive, got %g", cfg.VoxelSize)
	}
	if cfg.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative, got %d", cfg.Workers)
	}
	return nil
}
