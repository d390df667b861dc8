package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateHeightBand validates an inclusive z-range selection.
// The bounds must be finite and ordered zMin <= zMax. Equal bounds are
// allowed: they select a single plane of points.
func ValidateHeightBand(zMin, zMax float64) error {
	if math.IsNaN(zMin) || math.IsNaN(zMax) {
		return New(ErrCodeInvalidRange, "height band bounds must not be NaN")
	}
	if math.IsInf(zMin, 0) || math.IsInf(zMax, 0) {
		return New(ErrCodeInvalidRange, "height band bounds must be finite")
	}
	if zMin > zMax {
		return New(ErrCodeInvalidRange, "z_min (%g) must not exceed z_max (%g)", zMin, zMax)
	}
	return nil
}

// ValidateResolution validates a grid resolution in world units per cell.
// Zero, negative, NaN and infinite values are rejected; they are never
// silently clamped.
func ValidateResolution(resolution float64) error {
	if math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		return New(ErrCodeInvalidResolution, "resolution must be a finite number")
	}
	if resolution <= 0 {
		return New(ErrCodeInvalidResolution, "resolution must be > 0, got %g", resolution)
	}
	return nil
}

// ValidateMinOccupiedPoints validates the occupancy threshold: the minimum
// point count for a cell to classify as occupied.
func ValidateMinOccupiedPoints(n int) error {
	if n < 1 {
		return New(ErrCodeInvalidThreshold, "min occupied points must be >= 1, got %d", n)
	}
	return nil
}

// ValidateProbability validates a normalized threshold such as
// occupied_thresh or free_thresh, which map consumers expect in [0, 1].
func ValidateProbability(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return New(ErrCodeInvalidThreshold, "%s must be in [0, 1], got %g", name, v)
	}
	return nil
}

// ValidateMapName validates an output map name for safety.
// It ensures the name is a simple basename without path components, so the
// exporter can never be steered outside its output directory.
func ValidateMapName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "map name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidName, "map name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "map name contains invalid control characters")
		}
	}

	// Must be a simple filename, not a path
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidName, "map name cannot contain path separators")
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "map name cannot contain path traversal sequences (..)")
	}

	return nil
}
