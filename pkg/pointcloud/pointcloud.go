// Package pointcloud loads 3D point clouds from the common on-disk formats
// and provides the small amount of geometry the rest of the application needs.
//
// Two input formats are supported:
//   - PCD (Point Cloud Data), ASCII and binary encodings
//   - PLY (Polygon File Format), ASCII and binary little-endian encodings
//
// Readers extract only the (x, y, z) coordinate triple per point; any other
// per-point attributes (color, intensity, normals) are skipped. Points with
// non-finite coordinates, which sensors commonly emit for invalid returns,
// are dropped on load.
package pointcloud

import (
	"math"

	"github.com/paulmach/orb"
)

// Point is a single 3D sample with real-valued coordinates.
type Point struct {
	X, Y, Z float64
}

// Cloud is an ordered collection of 3D points. A Cloud is treated as
// immutable once loaded: conversion calls read it but never modify it.
type Cloud struct {
	Points []Point
}

// Len returns the number of points in the cloud.
func (c *Cloud) Len() int {
	return len(c.Points)
}

// IsEmpty reports whether the cloud holds no points.
func (c *Cloud) IsEmpty() bool {
	return len(c.Points) == 0
}

// Bounds returns the XY bounding box of the cloud.
// The zero orb.Bound is returned for an empty cloud.
func (c *Cloud) Bounds() orb.Bound {
	if c.IsEmpty() {
		return orb.Bound{}
	}
	b := orb.Bound{
		Min: orb.Point{c.Points[0].X, c.Points[0].Y},
		Max: orb.Point{c.Points[0].X, c.Points[0].Y},
	}
	for _, p := range c.Points[1:] {
		b = b.Extend(orb.Point{p.X, p.Y})
	}
	return b
}

// ZRange returns the minimum and maximum z coordinate over all points.
// ok is false for an empty cloud.
func (c *Cloud) ZRange() (zMin, zMax float64, ok bool) {
	if c.IsEmpty() {
		return 0, 0, false
	}
	zMin, zMax = c.Points[0].Z, c.Points[0].Z
	for _, p := range c.Points[1:] {
		zMin = math.Min(zMin, p.Z)
		zMax = math.Max(zMax, p.Z)
	}
	return zMin, zMax, true
}

// FilterZ returns a new cloud holding the points whose z coordinate lies in
// the inclusive band [zMin, zMax]. The receiver is not modified.
func (c *Cloud) FilterZ(zMin, zMax float64) *Cloud {
	out := &Cloud{}
	for _, p := range c.Points {
		if p.Z >= zMin && p.Z <= zMax {
			out.Points = append(out.Points, p)
		}
	}
	return out
}

// valid reports whether all coordinates are finite. Sensors emit NaN for
// invalid returns; an Inf coordinate would poison the bounding box.
func valid(p Point) bool {
	return finite(p.X) && finite(p.Y) && finite(p.Z)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
