package pointcloud

import (
	"math"
	"sort"
)

// voxelKey identifies one cube of the downsampling lattice.
type voxelKey struct {
	i, j, k int
}

// VoxelDownsample reduces the cloud to one point per voxel of edge length
// size, each the centroid of the points that fell into that voxel. It is
// used only to thin clouds for display (TUI and HTTP previews); the
// rasterizer always consumes the full-resolution cloud.
//
// A non-positive size returns the cloud unchanged. The output ordering is
// deterministic (sorted by voxel index) so previews are stable across runs.
func VoxelDownsample(c *Cloud, size float64) *Cloud {
	if size <= 0 || c.IsEmpty() {
		return c
	}

	type accum struct {
		x, y, z float64
		n       int
	}
	voxels := make(map[voxelKey]*accum)

	for _, p := range c.Points {
		key := voxelKey{
			i: int(math.Floor(p.X / size)),
			j: int(math.Floor(p.Y / size)),
			k: int(math.Floor(p.Z / size)),
		}
		a := voxels[key]
		if a == nil {
			a = &accum{}
			voxels[key] = a
		}
		a.x += p.X
		a.y += p.Y
		a.z += p.Z
		a.n++
	}

	keys := make([]voxelKey, 0, len(voxels))
	for key := range voxels {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		if ka.i != kb.i {
			return ka.i < kb.i
		}
		if ka.j != kb.j {
			return ka.j < kb.j
		}
		return ka.k < kb.k
	})

	out := &Cloud{Points: make([]Point, 0, len(keys))}
	for _, key := range keys {
		a := voxels[key]
		n := float64(a.n)
		out.Points = append(out.Points, Point{X: a.x / n, Y: a.y / n, Z: a.z / n})
	}
	return out
}
