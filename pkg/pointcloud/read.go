package pointcloud

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mapforge/pc2pgm/pkg/errors"
)

// ReadFile loads a point cloud from path, dispatching on the file extension.
// Supported extensions are .pcd and .ply (case-insensitive).
func ReadFile(path string) (*Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcd":
		return DecodePCD(f)
	case ".ply":
		return DecodePLY(f)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported point cloud format %q (expected .pcd or .ply)", filepath.Ext(path))
	}
}
