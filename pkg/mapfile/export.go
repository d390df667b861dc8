package mapfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mapforge/pc2pgm/pkg/errors"
	"github.com/mapforge/pc2pgm/pkg/slicer"
)

// Options configures one export call.
type Options struct {
	// Dir is the output directory, created if missing.
	Dir string
	// Name is the map name; a .pgm extension is added if absent. The
	// sidecar takes the same base name with a .yaml extension. Must be a
	// plain filename, not a path.
	Name string

	// OccupiedThresh and FreeThresh are the normalized thresholds written
	// to the sidecar for downstream consumers, both in [0, 1].
	OccupiedThresh float64
	FreeThresh     float64

	// Negate flips the pixel values and is recorded in the sidecar.
	Negate bool

	// ASCII selects the plain-text P2 flavor instead of binary P5.
	ASCII bool
}

// Validate checks the export options eagerly.
func (o Options) Validate() error {
	if err := errors.ValidateMapName(o.Name); err != nil {
		return err
	}
	if err := errors.ValidateProbability("occupied_thresh", o.OccupiedThresh); err != nil {
		return err
	}
	return errors.ValidateProbability("free_thresh", o.FreeThresh)
}

// Result names the files an export produced.
type Result struct {
	ImagePath    string
	MetadataPath string
}

// Export writes grid as a PGM image plus YAML sidecar into opts.Dir.
//
// Both files are staged under temporary names in the target directory and
// renamed into place, image first, so a reader never observes a metadata
// file referencing a missing image. I/O failures are propagated to the
// caller; a failed export may leave a stale temp file behind but never a
// dangling metadata reference.
func Export(grid *slicer.Grid, geom slicer.Geometry, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	imageName := opts.Name
	if !strings.EqualFold(filepath.Ext(imageName), ".pgm") {
		imageName += ".pgm"
	}
	metaName := strings.TrimSuffix(imageName, filepath.Ext(imageName)) + ".yaml"

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeIO, err, "create output directory %s", opts.Dir)
	}

	res := Result{
		ImagePath:    filepath.Join(opts.Dir, imageName),
		MetadataPath: filepath.Join(opts.Dir, metaName),
	}

	if err := writeStaged(res.ImagePath, func(f *os.File) error {
		return EncodePGM(f, grid, opts.Negate, opts.ASCII)
	}); err != nil {
		return Result{}, err
	}

	meta := Metadata{
		Image:          imageName,
		Resolution:     geom.Resolution,
		Origin:         Origin{geom.Origin.X(), geom.Origin.Y(), 0},
		OccupiedThresh: opts.OccupiedThresh,
		FreeThresh:     opts.FreeThresh,
	}
	if opts.Negate {
		meta.Negate = 1
	}
	if err := writeStaged(res.MetadataPath, func(f *os.File) error {
		return WriteMetadata(f, meta)
	}); err != nil {
		return Result{}, err
	}

	return res, nil
}

// writeStaged writes to a uniquely named temp file next to path, then
// renames it into place. The rename is atomic on POSIX filesystems since
// both names live in the same directory.
func writeStaged(path string, write func(*os.File) error) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())

	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", tmp)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeIO, err, "rename %s", path)
	}
	return nil
}
