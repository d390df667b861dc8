package mapfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mapforge/pc2pgm/pkg/errors"
	"github.com/mapforge/pc2pgm/pkg/slicer"
)

func exportOpts(dir, name string) Options {
	return Options{
		Dir:            dir,
		Name:           name,
		OccupiedThresh: DefaultOccupiedThresh,
		FreeThresh:     DefaultFreeThresh,
	}
}

func TestExportWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t)
	geom := slicer.Geometry{Resolution: 0.5, Width: 2, Height: 2}

	res, err := Export(grid, geom, exportOpts(dir, "map"))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}

	if res.ImagePath != filepath.Join(dir, "map.pgm") {
		t.Errorf("image path = %s", res.ImagePath)
	}
	if res.MetadataPath != filepath.Join(dir, "map.yaml") {
		t.Errorf("metadata path = %s", res.MetadataPath)
	}

	data, err := os.ReadFile(res.ImagePath)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if !strings.HasPrefix(string(data), "P5\n2 2\n255\n") {
		t.Errorf("image header = %q", data[:11])
	}

	meta, err := ReadMetadata(res.MetadataPath)
	if err != nil {
		t.Fatalf("ReadMetadata error: %v", err)
	}
	if meta.Image != "map.pgm" {
		t.Errorf("sidecar image = %q, want map.pgm", meta.Image)
	}
	if meta.Resolution != 0.5 {
		t.Errorf("sidecar resolution = %g, want 0.5", meta.Resolution)
	}
	if meta.Origin != (Origin{0, 0, 0}) {
		t.Errorf("sidecar origin = %v, want [0, 0, 0]", meta.Origin)
	}
}

func TestExportNoStaleTempFiles(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t)

	if _, err := Export(grid, slicer.Geometry{Resolution: 0.5}, exportOpts(dir, "map")); err != nil {
		t.Fatalf("Export error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("stale temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 2 {
		t.Errorf("directory holds %d entries, want 2", len(entries))
	}
}

func TestExportKeepsExplicitExtension(t *testing.T) {
	dir := t.TempDir()

	res, err := Export(testGrid(t), slicer.Geometry{Resolution: 0.5}, exportOpts(dir, "floor2.pgm"))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if filepath.Base(res.ImagePath) != "floor2.pgm" {
		t.Errorf("image = %s, want floor2.pgm", filepath.Base(res.ImagePath))
	}
	if filepath.Base(res.MetadataPath) != "floor2.yaml" {
		t.Errorf("metadata = %s, want floor2.yaml", filepath.Base(res.MetadataPath))
	}
}

func TestExportCreatesOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "maps", "site-a")

	if _, err := Export(testGrid(t), slicer.Geometry{Resolution: 0.5}, exportOpts(dir, "map")); err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "map.pgm")); err != nil {
		t.Errorf("nested output missing: %v", err)
	}
}

func TestExportRejectsUnsafeNames(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t)

	for _, name := range []string{"", "../evil", "a/b", `a\b`, "x..y"} {
		_, err := Export(grid, slicer.Geometry{Resolution: 0.5}, exportOpts(dir, name))
		if !errors.Is(err, errors.ErrCodeInvalidName) {
			t.Errorf("name %q: error code = %v, want %v", name, errors.GetCode(err), errors.ErrCodeInvalidName)
		}
	}
}

func TestExportRejectsBadThresholds(t *testing.T) {
	opts := exportOpts(t.TempDir(), "map")
	opts.OccupiedThresh = 1.5

	_, err := Export(testGrid(t), slicer.Geometry{Resolution: 0.5}, opts)
	if !errors.Is(err, errors.ErrCodeInvalidThreshold) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidThreshold)
	}
}
