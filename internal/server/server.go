// Package server implements the HTTP preview server behind "pc2pgm serve".
//
// The server loads a point cloud once and exposes the conversion pipeline
// over HTTP. Every request re-invokes the pure rasterizer with the query
// parameters, the web equivalent of the recompute-on-demand slider flow:
// there is no mutable conversion state, only the immutable cloud and a
// cache of rendered previews keyed by the full parameter set.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mapforge/pc2pgm/pkg/cache"
	"github.com/mapforge/pc2pgm/pkg/errors"
	"github.com/mapforge/pc2pgm/pkg/mapfile"
	"github.com/mapforge/pc2pgm/pkg/pipeline"
	"github.com/mapforge/pc2pgm/pkg/pointcloud"
	"github.com/mapforge/pc2pgm/pkg/slicer"
)

// Preview pixel values. Unlike the exported two-valued raster, the preview
// can afford a third shade for never-visited cells.
const (
	previewOccupied = 0
	previewUnknown  = 205
	previewFree     = 254
)

// Server serves occupancy-grid previews for one loaded point cloud.
type Server struct {
	cloud    *pointcloud.Cloud
	defaults pipeline.Options
	cache    cache.Cache
	logger   *log.Logger
}

// New creates a server for cloud. defaults supplies resolution, threshold
// and band values for requests that omit the corresponding query
// parameters. A nil c disables preview caching.
func New(cloud *pointcloud.Cloud, defaults pipeline.Options, c cache.Cache, logger *log.Logger) *Server {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{cloud: cloud, defaults: defaults, cache: c, logger: logger}
}

// Router builds the chi router with all endpoints registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/api/info", s.handleInfo)
	r.Get("/preview.png", s.handlePreview)
	r.Get("/map.pgm", s.handlePGM)
	r.Get("/map.yaml", s.handleYAML)

	return r
}

// sliceParams are the conversion parameters a request may override.
type sliceParams struct {
	zMin, zMax float64
	resolution float64
	minPoints  int
}

// params parses the query parameters, falling back to the server defaults.
func (s *Server) params(r *http.Request) (sliceParams, error) {
	zMin, zMax, _ := s.cloud.ZRange()
	p := sliceParams{
		zMin:       zMin,
		zMax:       zMax,
		resolution: s.defaults.Resolution,
		minPoints:  s.defaults.MinOccupiedPoints,
	}

	q := r.URL.Query()
	var err error
	if v := q.Get("z_min"); v != "" {
		if p.zMin, err = strconv.ParseFloat(v, 64); err != nil {
			return p, errors.New(errors.ErrCodeInvalidInput, "bad z_min %q", v)
		}
	}
	if v := q.Get("z_max"); v != "" {
		if p.zMax, err = strconv.ParseFloat(v, 64); err != nil {
			return p, errors.New(errors.ErrCodeInvalidInput, "bad z_max %q", v)
		}
	}
	if v := q.Get("resolution"); v != "" {
		if p.resolution, err = strconv.ParseFloat(v, 64); err != nil {
			return p, errors.New(errors.ErrCodeInvalidInput, "bad resolution %q", v)
		}
	}
	if v := q.Get("min_points"); v != "" {
		if p.minPoints, err = strconv.Atoi(v); err != nil {
			return p, errors.New(errors.ErrCodeInvalidInput, "bad min_points %q", v)
		}
	}
	return p, nil
}

// rasterize runs the pure conversion for the request parameters.
func (s *Server) rasterize(p sliceParams) (*slicer.Grid, slicer.Geometry, error) {
	return slicer.Rasterize(s.cloud, slicer.Options{
		ZMin:              p.zMin,
		ZMax:              p.zMax,
		Resolution:        p.resolution,
		MinOccupiedPoints: p.minPoints,
		Workers:           s.defaults.Workers,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	zMin, zMax, _ := s.cloud.ZRange()
	bound := s.cloud.Bounds()

	writeJSON(w, http.StatusOK, map[string]any{
		"points": s.cloud.Len(),
		"x_min":  bound.Min.X(),
		"x_max":  bound.Max.X(),
		"y_min":  bound.Min.Y(),
		"y_max":  bound.Max.Y(),
		"z_min":  zMin,
		"z_max":  zMax,
		"defaults": map[string]any{
			"resolution": s.defaults.Resolution,
			"min_points": s.defaults.MinOccupiedPoints,
		},
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r)
	if err != nil {
		writeError(w, err)
		return
	}

	key := cache.Key("preview", p.zMin, p.zMax, p.resolution, p.minPoints)
	if data, hit, _ := s.cache.Get(r.Context(), key); hit {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
		return
	}

	grid, _, err := s.rasterize(p)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, previewImage(grid)); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode preview"))
		return
	}
	_ = s.cache.Set(r.Context(), key, buf.Bytes(), 0)

	s.logger.Debug("rendered preview",
		"z_min", p.zMin, "z_max", p.zMax,
		"grid", fmt.Sprintf("%dx%d", grid.Width, grid.Height))

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePGM(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r)
	if err != nil {
		writeError(w, err)
		return
	}
	grid, _, err := s.rasterize(p)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := mapfile.EncodePGM(&buf, grid, s.defaults.Negate, s.defaults.ASCII); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode pgm"))
		return
	}

	w.Header().Set("Content-Type", "image/x-portable-graymap")
	w.Header().Set("Content-Disposition", `attachment; filename="map.pgm"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleYAML(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r)
	if err != nil {
		writeError(w, err)
		return
	}
	_, geom, err := s.rasterize(p)
	if err != nil {
		writeError(w, err)
		return
	}

	meta := mapfile.Metadata{
		Image:          "map.pgm",
		Resolution:     geom.Resolution,
		Origin:         mapfile.Origin{geom.Origin.X(), geom.Origin.Y(), 0},
		OccupiedThresh: s.defaults.OccupiedThresh,
		FreeThresh:     s.defaults.FreeThresh,
	}
	if s.defaults.Negate {
		meta.Negate = 1
	}

	var buf bytes.Buffer
	if err := mapfile.WriteMetadata(&buf, meta); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode metadata"))
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="map.yaml"`)
	_, _ = w.Write(buf.Bytes())
}

// previewImage renders the grid as a grayscale image, one pixel per cell.
func previewImage(grid *slicer.Grid) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, grid.Width, grid.Height))
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			var v uint8
			switch grid.StateAt(x, y) {
			case slicer.CellOccupied:
				v = previewOccupied
			case slicer.CellFree:
				v = previewFree
			default:
				v = previewUnknown
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps validation errors to 400 and everything else to 500,
// with the machine-readable code in the body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidRange, errors.ErrCodeInvalidResolution,
		errors.ErrCodeInvalidThreshold, errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{
		"code":  string(errors.GetCode(err)),
		"error": errors.UserMessage(err),
	})
}
