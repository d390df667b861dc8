package server

import (
	"encoding/json"
	"io"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mapforge/pc2pgm/pkg/cache"
	"github.com/mapforge/pc2pgm/pkg/pipeline"
	"github.com/mapforge/pc2pgm/pkg/pointcloud"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	cloud := &pointcloud.Cloud{Points: []pointcloud.Point{
		{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 0.5},
		{X: 2, Y: 2, Z: 2.0},
	}}

	opts := pipeline.NewOptions("test.pcd")
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(New(cloud, opts, cache.NewMemoryCache(8), nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleInfo(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/info")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var info struct {
		Points int     `json:"points"`
		ZMin   float64 `json:"z_min"`
		ZMax   float64 `json:"z_max"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Points != 4 {
		t.Errorf("points = %d, want 4", info.Points)
	}
	if info.ZMin != 0 || info.ZMax != 2 {
		t.Errorf("z range = [%g, %g], want [0, 2]", info.ZMin, info.ZMax)
	}
}

func TestHandlePreviewPNG(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/preview.png?resolution=0.5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}

	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("preview is not a valid PNG: %v", err)
	}
	// Full z-range, resolution 0.5: extent 2x2 world units = 4x4 cells.
	if got := img.Bounds().Dx(); got != 4 {
		t.Errorf("preview width = %d, want 4", got)
	}
}

func TestHandlePreviewBandFilter(t *testing.T) {
	srv := testServer(t)

	// Band [0, 0.5] excludes the (2, 2) point, shrinking the extent.
	resp, err := http.Get(srv.URL + "/preview.png?resolution=0.5&z_min=0&z_max=0.5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Dx(); got != 2 {
		t.Errorf("preview width = %d, want 2 (outlier excluded)", got)
	}
}

func TestHandlePGMDownload(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/map.pgm?resolution=0.5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(body), "P5\n4 4\n255\n") {
		t.Errorf("pgm header = %q", body[:12])
	}
}

func TestHandleYAMLDownload(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/map.yaml?resolution=0.5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "resolution: 0.5") {
		t.Errorf("yaml body = %q", body)
	}
	if !strings.Contains(string(body), "image: map.pgm") {
		t.Errorf("yaml body missing image field: %q", body)
	}
}

func TestHandleBadParams(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		query    string
		wantCode string
	}{
		{"?z_min=abc", "INVALID_INPUT"},
		{"?resolution=0", "INVALID_RESOLUTION"},
		{"?resolution=-1", "INVALID_RESOLUTION"},
		{"?z_min=2&z_max=1", "INVALID_RANGE"},
		{"?min_points=0", "INVALID_THRESHOLD"},
	}

	for _, tt := range tests {
		resp, err := http.Get(srv.URL + "/preview.png" + tt.query)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.query, resp.StatusCode)
		}
		var body struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if body.Code != tt.wantCode {
			t.Errorf("%s: code = %q, want %q", tt.query, body.Code, tt.wantCode)
		}
	}
}

func TestHandleIndexServesControls(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
}
