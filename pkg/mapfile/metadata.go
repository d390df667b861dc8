package mapfile

import (
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mapforge/pc2pgm/pkg/errors"
)

// Origin is the world pose of the grid's lower-left pixel: x, y and yaw.
// Yaw is conventionally zero; the rasterizer never rotates the grid.
type Origin [3]float64

// MarshalYAML renders the origin as a flow sequence ([x, y, yaw]) with an
// explicit decimal point on every component, the spelling map consumers
// conventionally parse.
func (o Origin) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range o {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!float",
			Value: formatFloat(v),
		})
	}
	return node, nil
}

// UnmarshalYAML accepts the flow sequence form written by MarshalYAML.
func (o *Origin) UnmarshalYAML(node *yaml.Node) error {
	var vals []float64
	if err := node.Decode(&vals); err != nil {
		return err
	}
	if len(vals) != 3 {
		return errors.New(errors.ErrCodeInvalidFormat, "origin must have 3 components, got %d", len(vals))
	}
	copy(o[:], vals)
	return nil
}

// Metadata is the YAML sidecar that georeferences the exported raster.
// Field names follow the conventional occupancy-grid map format.
type Metadata struct {
	Image          string  `yaml:"image"`
	Resolution     float64 `yaml:"resolution"`
	Origin         Origin  `yaml:"origin"`
	OccupiedThresh float64 `yaml:"occupied_thresh"`
	FreeThresh     float64 `yaml:"free_thresh"`
	Negate         int     `yaml:"negate"`
}

// WriteMetadata encodes m as YAML to w.
func WriteMetadata(w io.Writer, m Metadata) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// ReadMetadata loads a metadata sidecar from path. Used by the preview
// server and by consumers that want to map pixels back to world space.
func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return Metadata{}, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Metadata{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", path)
	}
	return m, nil
}

// formatFloat renders v compactly but always with a decimal point, so
// whole numbers read as floats (0.0, not 0).
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
