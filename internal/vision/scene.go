package vision

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/carzh/robot-color-picker/internal/color"
)

// sceneFile is the on-disk layout written by the point-cloud exporter. JSON
// exports parse too since the YAML decoder accepts them.
type sceneFile struct {
	Frame    string         `yaml:"frame"`
	Clusters []sceneCluster `yaml:"clusters"`
}

type sceneCluster struct {
	Color    []float64 `yaml:"color"`
	Position []float64 `yaml:"position"`
}

// FileSource re-reads a scene file on every call, so an external exporter can
// refresh it between commands.
type FileSource struct {
	path     string
	ordering Ordering
}

// NewFileSource creates a source reading path.
func NewFileSource(path string, ordering Ordering) *FileSource {
	return &FileSource{path: path, ordering: ordering}
}

// Clusters loads, checks and sorts the scene.
func (s *FileSource) Clusters(ctx context.Context) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene %s: %w", s.path, err)
	}

	objects, frame, err := ParseScene(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene %s: %w", s.path, err)
	}

	if frame != "" && s.ordering.Frame != "" && frame != s.ordering.Frame {
		return nil, fmt.Errorf("%w: scene in %q, expected %q", ErrFrameMismatch, frame, s.ordering.Frame)
	}

	SortByAxis(objects, s.ordering.Axis, s.ordering.Descending)
	return objects, nil
}

// ParseScene decodes a scene document and returns its objects in file order
// along with the frame it declares.
func ParseScene(data []byte) ([]Object, string, error) {
	var scene sceneFile
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, "", err
	}

	objects := make([]Object, 0, len(scene.Clusters))
	for i, c := range scene.Clusters {
		if len(c.Color) != 3 {
			return nil, "", fmt.Errorf("cluster %d: color needs 3 channels, got %d", i, len(c.Color))
		}
		if len(c.Position) != 3 {
			return nil, "", fmt.Errorf("cluster %d: position needs 3 coordinates, got %d", i, len(c.Position))
		}
		objects = append(objects, Object{
			Color:    color.RGB{R: c.Color[0], G: c.Color[1], B: c.Color[2]},
			Position: Position{X: c.Position[0], Y: c.Position[1], Z: c.Position[2]},
		})
	}
	return objects, scene.Frame, nil
}
