// Package vision describes the objects reported by the camera collaborator and
// the sources that supply them, one fresh list per matching cycle.
package vision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/carzh/robot-color-picker/internal/color"
)

// ErrFrameMismatch is returned when a scene is reported in a different
// reference frame than the one the picker was configured for.
var ErrFrameMismatch = errors.New("reference frame mismatch")

// Position is a point in the configured reference frame, in meters.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Object is one detected cluster: its mean color sample and its centroid.
type Object struct {
	Color    color.RGB `json:"color" yaml:"color"`
	Position Position  `json:"position" yaml:"position"`
}

// Axis names a coordinate of Position.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// ParseAxis parses x, y or z.
func ParseAxis(s string) (Axis, error) {
	switch a := Axis(strings.ToLower(strings.TrimSpace(s))); a {
	case AxisX, AxisY, AxisZ:
		return a, nil
	}
	return "", fmt.Errorf("invalid sort axis %q, must be one of: x, y, z", s)
}

// Of returns the coordinate of p along the axis.
func (a Axis) Of(p Position) float64 {
	switch a {
	case AxisX:
		return p.X
	case AxisZ:
		return p.Z
	default:
		return p.Y
	}
}

// Source supplies the objects currently visible, already sorted in scan order.
type Source interface {
	Clusters(ctx context.Context) ([]Object, error)
}

// Ordering is the scan order a source applies before handing objects out.
type Ordering struct {
	Frame      string
	Axis       Axis
	Descending bool
}

// SortByAxis sorts objects in place along the axis. Equal coordinates keep
// their reported order.
func SortByAxis(objects []Object, axis Axis, descending bool) {
	sort.SliceStable(objects, func(i, j int) bool {
		a, b := axis.Of(objects[i].Position), axis.Of(objects[j].Position)
		if descending {
			return a > b
		}
		return a < b
	})
}

// StaticSource hands out a fixed scene. It is used by tests and by the probe
// binary when no scene file is configured.
type StaticSource struct {
	objects  []Object
	ordering Ordering
}

// NewStaticSource creates a source over a copy of objects.
func NewStaticSource(objects []Object, ordering Ordering) *StaticSource {
	cp := make([]Object, len(objects))
	copy(cp, objects)
	return &StaticSource{objects: cp, ordering: ordering}
}

// Clusters returns a freshly sorted copy of the scene.
func (s *StaticSource) Clusters(ctx context.Context) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Object, len(s.objects))
	copy(out, s.objects)
	SortByAxis(out, s.ordering.Axis, s.ordering.Descending)
	return out, nil
}
