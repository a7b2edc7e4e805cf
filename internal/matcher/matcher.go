// Package matcher scans the sensed objects of one cycle for the first one whose
// hue bucket equals the resolved target color.
package matcher

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/vision"
)

// SamplePolicy decides what happens to color samples outside [0,255].
type SamplePolicy string

const (
	// PolicyClamp clamps out-of-range channels before bucketing.
	PolicyClamp SamplePolicy = "clamp"
	// PolicyReject fails the scan with a *SampleError.
	PolicyReject SamplePolicy = "reject"
)

// ParsePolicy parses clamp or reject.
func ParsePolicy(s string) (SamplePolicy, error) {
	switch p := SamplePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyClamp, PolicyReject:
		return p, nil
	}
	return "", fmt.Errorf("invalid sample policy %q, must be one of: clamp, reject", s)
}

// SampleError wraps a color.ValidationError with the index of the object
// that carried it.
type SampleError struct {
	Index int
	Err   *color.ValidationError
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("object %d: %v", e.Index, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one scan. Position is nil when nothing matched.
type Result struct {
	Found    bool             `json:"found"`
	Color    color.Color      `json:"color"`
	Position *vision.Position `json:"position,omitempty"`
	// Index is the scan position of the match, -1 when not found.
	Index int `json:"index"`
}

// Matcher applies the hue rule to each object in scan order.
type Matcher struct {
	policy SamplePolicy
	logger *zap.Logger
}

// New creates a matcher. An empty policy selects PolicyClamp.
func New(policy SamplePolicy, logger *zap.Logger) (*Matcher, error) {
	if policy == "" {
		policy = PolicyClamp
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{policy: policy, logger: logger}, nil
}

// Policy returns the configured sample policy.
func (m *Matcher) Policy() SamplePolicy {
	return m.policy
}

// Classify buckets one sample under the matcher's policy.
func (m *Matcher) Classify(sample color.RGB) (color.Color, error) {
	if err := sample.Validate(); err != nil {
		if m.policy == PolicyReject {
			return color.Unknown, err
		}
		sample = sample.Clamp()
	}
	return color.FromRGB(sample), nil
}

// Match returns the first object, in the given order, whose bucketed color
// equals target. Not finding one is a normal result, not an error.
func (m *Matcher) Match(target color.Color, objects []vision.Object) (Result, error) {
	for i, obj := range objects {
		got, err := m.Classify(obj.Color)
		if err != nil {
			verr, _ := err.(*color.ValidationError)
			return Result{Color: target, Index: -1}, &SampleError{Index: i, Err: verr}
		}

		m.logger.Debug("classified object",
			zap.Int("index", i),
			zap.Stringer("color", got),
			zap.Float64("x", obj.Position.X),
			zap.Float64("y", obj.Position.Y),
			zap.Float64("z", obj.Position.Z),
		)

		if got == target {
			pos := obj.Position
			return Result{Found: true, Color: target, Position: &pos, Index: i}, nil
		}
	}
	return Result{Found: false, Color: target, Index: -1}, nil
}
