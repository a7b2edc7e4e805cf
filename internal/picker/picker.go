// Package picker runs one selection cycle: resolve the command to a target
// color, take the current sensed objects, and scan them for the target.
package picker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/matcher"
	"github.com/carzh/robot-color-picker/internal/resolver"
	"github.com/carzh/robot-color-picker/internal/vision"
)

// Decision is the outcome of one cycle.
type Decision struct {
	Command    string              `json:"command"`
	Resolution resolver.Resolution `json:"resolution"`
	Match      matcher.Result      `json:"match"`
	// Visible is the number of objects sensed in this cycle.
	Visible int `json:"visible"`
}

// Picker wires a resolver, a matcher and an object source together.
type Picker struct {
	resolver *resolver.Resolver
	matcher  *matcher.Matcher
	source   vision.Source
	logger   *zap.Logger
}

// New creates a picker.
func New(r *resolver.Resolver, m *matcher.Matcher, source vision.Source, logger *zap.Logger) (*Picker, error) {
	if r == nil || m == nil || source == nil {
		return nil, errors.New("picker needs a resolver, a matcher and a source")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Picker{resolver: r, matcher: m, source: source, logger: logger}, nil
}

// Resolver returns the picker's resolver.
func (p *Picker) Resolver() *resolver.Resolver { return p.resolver }

// Matcher returns the picker's matcher.
func (p *Picker) Matcher() *matcher.Matcher { return p.matcher }

// Source returns the picker's object source.
func (p *Picker) Source() vision.Source { return p.source }

// Decide resolves command, senses once and matches once. A resolve failure
// ends the cycle before sensing.
func (p *Picker) Decide(ctx context.Context, command string) (Decision, error) {
	d := Decision{Command: command}

	res, err := p.resolver.Resolve(ctx, command)
	if err != nil {
		return d, err
	}
	d.Resolution = res

	objects, err := p.source.Clusters(ctx)
	if err != nil {
		return d, fmt.Errorf("sense clusters: %w", err)
	}
	d.Visible = len(objects)

	result, err := p.matcher.Match(res.Color, objects)
	if err != nil {
		return d, err
	}
	d.Match = result

	fields := []zap.Field{
		zap.String("command", command),
		zap.Stringer("target", res.Color),
		zap.String("method", string(res.Source)),
		zap.Int("visible", d.Visible),
		zap.Bool("found", result.Found),
	}
	if result.Found {
		fields = append(fields,
			zap.Float64("x", result.Position.X),
			zap.Float64("y", result.Position.Y),
			zap.Float64("z", result.Position.Z),
		)
	}
	p.logger.Info("cycle decided", fields...)
	return d, nil
}
