// Package arm defines the motion collaborator the station drives.
package arm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/vision"
)

// Arm moves the manipulator. Calls block until the motion finishes.
type Arm interface {
	Home(ctx context.Context) error
	PointAt(ctx context.Context, target vision.Position) error
	// Search shakes the head to show nothing matched.
	Search(ctx context.Context) error
	Calibrate(ctx context.Context) error
	Sleep(ctx context.Context) error
}

// Action is one recorded motion.
type Action struct {
	Name   string           `json:"name"`
	Target *vision.Position `json:"target,omitempty"`
}

func (a Action) String() string {
	if a.Target == nil {
		return a.Name
	}
	return fmt.Sprintf("%s(%.3f, %.3f, %.3f)", a.Name, a.Target.X, a.Target.Y, a.Target.Z)
}

// DryRun logs motions instead of performing them.
type DryRun struct {
	mu      sync.Mutex
	actions []Action
	logger  *zap.Logger
}

// NewDryRun creates a DryRun arm.
func NewDryRun(logger *zap.Logger) *DryRun {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DryRun{logger: logger}
}

func (d *DryRun) Home(ctx context.Context) error { return d.record(ctx, "home", nil) }

func (d *DryRun) PointAt(ctx context.Context, target vision.Position) error {
	return d.record(ctx, "point_at", &target)
}

func (d *DryRun) Search(ctx context.Context) error    { return d.record(ctx, "search", nil) }
func (d *DryRun) Calibrate(ctx context.Context) error { return d.record(ctx, "calibrate", nil) }
func (d *DryRun) Sleep(ctx context.Context) error     { return d.record(ctx, "sleep", nil) }

// Actions returns a copy of the motions recorded so far.
func (d *DryRun) Actions() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Action, len(d.actions))
	copy(out, d.actions)
	return out
}

func (d *DryRun) record(ctx context.Context, name string, target *vision.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.actions = append(d.actions, Action{Name: name, Target: target})
	d.mu.Unlock()

	if target != nil {
		d.logger.Info("arm motion", zap.String("action", name),
			zap.Float64("x", target.X), zap.Float64("y", target.Y), zap.Float64("z", target.Z))
	} else {
		d.logger.Info("arm motion", zap.String("action", name))
	}
	return nil
}
