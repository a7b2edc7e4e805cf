package picker

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/classifier"
	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/matcher"
	"github.com/carzh/robot-color-picker/internal/resolver"
	"github.com/carzh/robot-color-picker/internal/vision"
)

// FromConfig wires the classifier, resolver, matcher and scene file source
// described by cfg.
func FromConfig(cfg *config.Config, logger *zap.Logger) (*Picker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cls, err := classifier.New(cfg.Classifier, logger.Named("classifier"))
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}
	r, err := resolver.New(cls, cfg.Resolver.Candidates, logger.Named("resolver"))
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	policy, err := matcher.ParsePolicy(cfg.Matcher.SamplePolicy)
	if err != nil {
		return nil, err
	}
	m, err := matcher.New(policy, logger.Named("matcher"))
	if err != nil {
		return nil, fmt.Errorf("failed to create matcher: %w", err)
	}

	axis, err := vision.ParseAxis(cfg.Vision.SortAxis)
	if err != nil {
		return nil, err
	}
	source := vision.NewFileSource(cfg.Vision.ScenePath, vision.Ordering{
		Frame:      cfg.Vision.RefFrame,
		Axis:       axis,
		Descending: cfg.Vision.Reverse,
	})

	return New(r, m, source, logger.Named("picker"))
}
