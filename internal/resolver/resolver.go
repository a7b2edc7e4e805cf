// Package resolver turns a free-form command into one canonical color.
//
// Literal color names are matched first, in the fixed order of
// color.Priority. Commands that name no color fall back to a multiple-choice
// classifier over a small configured candidate subset; the classifier is
// injected so tests can substitute a deterministic stub.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/color"
)

var (
	// ErrEmptyCommand is returned for empty or whitespace-only commands.
	ErrEmptyCommand = errors.New("empty command")
	// ErrInvalidCandidates is returned for a candidate subset that is not
	// 2 to 4 distinct canonical colors.
	ErrInvalidCandidates = errors.New("invalid candidate set")
)

const (
	MinCandidates = 2
	MaxCandidates = 4
)

// DefaultCandidates is the fallback subset used when none is configured.
var DefaultCandidates = []color.Color{color.Red, color.Blue}

// Classifier scores a command against each candidate label independently and
// returns one score per candidate, in candidate order.
type Classifier interface {
	Score(ctx context.Context, command string, candidates []color.Color) ([]float64, error)
}

// Source says which path produced a resolution.
type Source string

const (
	SourceKeyword    Source = "keyword"
	SourceClassifier Source = "classifier"
)

// Resolution is the outcome of resolving one command.
type Resolution struct {
	Color  color.Color `json:"color"`
	Source Source      `json:"source"`
	// Scores is set only for classifier resolutions, aligned with the
	// resolver's candidates.
	Scores []float64 `json:"scores,omitempty"`
}

// Resolver holds the classifier handle and the candidate subset. It keeps no
// state between calls.
type Resolver struct {
	classifier Classifier
	candidates []color.Color
	logger     *zap.Logger
}

// New creates a resolver. A nil candidates slice selects DefaultCandidates.
func New(classifier Classifier, candidates []color.Color, logger *zap.Logger) (*Resolver, error) {
	if classifier == nil {
		return nil, errors.New("resolver needs a classifier")
	}
	if candidates == nil {
		candidates = DefaultCandidates
	}
	if err := ValidateCandidates(candidates); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cp := make([]color.Color, len(candidates))
	copy(cp, candidates)
	return &Resolver{
		classifier: classifier,
		candidates: cp,
		logger:     logger,
	}, nil
}

// ValidateCandidates checks the subset size and that every entry is a
// distinct, known color.
func ValidateCandidates(candidates []color.Color) error {
	if len(candidates) < MinCandidates || len(candidates) > MaxCandidates {
		return fmt.Errorf("%w: need %d to %d colors, got %d", ErrInvalidCandidates, MinCandidates, MaxCandidates, len(candidates))
	}
	seen := make(map[color.Color]bool, len(candidates))
	for _, c := range candidates {
		if c == color.Unknown || !c.Valid() {
			return fmt.Errorf("%w: %s is not a selectable color", ErrInvalidCandidates, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate %s", ErrInvalidCandidates, c)
		}
		seen[c] = true
	}
	return nil
}

// Candidates returns a copy of the configured fallback subset.
func (r *Resolver) Candidates() []color.Color {
	cp := make([]color.Color, len(r.candidates))
	copy(cp, r.candidates)
	return cp
}

// Resolve maps command to a color. The keyword path never fails; the
// classifier path fails only if the classifier does.
func (r *Resolver) Resolve(ctx context.Context, command string) (Resolution, error) {
	if strings.TrimSpace(command) == "" {
		return Resolution{}, ErrEmptyCommand
	}

	if c, ok := MatchKeyword(command); ok {
		r.logger.Debug("resolved by keyword", zap.String("command", command), zap.Stringer("color", c))
		return Resolution{Color: c, Source: SourceKeyword}, nil
	}

	scores, err := r.classifier.Score(ctx, command, r.Candidates())
	if err != nil {
		return Resolution{}, fmt.Errorf("classifier failed: %w", err)
	}
	if len(scores) != len(r.candidates) {
		return Resolution{}, fmt.Errorf("classifier returned %d scores for %d candidates", len(scores), len(r.candidates))
	}

	best := argmax(scores)
	res := Resolution{
		Color:  r.candidates[best],
		Source: SourceClassifier,
		Scores: scores,
	}
	r.logger.Debug("resolved by classifier",
		zap.String("command", command),
		zap.Stringer("color", res.Color),
		zap.Float64s("scores", scores),
	)
	return res, nil
}

// MatchKeyword returns the first color of color.Priority whose name occurs
// anywhere in command, case-insensitively.
func MatchKeyword(command string) (color.Color, bool) {
	lower := strings.ToLower(command)
	for _, c := range color.Priority {
		if strings.Contains(lower, c.String()) {
			return c, true
		}
	}
	return color.Unknown, false
}

// argmax returns the index of the highest score; the first index wins ties.
func argmax(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}
