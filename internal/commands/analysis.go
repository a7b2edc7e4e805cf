package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/matcher"
	"github.com/carzh/robot-color-picker/internal/picker"
	"github.com/carzh/robot-color-picker/internal/resolver"
)

// RegisterAnalysisCommands registers the read-only resolution and matching
// commands. They run outside the station queue and never move the arm.
func RegisterAnalysisCommands(registry *CommandRegistry, p *picker.Picker) {
	registry.Register(NewResolveColorCommandHandler(p.Resolver()))
	registry.Register(NewClassifyRGBCommandHandler(p.Matcher()))
	registry.Register(NewMatchClusterCommandHandler(p))
	registry.Register(NewCandidatesCommandHandler(p.Resolver()))
}

// ResolveColorCommandHandler handles resolve_color
type ResolveColorCommandHandler struct {
	resolver *resolver.Resolver
}

// NewResolveColorCommandHandler creates a new resolve_color command handler
func NewResolveColorCommandHandler(r *resolver.Resolver) *ResolveColorCommandHandler {
	return &ResolveColorCommandHandler{resolver: r}
}

// Handle resolves one command string to a canonical color
func (h *ResolveColorCommandHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	args, err := StringParams(params)
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, invalidParams("resolve_color expects exactly one command string")
	}

	res, err := h.resolver.Resolve(ctx, args[0])
	if err != nil {
		if errors.Is(err, resolver.ErrEmptyCommand) {
			return nil, invalidParams(err.Error())
		}
		return nil, &CommandError{Code: ErrInternal, Message: err.Error()}
	}
	return res, nil
}

func (h *ResolveColorCommandHandler) GetName() string {
	return "resolve_color"
}

func (h *ResolveColorCommandHandler) GetDescription() string {
	return "Resolve a free-form command to a canonical color"
}

func (h *ResolveColorCommandHandler) IsReadOnly() bool {
	return true
}

func (h *ResolveColorCommandHandler) MovesArm() bool {
	return false
}

// ClassifyRGBResult is the bucket of one color sample
type ClassifyRGBResult struct {
	Color color.Color `json:"color"`
	Hue   float64     `json:"hue"`
}

// ClassifyRGBCommandHandler handles classify_rgb
type ClassifyRGBCommandHandler struct {
	matcher *matcher.Matcher
}

// NewClassifyRGBCommandHandler creates a new classify_rgb command handler
func NewClassifyRGBCommandHandler(m *matcher.Matcher) *ClassifyRGBCommandHandler {
	return &ClassifyRGBCommandHandler{matcher: m}
}

// Handle buckets one RGB sample under the matcher's sample policy
func (h *ClassifyRGBCommandHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	sample, err := ParseRGB(params)
	if err != nil {
		return nil, err
	}
	c, err := h.matcher.Classify(sample)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	return ClassifyRGBResult{Color: c, Hue: color.Hue(sample.Clamp())}, nil
}

func (h *ClassifyRGBCommandHandler) GetName() string {
	return "classify_rgb"
}

func (h *ClassifyRGBCommandHandler) GetDescription() string {
	return "Bucket an RGB sample into a canonical color"
}

func (h *ClassifyRGBCommandHandler) IsReadOnly() bool {
	return true
}

func (h *ClassifyRGBCommandHandler) MovesArm() bool {
	return false
}

// MatchClusterResult extends the match with the number of objects scanned
type MatchClusterResult struct {
	matcher.Result
	Visible int `json:"visible"`
}

// MatchClusterCommandHandler handles match_cluster
type MatchClusterCommandHandler struct {
	picker *picker.Picker
}

// NewMatchClusterCommandHandler creates a new match_cluster command handler
func NewMatchClusterCommandHandler(p *picker.Picker) *MatchClusterCommandHandler {
	return &MatchClusterCommandHandler{picker: p}
}

// Handle scans the given objects, or the current scene when none are given,
// for the first one of the target color
func (h *MatchClusterCommandHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	target, objects, err := ParseMatchParams(params)
	if err != nil {
		return nil, err
	}

	if objects == nil {
		objects, err = h.picker.Source().Clusters(ctx)
		if err != nil {
			return nil, &CommandError{Code: ErrUnavailable, Message: fmt.Sprintf("sense clusters: %v", err)}
		}
	}

	result, err := h.picker.Matcher().Match(target, objects)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	return MatchClusterResult{Result: result, Visible: len(objects)}, nil
}

func (h *MatchClusterCommandHandler) GetName() string {
	return "match_cluster"
}

func (h *MatchClusterCommandHandler) GetDescription() string {
	return "Find the first sensed object whose hue bucket equals the target"
}

func (h *MatchClusterCommandHandler) IsReadOnly() bool {
	return true
}

func (h *MatchClusterCommandHandler) MovesArm() bool {
	return false
}

// CandidatesCommandHandler handles candidates
type CandidatesCommandHandler struct {
	resolver *resolver.Resolver
}

// NewCandidatesCommandHandler creates a new candidates command handler
func NewCandidatesCommandHandler(r *resolver.Resolver) *CandidatesCommandHandler {
	return &CandidatesCommandHandler{resolver: r}
}

// Handle lists the classifier candidate subset
func (h *CandidatesCommandHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	args, err := StringParams(params)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		return nil, invalidParams("This command does not accept parameters")
	}
	return h.resolver.Candidates(), nil
}

func (h *CandidatesCommandHandler) GetName() string {
	return "candidates"
}

func (h *CandidatesCommandHandler) GetDescription() string {
	return "List the colors offered to the fallback classifier"
}

func (h *CandidatesCommandHandler) IsReadOnly() bool {
	return true
}

func (h *CandidatesCommandHandler) MovesArm() bool {
	return false
}
