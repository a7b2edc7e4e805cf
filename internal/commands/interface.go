package commands

import (
	"context"
	"encoding/json"
	"sort"
)

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	// Handle processes a command and returns the response
	Handle(ctx context.Context, params json.RawMessage) (interface{}, error)

	// GetName returns the command name
	GetName() string

	// GetDescription returns a human-readable description
	GetDescription() string

	// IsReadOnly returns true if the command only reads data
	IsReadOnly() bool

	// MovesArm returns true if the command drives the arm
	MovesArm() bool
}

// CommandRegistry manages available commands
type CommandRegistry struct {
	handlers map[string]CommandHandler
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		handlers: make(map[string]CommandHandler),
	}
}

// Register adds a command handler to the registry
func (r *CommandRegistry) Register(handler CommandHandler) {
	r.handlers[handler.GetName()] = handler
}

// Get returns a command handler by name
func (r *CommandRegistry) Get(name string) (CommandHandler, bool) {
	handler, exists := r.handlers[name]
	return handler, exists
}

// List returns all registered command names, sorted
func (r *CommandRegistry) List() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommandInfo provides information about a command
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ReadOnly    bool   `json:"read_only"`
	MovesArm    bool   `json:"moves_arm"`
}

// Describe returns information about every registered command, sorted by name
func (r *CommandRegistry) Describe() []CommandInfo {
	infos := make([]CommandInfo, 0, len(r.handlers))
	for _, name := range r.List() {
		h := r.handlers[name]
		infos = append(infos, CommandInfo{
			Name:        h.GetName(),
			Description: h.GetDescription(),
			ReadOnly:    h.IsReadOnly(),
			MovesArm:    h.MovesArm(),
		})
	}
	return infos
}

// CommandError represents a command-specific error
type CommandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *CommandError) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrBusy          = "BUSY"
	ErrUnavailable   = "UNAVAILABLE"
	ErrInternal      = "INTERNAL"
	ErrInvalidParams = "INVALID_PARAMS"
	ErrUnauthorized  = "UNAUTHORIZED"
	ErrForbidden     = "FORBIDDEN"
)

func invalidParams(msg string) *CommandError {
	return &CommandError{Code: ErrInvalidParams, Message: msg}
}
