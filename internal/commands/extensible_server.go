package commands

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/auth"
	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/station"
)

// JSON-RPC 2.0 error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeBusy           = -32001
	CodeUnavailable    = -32002
	CodeUnauthorized   = -32003
	CodeForbidden      = -32004
)

// ExtensibleJSONRPCServer provides an extensible JSON-RPC server that can handle multiple command types
type ExtensibleJSONRPCServer struct {
	registry *CommandRegistry
	config   *config.Config
	logger   *zap.Logger
}

// Request represents a JSON-RPC 2.0 request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response represents a JSON-RPC 2.0 response
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// RPCError is the error member of a response
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewExtensibleJSONRPCServer creates a new extensible JSON-RPC server
func NewExtensibleJSONRPCServer(cfg *config.Config, st *station.Station, logger *zap.Logger) *ExtensibleJSONRPCServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := NewCommandRegistry()

	// Commands that go through the station queue
	RegisterCoreCommands(registry, st)

	// Read-only resolution and matching
	RegisterAnalysisCommands(registry, st.Picker())

	s := &ExtensibleJSONRPCServer{
		registry: registry,
		config:   cfg,
		logger:   logger,
	}
	registry.Register(NewCustomCommandHandler("help", "List available methods", true, false,
		func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			return s.GetAvailableCommands(), nil
		}))
	return s
}

// HandleRequest handles HTTP POST requests to the JSON-RPC endpoint
func (s *ExtensibleJSONRPCServer) HandleRequest(w http.ResponseWriter, r *http.Request) {
	// Set response headers
	w.Header().Set("Content-Type", "application/json")
	if s.config.Network.HTTP.ServerHeader != "" {
		w.Header().Set("Server", s.config.Network.HTTP.ServerHeader)
	}

	// Only accept POST requests
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, CodeInvalidRequest, "Invalid Request", nil)
		return
	}

	// Parse JSON-RPC request
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, CodeParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC version
	if req.JSONRPC != "2.0" || req.Method == "" {
		s.writeErrorResponse(w, CodeInvalidRequest, "Invalid Request", req.ID)
		return
	}

	response := s.ProcessRequest(r.Context(), &req)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ProcessRequest dispatches a decoded request to its handler
func (s *ExtensibleJSONRPCServer) ProcessRequest(ctx context.Context, req *Request) *Response {
	handler, exists := s.registry.Get(req.Method)
	if !exists {
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found", nil)
	}

	if s.config.Auth.Enabled {
		claims := auth.ClaimsFromContext(ctx)
		if claims == nil {
			return errorResponse(req.ID, CodeUnauthorized, ErrUnauthorized, nil)
		}
		if handler.MovesArm() && !claims.HasRole(auth.RoleController) {
			return errorResponse(req.ID, CodeForbidden, ErrForbidden, "controller role required")
		}
	}

	result, err := handler.Handle(ctx, req.Params)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return errorResponse(req.ID, rpcCode(cmdErr.Code), cmdErr.Code, cmdErr.Message)
		}
		s.logger.Warn("command failed", zap.String("method", req.Method), zap.Error(err))
		return errorResponse(req.ID, CodeInternalError, ErrInternal, nil)
	}

	return &Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	}
}

func rpcCode(code string) int {
	switch code {
	case ErrInvalidParams:
		return CodeInvalidParams
	case ErrBusy:
		return CodeBusy
	case ErrUnavailable:
		return CodeUnavailable
	case ErrUnauthorized:
		return CodeUnauthorized
	case ErrForbidden:
		return CodeForbidden
	default:
		return CodeInternalError
	}
}

func errorResponse(id interface{}, code int, message string, data interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		Error: &RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// writeErrorResponse writes an error response
func (s *ExtensibleJSONRPCServer) writeErrorResponse(w http.ResponseWriter, code int, message string, id interface{}) {
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(errorResponse(id, code, message, nil))
}

// GetAvailableCommands returns a list of available commands
func (s *ExtensibleJSONRPCServer) GetAvailableCommands() []CommandInfo {
	return s.registry.Describe()
}

// AddCustomCommand allows adding custom commands at runtime
func (s *ExtensibleJSONRPCServer) AddCustomCommand(handler CommandHandler) {
	s.registry.Register(handler)
}

// RemoveCommand allows removing commands at runtime
func (s *ExtensibleJSONRPCServer) RemoveCommand(commandName string) {
	delete(s.registry.handlers, commandName)
}

// CustomCommandHandler adapts a function to CommandHandler
type CustomCommandHandler struct {
	name        string
	description string
	readOnly    bool
	movesArm    bool
	handlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)
}

// NewCustomCommandHandler creates a custom command handler
func NewCustomCommandHandler(name, description string, readOnly, movesArm bool, handlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)) *CustomCommandHandler {
	return &CustomCommandHandler{
		name:        name,
		description: description,
		readOnly:    readOnly,
		movesArm:    movesArm,
		handlerFunc: handlerFunc,
	}
}

func (h *CustomCommandHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return h.handlerFunc(ctx, params)
}

func (h *CustomCommandHandler) GetName() string {
	return h.name
}

func (h *CustomCommandHandler) GetDescription() string {
	return h.description
}

func (h *CustomCommandHandler) IsReadOnly() bool {
	return h.readOnly
}

func (h *CustomCommandHandler) MovesArm() bool {
	return h.movesArm
}
