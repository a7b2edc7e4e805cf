// Package jsonrpc serves the command registry over HTTP.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/auth"
	"github.com/carzh/robot-color-picker/internal/commands"
	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/station"
)

// Server handles JSON-RPC HTTP requests
type Server struct {
	config           *config.Config
	extensibleServer *commands.ExtensibleJSONRPCServer
	middleware       *auth.Middleware
	logger           *zap.Logger
	httpServer       *http.Server
}

// NewServer creates a new JSON-RPC server. Bearer tokens are required when
// auth is enabled.
func NewServer(cfg *config.Config, st *station.Station, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:           cfg,
		extensibleServer: commands.NewExtensibleJSONRPCServer(cfg, st, logger),
		logger:           logger,
	}

	if cfg.Auth.Enabled {
		verifier, err := auth.NewVerifier(cfg.Auth.Algorithm, cfg.Auth.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create token verifier: %w", err)
		}
		s.middleware = auth.NewMiddleware(verifier)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Network.HTTP.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.Station.CycleTimeoutSec+10) * time.Second,
	}
	return s, nil
}

// HandleRequest handles HTTP POST requests to the RPC endpoint
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// peek at the method for logging, then restore the body
	var method string
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err == nil {
			var req commands.Request
			if json.Unmarshal(body, &req) == nil {
				method = req.Method
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	s.extensibleServer.HandleRequest(w, r)

	s.logger.Info("JSON-RPC request processed",
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	)
}

// ListenAndServe serves until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
