// Package session serves operator console sessions over TCP. Each accepted
// connection runs its own console loop against the shared station.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/console"
)

// Origin tags audit entries of cycles started from a TCP session.
const Origin = "session"

const rejectMessage = "too many sessions\n"

// Server handles session TCP connections
type Server struct {
	config   config.SessionConfig
	runner   console.Runner
	prompt   string
	logger   *zap.Logger
	allowed  []*net.IPNet
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc

	activeConnections map[string]net.Conn
	connectionsMutex  sync.RWMutex
	maxConnections    int
	idleTimeout       time.Duration
	wg                sync.WaitGroup
	closeOnce         sync.Once
}

// NewServer creates a session server. Every allowed CIDR must parse.
func NewServer(cfg config.SessionConfig, runner console.Runner, prompt string, logger *zap.Logger) (*Server, error) {
	if runner == nil {
		return nil, errors.New("session server requires a runner")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allowed := make([]*net.IPNet, 0, len(cfg.AllowedCIDRs))
	for _, cidr := range cfg.AllowedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed CIDR %q: %w", cidr, err)
		}
		allowed = append(allowed, network)
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 1
	}
	idle := time.Duration(cfg.IdleTimeoutSec) * time.Second
	if idle <= 0 {
		idle = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:            cfg,
		runner:            runner,
		prompt:            prompt,
		logger:            logger,
		allowed:           allowed,
		ctx:               ctx,
		cancel:            cancel,
		activeConnections: make(map[string]net.Conn),
		maxConnections:    maxConns,
		idleTimeout:       idle,
	}, nil
}

// ListenAndServe listens on the configured port and serves until Close.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on l until Close.
func (s *Server) Serve(l net.Listener) error {
	s.connectionsMutex.Lock()
	s.listener = l
	s.connectionsMutex.Unlock()
	if s.ctx.Err() != nil {
		l.Close()
		return nil
	}

	s.logger.Info("Session server listening", zap.String("addr", l.Addr().String()))

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("Failed to accept connection", zap.Error(err))
			continue
		}

		if !s.isAllowedConnection(conn) {
			s.logger.Warn("Rejected connection (not in allowed CIDRs)", zap.String("client", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}
		if !s.track(conn) {
			s.logger.Warn("Rejected connection (session limit reached)",
				zap.String("client", conn.RemoteAddr().String()),
				zap.Int("max", s.maxConnections))
			_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
			_, _ = conn.Write([]byte(rejectMessage))
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Addr returns the listener address, nil before Serve.
func (s *Server) Addr() net.Addr {
	s.connectionsMutex.RLock()
	defer s.connectionsMutex.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ActiveConnections returns the number of open sessions.
func (s *Server) ActiveConnections() int {
	s.connectionsMutex.RLock()
	defer s.connectionsMutex.RUnlock()
	return len(s.activeConnections)
}

func (s *Server) track(conn net.Conn) bool {
	s.connectionsMutex.Lock()
	defer s.connectionsMutex.Unlock()
	if len(s.activeConnections) >= s.maxConnections {
		return false
	}
	s.activeConnections[conn.RemoteAddr().String()] = conn
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.connectionsMutex.Lock()
	delete(s.activeConnections, conn.RemoteAddr().String())
	s.connectionsMutex.Unlock()
}

// handleConnection runs one console session
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	client := conn.RemoteAddr().String()
	s.logger.Info("Session opened", zap.String("client", client))

	sess := console.NewSession(s.runner, s.prompt, Origin, s.logger.With(zap.String("client", client)))
	err := sess.Run(s.ctx, &idleConn{Conn: conn, timeout: s.idleTimeout}, conn)

	switch {
	case err == nil, errors.Is(err, console.ErrExit), errors.Is(err, context.Canceled):
		s.logger.Info("Session closed", zap.String("client", client))
	default:
		s.logger.Info("Session ended", zap.String("client", client), zap.Error(err))
	}
}

// isAllowedConnection checks if the connection is from an allowed CIDR
func (s *Server) isAllowedConnection(conn net.Conn) bool {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return false
	}
	clientIP := net.ParseIP(host)
	if clientIP == nil {
		return false
	}
	for _, network := range s.allowed {
		if network.Contains(clientIP) {
			return true
		}
	}
	return false
}

// Close stops accepting, drops open sessions and waits for them to finish.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()

		s.connectionsMutex.Lock()
		if s.listener != nil {
			err = s.listener.Close()
		}
		for _, conn := range s.activeConnections {
			conn.Close()
		}
		s.connectionsMutex.Unlock()

		s.wg.Wait()
	})
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// idleConn pushes the read deadline forward before every read.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}
