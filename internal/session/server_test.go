package session

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/station"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRunner) ExecuteCommand(ctx context.Context, cmdType string, params station.Params) station.CommandResponse {
	r.mu.Lock()
	r.calls = append(r.calls, cmdType+":"+params.Origin)
	r.mu.Unlock()
	if cmdType == station.CmdPick {
		return station.CommandResponse{Error: station.CodeInvalidParams, Message: params.Command}
	}
	return station.CommandResponse{Result: station.Status{}}
}

func (r *recordingRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func createTestConfig() config.SessionConfig {
	return config.SessionConfig{
		Enabled:        true,
		AllowedCIDRs:   []string{"127.0.0.0/8", "172.20.0.0/16"},
		MaxConnections: 2,
		IdleTimeoutSec: 5,
	}
}

func startServer(t *testing.T, cfg config.SessionConfig, runner *recordingRunner) *Server {
	t.Helper()
	server, err := NewServer(cfg, runner, "> ", nil)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- server.Serve(l) }()
	t.Cleanup(func() {
		if err := server.Close(); err != nil {
			t.Errorf("Close error: %v", err)
		}
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Serve did not return after Close")
		}
	})
	return server
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewServerRejectsBadCIDR(t *testing.T) {
	cfg := createTestConfig()
	cfg.AllowedCIDRs = []string{"not-a-cidr"}
	if _, err := NewServer(cfg, &recordingRunner{}, "", nil); err == nil {
		t.Error("Expected error for invalid CIDR")
	}
	if _, err := NewServer(createTestConfig(), nil, "", nil); err == nil {
		t.Error("Expected error for nil runner")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	runner := &recordingRunner{}
	server := startServer(t, createTestConfig(), runner)
	waitForListener(t, server)

	conn := dial(t, server)
	if _, err := conn.Write([]byte("fetch the red one\narmtag\nexit\n")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}

	text := string(out)
	if !strings.Contains(text, "error: INVALID_PARAMS fetch the red one") {
		t.Errorf("Expected pick reply, got %q", text)
	}
	if !strings.Contains(text, "Bye!") {
		t.Errorf("Expected goodbye, got %q", text)
	}

	want := []string{"pick:session", "calibrate:session", "sleep:session"}
	got := runner.Calls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected calls %v, got %v", want, got)
	}
}

func TestSessionLimit(t *testing.T) {
	cfg := createTestConfig()
	cfg.MaxConnections = 1
	server := startServer(t, cfg, &recordingRunner{})
	waitForListener(t, server)

	first := dial(t, server)
	prompt := make([]byte, 2)
	if _, err := io.ReadFull(first, prompt); err != nil {
		t.Fatalf("Expected prompt on first session: %v", err)
	}

	second := dial(t, server)
	out, _ := io.ReadAll(second)
	if string(out) != rejectMessage {
		t.Errorf("Expected rejection message, got %q", out)
	}
	if n := server.ActiveConnections(); n != 1 {
		t.Errorf("Expected 1 active session, got %d", n)
	}
}

func TestSessionRejectsOutsideCIDR(t *testing.T) {
	cfg := createTestConfig()
	cfg.AllowedCIDRs = []string{"10.0.0.0/8"}
	server := startServer(t, cfg, &recordingRunner{})
	waitForListener(t, server)

	conn := dial(t, server)
	out, _ := io.ReadAll(conn)
	if len(out) != 0 {
		t.Errorf("Expected connection closed without output, got %q", out)
	}
}

func TestIsAllowedConnection(t *testing.T) {
	server, err := NewServer(createTestConfig(), &recordingRunner{}, "", nil)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}

	tests := []struct {
		name        string
		remoteAddr  string
		expectAllow bool
	}{
		{"localhost IPv4", "127.0.0.1:12345", true},
		{"localhost IPv6", "[::1]:12345", false},
		{"lab network", "172.20.1.10:12345", true},
		{"outside network", "192.168.1.1:12345", false},
		{"invalid address", "invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed := server.isAllowedConnection(&mockConn{remoteAddr: tt.remoteAddr})
			if allowed != tt.expectAllow {
				t.Errorf("Expected allowed=%v for %s, got %v", tt.expectAllow, tt.remoteAddr, allowed)
			}
		})
	}
}

func TestServerCloseTwice(t *testing.T) {
	server, err := NewServer(createTestConfig(), &recordingRunner{}, "", nil)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Errorf("Close() on already closed server returned error: %v", err)
	}
}

func waitForListener(t *testing.T, s *Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("Server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Mock connection for CIDR checks
type mockConn struct {
	net.Conn
	remoteAddr string
}

func (m *mockConn) RemoteAddr() net.Addr {
	return &mockAddr{m.remoteAddr}
}

type mockAddr struct {
	addr string
}

func (m *mockAddr) Network() string {
	return "tcp"
}

func (m *mockAddr) String() string {
	return m.addr
}
