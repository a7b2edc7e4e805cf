package contracttests

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/carzh/robot-color-picker/internal/arm"
	"github.com/carzh/robot-color-picker/internal/session"
	"github.com/carzh/robot-color-picker/internal/station"
)

const testPrompt = "Give me an input! "

// TestTCPServer wraps the session server for contract testing
type TestTCPServer struct {
	server  *session.Server
	station *station.Station
	arm     *arm.DryRun
	addr    string
	done    chan error
}

// NewTestTCPServer starts a session server on a loopback port
func NewTestTCPServer(t *testing.T, allowed []string) *TestTCPServer {
	cfg := createTestConfig()
	if allowed != nil {
		cfg.Network.Session.AllowedCIDRs = allowed
	}
	st, dry := createTestStation(t, cfg)

	server, err := session.NewServer(cfg.Network.Session, st, testPrompt, nil)
	if err != nil {
		t.Fatalf("session.NewServer error: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	ts := &TestTCPServer{
		server:  server,
		station: st,
		arm:     dry,
		addr:    listener.Addr().String(),
		done:    make(chan error, 1),
	}
	go func() { ts.done <- server.Serve(listener) }()
	return ts
}

// Close shuts down the test TCP server
func (ts *TestTCPServer) Close() {
	_ = ts.server.Close()
	<-ts.done
	_ = ts.station.Close()
}

// Converse writes the given lines and returns everything the server sent
// until it closed the connection.
func (ts *TestTCPServer) Converse(t *testing.T, lines ...string) string {
	conn, err := net.Dial("tcp", ts.addr)
	if err != nil {
		t.Fatalf("Failed to connect to session server: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write([]byte(strings.Join(lines, "\n") + "\n")); err != nil {
		t.Fatalf("Failed to send lines: %v", err)
	}
	out, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("Failed to read session output: %v", err)
	}
	return string(out)
}

func TestTCPPromptAndExit(t *testing.T) {
	server := NewTestTCPServer(t, nil)
	defer server.Close()

	out := server.Converse(t, "quit")
	if !strings.HasPrefix(out, testPrompt) {
		t.Errorf("Expected session to open with the prompt, got %q", out)
	}
	if !strings.Contains(out, "Bye!") {
		t.Errorf("Expected goodbye on quit, got %q", out)
	}

	status := server.station.Status()
	if !status.Asleep {
		t.Error("Expected the arm to be asleep after quit")
	}
}

func TestTCPPickCycle(t *testing.T) {
	server := NewTestTCPServer(t, nil)
	defer server.Close()

	out := server.Converse(t, "armtag", "grab the red block", "like the sky", "the purple one", "exit")

	// one reply line per non-exit command, each after a prompt
	reader := bufio.NewScanner(strings.NewReader(out))
	var replies []string
	for reader.Scan() {
		line := strings.TrimPrefix(reader.Text(), testPrompt)
		if line != "" {
			replies = append(replies, line)
		}
	}
	if len(replies) != 5 {
		t.Fatalf("Expected 5 reply lines, got %d: %q", len(replies), replies)
	}

	checks := []string{
		"Calibrated",
		"red (keyword) pointing at (0.250, 0.100, 0.050)",
		"blue (classifier) pointing at (0.300, 0.200, 0.000)",
		"purple (keyword) not among 2 objects",
		"Bye!",
	}
	for i, want := range checks {
		if !strings.Contains(replies[i], want) {
			t.Errorf("Reply %d: expected %q, got %q", i, want, replies[i])
		}
	}

	status := server.station.Status()
	if !status.Calibrated || status.Cycles != 3 {
		t.Errorf("Expected calibrated station with 3 cycles, got %+v", status)
	}
	if status.LastTarget != "purple" || status.LastFound {
		t.Errorf("Expected last target purple not found, got %+v", status)
	}
}

func TestTCPLocalOnlyPolicy(t *testing.T) {
	server := NewTestTCPServer(t, []string{"10.0.0.0/8"})
	defer server.Close()

	out := server.Converse(t, "red", "exit")
	if out != "" {
		t.Errorf("Expected connection from loopback to be dropped, got %q", out)
	}
	if len(server.arm.Actions()) != 0 {
		t.Errorf("Expected no arm motion, got %v", server.arm.Actions())
	}
}
