// Package audit appends one JSON line per picking decision.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/carzh/robot-color-picker/internal/auth"
	"github.com/carzh/robot-color-picker/internal/vision"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp time.Time        `json:"ts"`
	User      string           `json:"user"`
	Origin    string           `json:"origin"`
	Command   string           `json:"command"`
	Target    string           `json:"target,omitempty"`
	Method    string           `json:"method,omitempty"`
	Found     bool             `json:"found"`
	Position  *vision.Position `json:"position,omitempty"`
	Code      string           `json:"code"`
}

// Recorder stores decision entries.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

// Logger writes entries as JSON lines to a rotating file.
type Logger struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewLogger opens a rotating audit log at path.
func NewLogger(path string, maxSizeMB, maxBackups int) *Logger {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &Logger{w: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}}
}

// NewWriterLogger writes entries to w.
func NewWriterLogger(w io.WriteCloser) *Logger {
	return &Logger{w: w}
}

// Record writes e, filling in the timestamp and, when the context carries
// token claims, the user.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.User == "" {
		e.User = "unknown"
		if claims := auth.ClaimsFromContext(ctx); claims != nil {
			e.User = claims.Subject
		}
	}
	if e.Code == "" {
		e.Code = "SUCCESS"
	}

	data, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return
	}
	if _, err := l.w.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// Close closes the underlying writer.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	err := l.w.Close()
	l.w = nil
	return err
}
