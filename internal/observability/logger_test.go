package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/carzh/robot-color-picker/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zap.DebugLevel},
		{"INFO", zap.InfoLevel},
		{"warning", zap.WarnLevel},
		{"error", zap.ErrorLevel},
		{"chatty", zap.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "picker.log")
	logger, err := SetupLogger(config.LogConfig{
		Level:   "info",
		Format:  "json",
		Outputs: []string{path},
	})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	logger.Debug("hidden")
	logger.Info("resolved", zap.String("color", "red"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"resolved"`) || !strings.Contains(out, `"color":"red"`) {
		t.Errorf("Expected JSON entry in log, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("Expected debug entry to be filtered at info level")
	}
}

func TestSetupLoggerRotatingFile(t *testing.T) {
	dir := t.TempDir()
	rotated := filepath.Join(dir, "rotated.log")
	logger, err := SetupLogger(config.LogConfig{
		Level:   "debug",
		Format:  "console",
		Outputs: []string{filepath.Join(dir, "ignored.log")},
		Rotation: config.RotationConfig{
			Enable:   true,
			Filename: rotated,
		},
	})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	logger.Debug("cycle done")
	_ = logger.Sync()

	data, err := os.ReadFile(rotated)
	if err != nil {
		t.Fatalf("Expected rotation filename to be used: %v", err)
	}
	if !strings.Contains(string(data), "cycle done") {
		t.Errorf("Expected entry in rotated log, got %q", data)
	}
}
