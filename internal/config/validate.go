package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/carzh/robot-color-picker/internal/color"
)

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if err := validateCandidates(cfg.Resolver.Candidates); err != nil {
		return err
	}

	// Validate classifier kind
	validKinds := []string{"lexicon", "ollama", "onnx"}
	if !contains(validKinds, cfg.Classifier.Kind) {
		return fmt.Errorf("invalid classifier kind %s, must be one of: %v", cfg.Classifier.Kind, validKinds)
	}
	for label := range cfg.Classifier.Lexicon.Terms {
		if _, err := color.ParseColor(label); err != nil {
			return fmt.Errorf("lexicon: %w", err)
		}
	}
	if cfg.Classifier.Kind == "ollama" {
		if cfg.Classifier.Ollama.Endpoint == "" || cfg.Classifier.Ollama.Model == "" {
			return fmt.Errorf("ollama classifier needs an endpoint and a model")
		}
		if cfg.Classifier.Ollama.TimeoutSec <= 0 || cfg.Classifier.Ollama.TimeoutSec > 300 {
			return fmt.Errorf("ollama timeout %d seconds is outside reasonable range [1, 300]", cfg.Classifier.Ollama.TimeoutSec)
		}
	}
	if cfg.Classifier.Kind == "onnx" {
		if cfg.Classifier.ONNX.ModelPath == "" {
			return fmt.Errorf("onnx classifier needs a model path")
		}
		if cfg.Classifier.ONNX.Features <= 0 {
			return fmt.Errorf("onnx feature width must be positive, got %d", cfg.Classifier.ONNX.Features)
		}
	}

	// Validate vision ordering
	validAxes := []string{"x", "y", "z"}
	if !contains(validAxes, strings.ToLower(cfg.Vision.SortAxis)) {
		return fmt.Errorf("invalid sort axis %s, must be one of: %v", cfg.Vision.SortAxis, validAxes)
	}

	validPolicies := []string{"clamp", "reject"}
	if !contains(validPolicies, strings.ToLower(cfg.Matcher.SamplePolicy)) {
		return fmt.Errorf("invalid sample policy %s, must be one of: %v", cfg.Matcher.SamplePolicy, validPolicies)
	}

	// Validate station queue
	if cfg.Station.QueueSize <= 0 || cfg.Station.QueueSize > 1024 {
		return fmt.Errorf("station queue size %d is outside reasonable range [1, 1024]", cfg.Station.QueueSize)
	}
	if cfg.Station.EnqueueTimeoutSec <= 0 || cfg.Station.EnqueueTimeoutSec > 60 {
		return fmt.Errorf("enqueue timeout %d seconds is outside reasonable range [1, 60]", cfg.Station.EnqueueTimeoutSec)
	}
	if cfg.Station.CycleTimeoutSec <= 0 || cfg.Station.CycleTimeoutSec > 600 {
		return fmt.Errorf("cycle timeout %d seconds is outside reasonable range [1, 600]", cfg.Station.CycleTimeoutSec)
	}

	// Validate network
	if cfg.Network.HTTP.Enabled && !validPort(cfg.Network.HTTP.Port) {
		return fmt.Errorf("invalid HTTP port %d", cfg.Network.HTTP.Port)
	}
	if cfg.Network.Session.Enabled {
		if !validPort(cfg.Network.Session.Port) {
			return fmt.Errorf("invalid session port %d", cfg.Network.Session.Port)
		}
		if cfg.Network.Session.MaxConnections <= 0 {
			return fmt.Errorf("session max connections must be positive, got %d", cfg.Network.Session.MaxConnections)
		}
		for _, cidr := range cfg.Network.Session.AllowedCIDRs {
			if _, _, err := net.ParseCIDR(cidr); err != nil {
				return fmt.Errorf("invalid allowed CIDR %q: %w", cidr, err)
			}
		}
	}

	// Validate auth
	if cfg.Auth.Enabled {
		if cfg.Auth.Algorithm != "HS256" {
			return fmt.Errorf("unsupported auth algorithm %s", cfg.Auth.Algorithm)
		}
		if len(cfg.Auth.SecretKey) < 16 {
			return fmt.Errorf("auth secret key must be at least 16 bytes")
		}
	}

	validFormats := []string{"console", "json"}
	if !contains(validFormats, strings.ToLower(cfg.Log.Format)) {
		return fmt.Errorf("invalid log format %s, must be one of: %v", cfg.Log.Format, validFormats)
	}

	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		return fmt.Errorf("audit log enabled without a path")
	}

	return nil
}

// validateCandidates mirrors the resolver's candidate rules so a bad config
// fails at startup rather than on the first ambiguous command.
func validateCandidates(candidates []color.Color) error {
	if len(candidates) < 2 || len(candidates) > 4 {
		return fmt.Errorf("resolver needs 2 to 4 candidate colors, got %d", len(candidates))
	}
	seen := make(map[color.Color]bool)
	for _, c := range candidates {
		if c == color.Unknown {
			return fmt.Errorf("unknown is not a valid candidate color")
		}
		if seen[c] {
			return fmt.Errorf("duplicate candidate color %s", c)
		}
		seen[c] = true
	}
	return nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
