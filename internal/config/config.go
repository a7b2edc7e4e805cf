package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/carzh/robot-color-picker/internal/color"
)

// DefaultConfigFile is read when present, before any explicit config file.
const DefaultConfigFile = "config/default.yaml"

// Config represents the complete configuration for the color picker
type Config struct {
	Resolver   ResolverConfig   `yaml:"resolver"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Vision     VisionConfig     `yaml:"vision"`
	Matcher    MatcherConfig    `yaml:"matcher"`
	Station    StationConfig    `yaml:"station"`
	Network    NetworkConfig    `yaml:"network"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Audit      AuditConfig      `yaml:"audit"`
	Console    ConsoleConfig    `yaml:"console"`
}

// ResolverConfig holds the fallback classifier candidate subset
type ResolverConfig struct {
	// Candidates offered to the classifier when a command names no color.
	// Two to four colors; more hurts the classifier's accuracy.
	Candidates []color.Color `yaml:"candidates"`
}

// ClassifierConfig selects and configures the fallback classifier
type ClassifierConfig struct {
	Kind    string        `yaml:"kind"` // lexicon, ollama or onnx
	Lexicon LexiconConfig `yaml:"lexicon"`
	Ollama  OllamaConfig  `yaml:"ollama"`
	ONNX    ONNXConfig    `yaml:"onnx"`
}

// LexiconConfig maps color labels to associated words
type LexiconConfig struct {
	Terms map[string][]string `yaml:"terms"`
}

// OllamaConfig holds settings for an Ollama-compatible generate endpoint
type OllamaConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeoutSec"`
}

// ONNXConfig holds settings for the pair-scoring ONNX model
type ONNXConfig struct {
	ModelPath string `yaml:"modelPath"`
	Features  int    `yaml:"features"`
}

// VisionConfig describes where sensed objects come from and their scan order
type VisionConfig struct {
	ScenePath string `yaml:"scenePath"`
	RefFrame  string `yaml:"refFrame"`
	SortAxis  string `yaml:"sortAxis"`
	Reverse   bool   `yaml:"reverse"`
}

// MatcherConfig holds the out-of-range sample policy
type MatcherConfig struct {
	SamplePolicy string `yaml:"samplePolicy"` // clamp or reject
}

// StationConfig holds command queue settings
type StationConfig struct {
	QueueSize         int `yaml:"queueSize"`
	EnqueueTimeoutSec int `yaml:"enqueueTimeoutSec"`
	CycleTimeoutSec   int `yaml:"cycleTimeoutSec"`
}

// NetworkConfig holds network-related settings
type NetworkConfig struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Session SessionConfig `yaml:"session"`
}

// HTTPConfig holds JSON-RPC HTTP server settings
type HTTPConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Port         int    `yaml:"port"`
	ServerHeader string `yaml:"serverHeader"`
}

// SessionConfig holds TCP command session settings
type SessionConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Port           int      `yaml:"port"`
	AllowedCIDRs   []string `yaml:"allowedCidrs"`
	MaxConnections int      `yaml:"maxConnections"`
	IdleTimeoutSec int      `yaml:"idleTimeoutSec"`
}

// AuthConfig holds bearer token settings for the HTTP endpoint
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Algorithm string `yaml:"algorithm"`
	SecretKey string `yaml:"secretKey"`
}

// LogConfig defines logger settings
type LogConfig struct {
	Level       string         `yaml:"level"`  // debug, info, warn, error
	Format      string         `yaml:"format"` // console or json
	Outputs     []string       `yaml:"outputs"`
	Development bool           `yaml:"development"`
	Rotation    RotationConfig `yaml:"rotation"`
}

// RotationConfig controls log file rotation for file outputs
type RotationConfig struct {
	Enable     bool   `yaml:"enable"`
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// AuditConfig holds the decision audit log settings
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// ConsoleConfig holds the stdin console settings
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prompt  string `yaml:"prompt"`
}

// Load loads configuration from files and environment variables. An empty
// path falls back to the COLORPICKER_CONFIG environment variable.
func Load(path string) (*Config, error) {
	// Load default configuration
	cfg := getDefaultConfig()

	// Load from default config file
	if err := loadFromFile(cfg, DefaultConfigFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if path == "" {
		path = os.Getenv("COLORPICKER_CONFIG")
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	// Override with environment variables
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Resolver: ResolverConfig{
			Candidates: []color.Color{color.Red, color.Blue},
		},
		Classifier: ClassifierConfig{
			Kind: "lexicon",
			Ollama: OllamaConfig{
				Endpoint:   "http://localhost:11434/api/generate",
				Model:      "llama3",
				TimeoutSec: 30,
			},
			ONNX: ONNXConfig{
				ModelPath: "models/color-choice.onnx",
				Features:  256,
			},
		},
		Vision: VisionConfig{
			ScenePath: "config/scene.yaml",
			RefFrame:  "rx200/base_link",
			SortAxis:  "y",
			Reverse:   true,
		},
		Matcher: MatcherConfig{
			SamplePolicy: "clamp",
		},
		Station: StationConfig{
			QueueSize:         16,
			EnqueueTimeoutSec: 5,
			CycleTimeoutSec:   60,
		},
		Network: NetworkConfig{
			HTTP: HTTPConfig{
				Enabled: false,
				Port:    8080,
			},
			Session: SessionConfig{
				Enabled:        false,
				Port:           50000,
				AllowedCIDRs:   []string{"127.0.0.0/8", "::1/128"},
				MaxConnections: 4,
				IdleTimeoutSec: 300,
			},
		},
		Auth: AuthConfig{
			Enabled:   false,
			Algorithm: "HS256",
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "logs/colorpicker.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			Path:       "logs/decisions.jsonl",
			MaxSizeMB:  20,
			MaxBackups: 5,
		},
		Console: ConsoleConfig{
			Enabled: true,
			Prompt:  "Give me an input! ",
		},
	}
}

// loadFromFile loads configuration from a YAML or TOML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) error {
	if kind := os.Getenv("COLORPICKER_CLASSIFIER"); kind != "" {
		cfg.Classifier.Kind = kind
	}

	if list := os.Getenv("COLORPICKER_CANDIDATES"); list != "" {
		candidates, err := color.ParseList(list)
		if err != nil {
			return fmt.Errorf("COLORPICKER_CANDIDATES: %w", err)
		}
		cfg.Resolver.Candidates = candidates
	}

	if level := os.Getenv("COLORPICKER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if policy := os.Getenv("COLORPICKER_SAMPLE_POLICY"); policy != "" {
		cfg.Matcher.SamplePolicy = policy
	}

	if port := os.Getenv("COLORPICKER_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Network.HTTP.Port = p
			cfg.Network.HTTP.Enabled = true
		}
	}

	if secret := os.Getenv("COLORPICKER_AUTH_SECRET"); secret != "" {
		cfg.Auth.SecretKey = secret
	}
	return nil
}
