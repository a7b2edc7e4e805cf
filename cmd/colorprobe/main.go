package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/observability"
	"github.com/carzh/robot-color-picker/internal/picker"
)

// colorprobe runs one picking decision against the configured scene and
// prints it as JSON. The arm is never moved.
func main() {
	configPath := flag.String("config", "", "path to a YAML or TOML config file")
	command := flag.String("command", "", "command to resolve, e.g. \"the one like a banana\"")
	timeout := flag.Duration("timeout", 30*time.Second, "decision timeout")
	flag.Parse()

	if *command == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// keep stdout for the decision
	cfg.Log.Outputs = []string{"stderr"}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := picker.FromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build picking pipeline", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	decision, err := p.Decide(ctx, *command)
	if err != nil {
		logger.Fatal("Decision failed", zap.String("command", *command), zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(decision); err != nil {
		logger.Fatal("Failed to encode decision", zap.Error(err))
	}
}
