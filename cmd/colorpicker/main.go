package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/arm"
	"github.com/carzh/robot-color-picker/internal/audit"
	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/console"
	"github.com/carzh/robot-color-picker/internal/jsonrpc"
	"github.com/carzh/robot-color-picker/internal/observability"
	"github.com/carzh/robot-color-picker/internal/picker"
	"github.com/carzh/robot-color-picker/internal/session"
	"github.com/carzh/robot-color-picker/internal/station"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or TOML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting color picker",
		zap.String("classifier", cfg.Classifier.Kind),
		zap.Stringers("candidates", cfg.Resolver.Candidates),
		zap.String("scene", cfg.Vision.ScenePath),
	)

	p, err := picker.FromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build picking pipeline", zap.Error(err))
	}

	var recorder audit.Recorder = audit.Nop{}
	if cfg.Audit.Enabled {
		auditLog := audit.NewLogger(cfg.Audit.Path, cfg.Audit.MaxSizeMB, cfg.Audit.MaxBackups)
		defer auditLog.Close()
		recorder = auditLog
	}

	// Initialize station
	st, err := station.New(cfg.Station, p, arm.NewDryRun(logger.Named("arm")), recorder, logger.Named("station"))
	if err != nil {
		logger.Fatal("Failed to start station", zap.Error(err))
	}

	// front-ends that can end the process report here
	stop := make(chan string, 3)

	var httpServer *jsonrpc.Server
	if cfg.Network.HTTP.Enabled {
		httpServer, err = jsonrpc.NewServer(cfg, st, logger.Named("jsonrpc"))
		if err != nil {
			logger.Fatal("Failed to create HTTP server", zap.Error(err))
		}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil {
				logger.Error("HTTP server failed", zap.Error(err))
				stop <- "http server failed"
			}
		}()
	}

	var sessionServer *session.Server
	if cfg.Network.Session.Enabled {
		sessionServer, err = session.NewServer(cfg.Network.Session, st, cfg.Console.Prompt, logger.Named("session"))
		if err != nil {
			logger.Fatal("Failed to create session server", zap.Error(err))
		}
		go func() {
			if err := sessionServer.ListenAndServe(); err != nil {
				logger.Error("Session server failed", zap.Error(err))
				stop <- "session server failed"
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Console.Enabled {
		go func() {
			sess := console.NewSession(st, cfg.Console.Prompt, "console", logger.Named("console"))
			err := sess.Run(ctx, os.Stdin, os.Stdout)
			switch {
			case errors.Is(err, console.ErrExit):
				stop <- "console exit"
			case httpServer == nil && sessionServer == nil:
				// nothing else can receive commands
				stop <- "console closed"
			case err != nil && !errors.Is(err, context.Canceled):
				logger.Warn("Console stopped", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("Received signal", zap.String("signal", sig.String()))
	case reason := <-stop:
		logger.Info("Stopping", zap.String("reason", reason))
	}
	cancel()

	logger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
		}
	}
	if sessionServer != nil {
		if err := sessionServer.Close(); err != nil {
			logger.Warn("Session server shutdown error", zap.Error(err))
		}
	}
	if err := st.Close(); err != nil {
		logger.Warn("Station shutdown error", zap.Error(err))
	}

	status := st.Status()
	logger.Info("Stopped", zap.Int("cycles", status.Cycles), zap.Bool("asleep", status.Asleep))
}
