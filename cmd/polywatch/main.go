// Command polywatch watches Polymarket wallets and notifies about new trades.
// It loads configuration, validates it, wires dependencies, sets up signal
// handling, and runs a single polling cycle or the long-lived poll loop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/polywatch/internal/app"
	"github.com/alanyoungcy/polywatch/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	dryRun := flag.Bool("dry-run", false, "log notifications instead of sending them")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Debug("active configuration",
		slog.String("config", fmt.Sprintf("%+v", config.RedactedConfig(cfg))),
	)

	// CI schedulers run one cycle per invocation.
	singleShot := *once || os.Getenv("CI") == "true"

	logger.Info("polywatch starting",
		slog.String("config", *configPath),
		slog.Bool("once", singleShot),
		slog.Bool("dry_run", *dryRun),
	)

	// Create the application.
	application := app.New(cfg, logger, app.Options{
		Once:   singleShot,
		DryRun: *dryRun,
	})
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("watcher shut down gracefully")
		} else {
			logger.Error("watcher exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("polywatch stopped")
}
