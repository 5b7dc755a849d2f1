// Package app provides the top-level application lifecycle for the watcher.
// It wires together all dependencies (the data API client, the seen store,
// the notification journal, archive and bus sinks, and the notification
// channels) and runs either a single polling cycle or the long-lived loop.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polywatch/internal/config"
)

// Options selects the run mode and delivery behaviour, resolved by the CLI.
type Options struct {
	// Once runs a single cycle and exits instead of polling.
	Once bool

	// DryRun logs every would-be notification instead of sending it.
	DryRun bool
}

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *App {
	return &App{
		cfg:    cfg,
		opts:   opts,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, builds the polling
// pipeline, and runs it once or in a loop until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	mode := "loop"
	if a.opts.Once {
		mode = "once"
	}
	a.logger.InfoContext(ctx, "starting watcher",
		slog.String("mode", mode),
		slog.Bool("dry_run", a.opts.DryRun),
		slog.Int("addresses", len(a.cfg.Addresses)),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.opts.DryRun)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	w := a.buildWatcher(ctx, deps)

	if a.opts.Once {
		return a.RunOnce(ctx, w)
	}
	return a.RunLoop(ctx, w)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down watcher")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
