package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/notify"
	"github.com/alanyoungcy/polywatch/internal/pipeline"
	"github.com/alanyoungcy/polywatch/internal/server"
	"github.com/alanyoungcy/polywatch/internal/server/handler"
)

// watcher bundles the per-run pipeline state shared by both run modes. The
// deduper inside the processor carries one seen set across every cycle of
// the process.
type watcher struct {
	addresses []string
	processor *pipeline.Processor
	deps      *Dependencies
	status    *statusTracker
}

// buildWatcher normalizes the watch list and assembles the polling pipeline.
// When the journal is wired, recently notified keys preseed the deduper so a
// restart does not renotify trades still inside the dedup TTL.
func (a *App) buildWatcher(ctx context.Context, deps *Dependencies) *watcher {
	addresses := make([]string, 0, len(a.cfg.Addresses))
	for _, raw := range a.cfg.Addresses {
		addr := domain.NormalizeAddress(raw)
		if addr == "" {
			continue
		}
		if !domain.IsCanonicalAddress(addr) {
			a.logger.Warn("watched address is not a canonical 20-byte hex address",
				slog.String("address", addr),
			)
		}
		addresses = append(addresses, addr)
	}

	deduper := pipeline.NewDeduper(deps.SeenStore, a.logger)
	if deps.Journal != nil {
		since := time.Now().Add(-a.cfg.Dedup.TTL.Duration)
		keys, err := deps.Journal.RecentKeys(ctx, since)
		if err != nil {
			a.logger.Warn("journal preseed failed, starting with an empty seen set",
				slog.String("error", err.Error()),
			)
		} else if len(keys) > 0 {
			deduper.MarkSeen(keys...)
			a.logger.Info("preseeded dedup keys from journal",
				slog.Int("keys", len(keys)),
			)
		}
	}

	filters := pipeline.Filters{
		MinSize: a.cfg.Filters.MinSize.Ptr(),
		Sides:   a.cfg.Filters.Sides,
	}

	return &watcher{
		addresses: addresses,
		processor: pipeline.NewProcessor(deps.Trades, filters, deduper, a.logger),
		deps:      deps,
		status:    newStatusTracker(len(addresses), a.cfg.WindowMinutes),
	}
}

// RunOnce executes a single polling cycle. Used for cron-style scheduling
// and CI runs; any cycle error, including a partial fetch failure, propagates
// so the process exits non-zero.
func (a *App) RunOnce(ctx context.Context, w *watcher) error {
	a.logger.InfoContext(ctx, "running single cycle")
	return a.cycle(ctx, w)
}

// RunLoop polls on a fixed interval until the context is cancelled. Cycle
// errors are logged and the loop continues, except email delivery failures,
// which end the process. The activity feed, when wired, triggers an early
// cycle instead of waiting out the interval.
func (a *App) RunLoop(ctx context.Context, w *watcher) error {
	interval := time.Duration(a.cfg.PollIntervalSeconds) * time.Second
	a.logger.InfoContext(ctx, "starting poll loop",
		slog.Duration("interval", interval),
		slog.Int("addresses", len(w.addresses)),
	)

	g, ctx := errgroup.WithContext(ctx)

	var wake <-chan struct{}
	if w.deps.Feed != nil {
		wake = w.deps.Feed.Wake()
		g.Go(func() error {
			return w.deps.Feed.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startOpsServer(ctx, g, w)
	}

	g.Go(func() error {
		runCycle := func() error {
			err := a.cycle(ctx, w)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, domain.ErrDeliveryFatal) {
				return err
			}
			a.logger.ErrorContext(ctx, "cycle failed",
				slog.String("error", err.Error()),
			)
			return nil
		}

		if err := runCycle(); err != nil {
			return err
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if wake != nil {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := runCycle(); err != nil {
						return err
					}
				case <-wake:
					a.logger.InfoContext(ctx, "watched address active, polling early")
					if err := runCycle(); err != nil {
						return err
					}
					ticker.Reset(interval)
				}
			} else {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := runCycle(); err != nil {
						return err
					}
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// cycle runs one poll: fetch, filter, dedup, deliver, then feed the sinks.
// Per-address fetch failures never block delivery for the addresses that did
// respond, but the joined fetch error is still returned so single-shot runs
// exit non-zero; the loop logs it and keeps polling. Only email delivery
// failures are fatal in both modes.
func (a *App) cycle(ctx context.Context, w *watcher) (err error) {
	cycleID := uuid.NewString()
	logger := a.logger.With(slog.String("cycle_id", cycleID))
	start := time.Now()

	snap := handler.CycleSnapshot{ID: cycleID, At: start.UTC()}
	defer func() {
		snap.DurationMS = time.Since(start).Milliseconds()
		if err != nil {
			snap.Error = err.Error()
		}
		w.status.record(snap)
		logger.InfoContext(ctx, "cycle complete",
			slog.Int("api_calls", snap.APICalls),
			slog.Int("total_trades", snap.Fetched),
			slog.Int("filtered_trades", snap.Kept),
			slog.Int("failed_addresses", snap.FailedAddresses),
			slog.Int("window_minutes", a.cfg.WindowMinutes),
			slog.Duration("duration", time.Since(start)),
		)
	}()

	sinceEpoch := start.Add(-time.Duration(a.cfg.WindowMinutes) * time.Minute).Unix()

	result, fetchErr := w.processor.Run(ctx, w.addresses, sinceEpoch)
	snap.Fetched = result.Fetched
	snap.Kept = result.Kept
	snap.APICalls = result.APICalls
	snap.FailedAddresses = result.Failed
	if fetchErr != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	if result.Kept == 0 {
		logger.InfoContext(ctx, "no new trades found, skipping notification")
		return fetchErr
	}

	if w.deps.Email != nil {
		subject := notify.Subject(a.cfg.Email.SubjectPrefix, result.Kept)
		body := notify.EmailBody(result.Groups)
		if sendErr := w.deps.Email.Send(ctx, subject, body); sendErr != nil {
			logger.ErrorContext(ctx, "email delivery failed",
				slog.String("error", sendErr.Error()),
			)
			return errors.Join(domain.ErrDeliveryFatal, sendErr)
		}
		logger.InfoContext(ctx, "email sent",
			slog.Int("trades", result.Kept),
			slog.String("subject", subject),
		)
	}

	if w.deps.Notifier.Senders() > 0 {
		for _, t := range result.AllTrades() {
			if broadcastErr := w.deps.Notifier.Broadcast(ctx, "", notify.TradeMessage(t)); broadcastErr != nil {
				logger.WarnContext(ctx, "chat delivery failed",
					slog.String("dedup_key", t.DedupKey()),
					slog.String("error", broadcastErr.Error()),
				)
			}
		}
	}

	a.feedSinks(ctx, logger, w, cycleID, start, result)
	return fetchErr
}

// feedSinks records the delivered trades in the journal, the archive, and on
// the bus. Sink failures are logged and never fail the cycle.
func (a *App) feedSinks(ctx context.Context, logger *slog.Logger, w *watcher, cycleID string, at time.Time, result *pipeline.CycleResult) {
	if w.deps.Journal != nil {
		if err := w.deps.Journal.InsertBatch(ctx, cycleID, result.Groups); err != nil {
			logger.WarnContext(ctx, "journal write failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if w.deps.Archiver != nil {
		key, err := w.deps.Archiver.ArchiveCycle(ctx, cycleID, at, result.Groups)
		if err != nil {
			logger.WarnContext(ctx, "archive write failed",
				slog.String("error", err.Error()),
			)
		} else if key != "" {
			logger.DebugContext(ctx, "cycle archived", slog.String("key", key))
		}
	}

	if w.deps.Bus != nil {
		if err := w.deps.Bus.Publish(ctx, cycleID, result.Groups); err != nil {
			logger.WarnContext(ctx, "bus publish failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// startOpsServer adds the ops HTTP server goroutines to the given errgroup.
// The server is shut down gracefully when the context is cancelled.
func (a *App) startOpsServer(ctx context.Context, g *errgroup.Group, w *watcher) {
	srv := server.NewServer(
		server.Config{Port: a.cfg.Server.Port},
		server.Handlers{
			Health: handler.NewHealthHandler(),
			Status: handler.NewStatusHandler(w.status.snapshot),
		},
		a.logger,
	)

	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.InfoContext(ctx, "ops server shutting down")
		return srv.Shutdown(shutCtx)
	})
}
