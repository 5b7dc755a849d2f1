package pipeline

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// SeenStore extends duplicate suppression across process runs. MarkIfNew
// atomically records key and reports whether it was new.
type SeenStore interface {
	MarkIfNew(ctx context.Context, key string) (bool, error)
}

// Deduper drops trades whose dedup key was already seen during this run,
// optionally consulting a persistent store so restarts do not renotify.
// The in-memory set is reset with each process, making the polling window
// the duplicate suppressor across runs unless a store is attached.
type Deduper struct {
	seen   map[string]struct{}
	store  SeenStore
	logger *slog.Logger
}

// NewDeduper creates a Deduper. store may be nil for run-local dedup only.
func NewDeduper(store SeenStore, logger *slog.Logger) *Deduper {
	return &Deduper{
		seen:   make(map[string]struct{}),
		store:  store,
		logger: logger,
	}
}

// MarkSeen preloads keys, e.g. from the notification journal at startup.
func (d *Deduper) MarkSeen(keys ...string) {
	for _, k := range keys {
		d.seen[k] = struct{}{}
	}
}

// Dedupe returns the trades not seen before, recording their keys as it
// goes. One seen set is threaded through all addresses of a run, so the
// same trade surfacing under two addresses or endpoints is kept once.
// Store failures are logged and the trade kept: delivery is never blocked
// by cache downtime.
func (d *Deduper) Dedupe(ctx context.Context, trades []domain.Trade) []domain.Trade {
	kept := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		key := t.DedupKey()
		if _, ok := d.seen[key]; ok {
			continue
		}
		d.seen[key] = struct{}{}

		if d.store != nil {
			fresh, err := d.store.MarkIfNew(ctx, key)
			if err != nil {
				d.logger.Warn("seen store unavailable, keeping trade",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			} else if !fresh {
				continue
			}
		}

		kept = append(kept, t)
	}
	return kept
}
