package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// JournalStore records every trade that was delivered, keyed by its dedup
// key. On startup the journal preseeds the in-memory seen set so a restart
// inside the polling window does not renotify.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a JournalStore backed by the given connection pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// InsertBatch journals the notified trades efficiently using pgx Batch.
// Trades whose dedup key was already journaled are silently skipped via
// ON CONFLICT DO NOTHING.
func (s *JournalStore) InsertBatch(ctx context.Context, cycleID string, groups []domain.AddressTrades) error {
	var total int
	for _, g := range groups {
		total += len(g.Trades)
	}
	if total == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO notified_trades (
			dedup_key, cycle_id, address, trade_ts,
			title, side, size, price, outcome,
			tx_hash, trade_id, market_slug, event_slug, condition_id
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14
		) ON CONFLICT (dedup_key) DO NOTHING`

	for _, g := range groups {
		for _, t := range g.Trades {
			batch.Queue(query,
				t.DedupKey(), cycleID, g.Address, t.Time(),
				t.Title, t.Side, t.Size, t.Price, t.Outcome,
				t.TxHash, t.ID, t.MarketSlug, t.EventSlug, t.ConditionID,
			)
		}
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < total; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: journal batch item %d: %w", i, err)
		}
	}
	return nil
}

// RecentKeys returns the dedup keys of trades notified at or after since,
// newest first.
func (s *JournalStore) RecentKeys(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT dedup_key FROM notified_trades
		 WHERE notified_at >= $1
		 ORDER BY notified_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent journal keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("postgres: scan journal key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read journal keys: %w", err)
	}
	return keys, nil
}
