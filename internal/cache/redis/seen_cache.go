package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polywatch/internal/pipeline"
)

// SeenCache implements pipeline.SeenStore with SET NX plus a TTL, so a trade
// notified by one run is suppressed in later runs (and in concurrent
// replicas) until the key expires.
type SeenCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeenCache creates a SeenCache backed by the given Client. Keys expire
// after ttl.
func NewSeenCache(c *Client, ttl time.Duration) *SeenCache {
	return &SeenCache{
		rdb: c.Underlying(),
		ttl: ttl,
	}
}

func seenKey(key string) string {
	return "seen:" + key
}

// MarkIfNew records key with the configured TTL and reports whether it was
// absent before the call.
func (s *SeenCache) MarkIfNew(ctx context.Context, key string) (bool, error) {
	fresh, err := s.rdb.SetNX(ctx, seenKey(key), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark seen %s: %w", key, err)
	}
	return fresh, nil
}

// Compile-time interface check.
var _ pipeline.SeenStore = (*SeenCache)(nil)
