package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"Seesaw/internal/model"
)

const cachePrefix = "seesaw:bars:"

// CachedFetcher keeps daily bars in redis for ttl. Cache failures fall
// through to the wrapped fetcher.
type CachedFetcher struct {
	next   Fetcher
	client *redis.Client
	ttl    time.Duration
}

// NewCachedFetcher wraps next with a redis cache.
func NewCachedFetcher(next Fetcher, client *redis.Client, ttl time.Duration) *CachedFetcher {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedFetcher{next: next, client: client, ttl: ttl}
}

func (c *CachedFetcher) Name() string { return c.next.Name() + "+redis" }

func cacheKey(symbol string, days int) string {
	return fmt.Sprintf("%s%s:%d", cachePrefix, symbol, days)
}

func (c *CachedFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	key := cacheKey(symbol, days)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var bars []model.OHLCV
		if err := json.Unmarshal(raw, &bars); err == nil && len(bars) > 0 {
			return bars, nil
		}
		log.Warn().Str("key", key).Msg("discarding unreadable cache entry")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("key", key).Msg("redis get failed")
	}

	bars, err := c.next.FetchDailyBars(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(bars); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("redis set failed")
		}
	}
	return bars, nil
}
