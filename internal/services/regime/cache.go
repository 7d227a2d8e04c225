package regime

import (
	"context"
	"fmt"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/redis"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/metrics"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// Cache is a short-TTL redis cache for live classification results.
// Correctness never depends on it: any cache failure degrades to computing
// fresh.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewCache creates a classification cache with the given TTL
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		log:    logger.Get().With("component", "regime_cache"),
	}
}

// Get returns the cached classification, or nil on miss or error
func (c *Cache) Get(ctx context.Context, symbol, timeframe string) *regime.Classification {
	var cached regime.Classification

	err := c.client.Get(ctx, cacheKey(symbol, timeframe), &cached)
	if err != nil {
		if !redis.IsNil(err) {
			c.log.Warnf("Classification cache read failed for %s/%s: %v", symbol, timeframe, err)
		}
		metrics.RecordCacheLookup(false)
		return nil
	}

	metrics.RecordCacheLookup(true)
	return &cached
}

// Set stores a classification; write failures are logged and swallowed
func (c *Cache) Set(ctx context.Context, cl *regime.Classification) {
	if err := c.client.Set(ctx, cacheKey(cl.Symbol, cl.Timeframe), cl, c.ttl); err != nil {
		c.log.Warnf("Classification cache write failed for %s/%s: %v", cl.Symbol, cl.Timeframe, err)
	}
}

func cacheKey(symbol, timeframe string) string {
	return fmt.Sprintf("regime:classification:%s:%s", symbol, timeframe)
}
