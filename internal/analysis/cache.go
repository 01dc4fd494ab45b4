package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/redis"
)

const keyPrefix = "sentiment:analysis:"

// KV is the subset of the Redis client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResultCache stores per-video tallies in Redis and collapses concurrent
// computations for the same video. A nil KV keeps only the collapsing.
type ResultCache struct {
	kv      KV
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewResultCache(kv KV, ttl time.Duration, m *metrics.Metrics) *ResultCache {
	return &ResultCache{
		kv:      kv,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "analysis-cache"),
	}
}

func (c *ResultCache) Get(ctx context.Context, videoID string) (Result, bool) {
	if c.kv == nil {
		return Result{}, false
	}
	key := buildKey(videoID)
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return Result{}, false
	}
	c.hit()
	c.logger.Debug("cache hit", "video_id", videoID)
	return result, true
}

func (c *ResultCache) Set(ctx context.Context, result Result) {
	if c.kv == nil {
		return
	}
	key := buildKey(result.VideoID)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for videoID or runs compute once
// for all concurrent callers. The bool reports a cache hit.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	videoID string,
	compute func() (Result, error),
) (Result, bool, error) {
	if result, ok := c.Get(ctx, videoID); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(buildKey(videoID), func() (any, error) {
		result, err := compute()
		if err != nil {
			return Result{}, err
		}
		c.Set(ctx, result)
		return result, nil
	})
	if err != nil {
		return Result{}, false, err
	}
	return val.(Result), false, nil
}

// Invalidate drops every cached tally, e.g. after the model is reloaded.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	if c.kv == nil {
		return nil
	}
	deleted, err := c.kv.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating analysis cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *ResultCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(videoID string) string {
	return keyPrefix + videoID
}
