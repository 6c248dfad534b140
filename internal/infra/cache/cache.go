package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/sous-ai/sous/internal/infra/metrics"
)

// Cache is the two-level response cache. Reads check the in-process
// layer, then the durable layer (promoting hits); writes go through
// both. Backend failures never fail a request: any error on the durable
// layer degrades to a miss and is logged.
type Cache struct {
	mem     *memoryLayer
	durable *durableLayer
	group   singleflight.Group
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// Options configures a Cache. Zero values get safe defaults.
type Options struct {
	MaxMemEntries int // in-process entry cap; default 512
}

// New builds a Cache over the given database. db may not be nil; the
// response_cache table must already be migrated.
func New(db *sql.DB, m *metrics.Metrics, log zerolog.Logger, opts Options) (*Cache, error) {
	if opts.MaxMemEntries <= 0 {
		opts.MaxMemEntries = 512
	}
	mem, err := newMemoryLayer(opts.MaxMemEntries)
	if err != nil {
		return nil, err
	}
	return &Cache{
		mem:     mem,
		durable: &durableLayer{db: db},
		metrics: m,
		log:     log.With().Str("component", "cache").Logger(),
		now:     time.Now,
	}, nil
}

// Get returns the cached value for (taskType, input, tier, params), or
// false on a miss. A durable-layer failure is treated as a miss.
func (c *Cache) Get(ctx context.Context, taskType, input, tier string, params Params) ([]byte, bool) {
	key := Key(taskType, input, tier, params)
	now := c.now()

	if value, ok := c.mem.get(key, now); ok {
		c.metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
		return value, true
	}

	value, expiry, ok, err := c.durable.get(ctx, key, now)
	if err != nil {
		c.log.Warn().Err(err).Str("task", taskType).Msg("durable cache read failed, treating as miss")
		c.metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	if !ok {
		c.metrics.CacheMissesTotal.Inc()
		return nil, false
	}

	// Promote so the next read is served from memory, keeping the entry's
	// own expiry so promotion can never extend its lifetime.
	c.mem.set(key, value, expiry)
	c.metrics.CacheHitsTotal.WithLabelValues("durable").Inc()
	return value, true
}

// Set writes value through both layers with the given TTL.
// Durable-layer failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, taskType, input, tier string, params Params, value []byte, ttl time.Duration) {
	key := Key(taskType, input, tier, params)
	now := c.now()
	expiresAt := now.Add(ttl)

	c.mem.set(key, value, expiresAt)
	if err := c.durable.set(ctx, key, taskType, tier, value, now, expiresAt); err != nil {
		c.log.Warn().Err(err).Str("task", taskType).Msg("durable cache write failed")
		return
	}
	c.metrics.CacheWritesTotal.Inc()
}

// GetOrCompute returns the cached value or runs compute exactly once per
// key across concurrent callers, writing the result through on success.
// compute errors are returned to every waiting caller and nothing is
// cached.
func (c *Cache) GetOrCompute(ctx context.Context, taskType, input, tier string, params Params, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if value, ok := c.Get(ctx, taskType, input, tier, params); ok {
		return value, true, nil
	}

	key := Key(taskType, input, tier, params)
	value, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if v, ok := c.Get(ctx, taskType, input, tier, params); ok {
			return v, nil
		}
		v, computeErr := compute(ctx)
		if computeErr != nil {
			return nil, computeErr
		}
		c.Set(ctx, taskType, input, tier, params, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return value.([]byte), false, nil
}

// Invalidate purges durable entries whose task type matches the SQL LIKE
// pattern, and drops the whole in-process layer. Returns the number of
// durable rows removed.
func (c *Cache) Invalidate(ctx context.Context, pattern string) (int64, error) {
	c.mem.purge()
	return c.durable.invalidate(ctx, pattern)
}

// PurgeExpired removes expired durable rows. Intended for a periodic
// maintenance goroutine.
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	return c.durable.purgeExpired(ctx, c.now())
}
