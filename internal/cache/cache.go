// Package cache provides an optional Redis read-through cache for synonym
// lookups. Every dictionary mutation flushes the whole namespace, so a
// cached entry never outlives the partition it was computed from.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	pkgredis "github.com/lexgrid/synonymd/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "synonyms:"

// Store is the key-value backend for the cache. pkg/redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// LookupCache caches Get(word) results in Redis with a TTL.
type LookupCache struct {
	client Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64

	// epoch counts invalidations. A compute that started before a flush
	// must not store its result afterwards; comparing the epoch around the
	// compute catches that.
	epoch atomic.Uint64
}

// New creates a LookupCache backed by the given store.
func New(client Store, ttl time.Duration) *LookupCache {
	return &LookupCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "lookup-cache"),
	}
}

// Get returns the cached synonym list for a canonical word, if present.
func (c *LookupCache) Get(ctx context.Context, word string) ([]string, bool) {
	data, err := c.client.Get(ctx, keyPrefix+word)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "word", word, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var synonyms []string
	if err := json.Unmarshal([]byte(data), &synonyms); err != nil {
		c.logger.Error("cache unmarshal failed", "word", word, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "word", word)
	return synonyms, true
}

// Set stores the synonym list for a canonical word. Failures are logged and
// swallowed; the cache is best-effort.
func (c *LookupCache) Set(ctx context.Context, word string, synonyms []string) {
	data, err := json.Marshal(synonyms)
	if err != nil {
		c.logger.Error("cache marshal failed", "word", word, "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+word, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "word", word, "error", err)
	}
}

// GetOrCompute returns the cached synonyms for word, or computes and caches
// them. Concurrent misses for the same word are collapsed into a single
// compute via singleflight. A result computed against a partition that has
// since been mutated is returned to the caller but never stored.
func (c *LookupCache) GetOrCompute(ctx context.Context, word string, computeFn func() []string) ([]string, bool) {
	if synonyms, ok := c.Get(ctx, word); ok {
		return synonyms, true
	}
	result, _, _ := c.group.Do(word, func() (any, error) {
		epoch := c.epoch.Load()
		synonyms := computeFn()
		if c.epoch.Load() != epoch {
			// A mutation flushed the cache while the compute was in
			// flight; the result may predate it.
			return synonyms, nil
		}
		c.Set(ctx, word, synonyms)
		if c.epoch.Load() != epoch {
			// The flush raced with the write above and may have run
			// before it landed.
			if err := c.client.Del(ctx, keyPrefix+word); err != nil {
				c.logger.Error("cache delete failed", "word", word, "error", err)
			}
		}
		return synonyms, nil
	})
	return result.([]string), false
}

// Invalidate removes every cached lookup. Called on each mutation, before
// the write is acknowledged. The epoch is bumped first so an in-flight
// compute cannot store a result read against the old partition.
func (c *LookupCache) Invalidate(ctx context.Context) error {
	c.epoch.Add(1)
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return err
	}
	c.logger.Debug("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counters.
func (c *LookupCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
