package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/stocksense/stocksense-go/core"
)

// Cached wraps a connector with a TTL cache. Fetches are idempotent per
// (subject, window), so serving a cached result is indistinguishable from a
// second upstream call without the rate-limit exposure.
//
// Errors are never cached; a degraded source gets retried on the next run.
type Cached struct {
	inner Connector
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCached builds the caching wrapper.
func NewCached(inner Connector, ttl time.Duration) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 24, // ~16MB of observation slices
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache, ttl: ttl}, nil
}

func (c *Cached) Source() core.Source       { return c.inner.Source() }
func (c *Cached) Dimension() core.Dimension { return c.inner.Dimension() }

// Fetch serves from cache when possible, otherwise delegates and caches the
// successful result.
func (c *Cached) Fetch(ctx context.Context, subject core.Subject, window Window) ([]core.Observation, error) {
	key := fmt.Sprintf("%s|%s|%s", c.inner.Source(), subject.Symbol, window.Key())

	if v, ok := c.cache.Get(key); ok {
		if obs, ok := v.([]core.Observation); ok {
			return obs, nil
		}
	}

	obs, err := c.inner.Fetch(ctx, subject, window)
	if err != nil {
		return nil, err
	}

	c.cache.SetWithTTL(key, obs, int64(len(obs)+1), c.ttl)
	// Ristretto applies sets asynchronously; wait so a fetch immediately
	// after this one hits the cache.
	c.cache.Wait()

	return obs, nil
}

// Close releases the cache.
func (c *Cached) Close() {
	c.cache.Close()
}
