// Package respcache caches raw upstream responses under content-addressed keys.
package respcache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/justestif/spotigen/internal/kvstore"
	"github.com/justestif/spotigen/internal/logging"
	"github.com/justestif/spotigen/internal/metrics"
)

// FetchFunc produces the value for a cache miss. Returning nil bytes with a
// nil error means "nothing to cache".
type FetchFunc func(ctx context.Context) ([]byte, error)

// Cache is a read-through cache over the key-value store. Store failures
// never fail a lookup; they only cost a cache miss.
type Cache struct {
	kv      kvstore.Store
	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics records hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a Cache.
func New(kv kvstore.Store, opts ...Option) *Cache {
	c := &Cache{kv: kv}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Component(c.logger, "respcache")
	return c
}

// Key derives the cache key for params under prefix. Params are encoded as
// JSON with sorted keys, so equal maps always produce equal keys.
func Key(prefix string, params map[string]string) string {
	// encoding/json sorts map keys.
	b, _ := json.Marshal(params)
	sum := sha1.Sum(b)
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Fetch returns the cached value for (prefix, params) or calls fetch and
// stores its result for ttl.
func (c *Cache) Fetch(ctx context.Context, prefix string, params map[string]string, ttl time.Duration, fetch FetchFunc) ([]byte, error) {
	key := Key(prefix, params)

	cached, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		c.metrics.Cache(prefix, true)
		return cached, nil
	case !errors.Is(err, kvstore.ErrNotFound):
		c.logger.Warn("cache read failed", "key", key, "err", err)
	}
	c.metrics.Cache(prefix, false)

	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	kvstore.BestEffort(c.logger, c.metrics, "cache_write", func() error {
		return c.kv.Set(ctx, key, value, ttl)
	})
	return value, nil
}
