// Package cache memoizes aggregation windows in a bounded local LRU with TTL
// expiry, optionally backed by a shared remote tier such as Redis.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"kwtrack/internal/models"
)

// RemoteStore is the shared tier. fiber.Storage implementations such as
// github.com/gofiber/storage/redis satisfy it. Get returns nil, nil for a missing key.
type RemoteStore interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
}

type entry struct {
	window    *models.AggregationWindow
	expiresAt time.Time
}

// remoteRecord is the JSON layout written to the remote tier.
type remoteRecord struct {
	Window    *models.AggregationWindow `json:"window"`
	ExpiresAt time.Time                 `json:"expires_at"`
}

// Cache maps aggregation keys to windows. It is safe for concurrent use.
type Cache struct {
	local  *lru.Cache[string, entry]
	remote RemoteStore
	ttl    time.Duration
	now    func() time.Time
	prefix string
}

// Option configures a Cache.
type Option func(*Cache)

// WithRemote adds a shared tier consulted on local misses.
func WithRemote(store RemoteStore) Option {
	return func(c *Cache) { c.remote = store }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithPrefix namespaces keys written to the remote tier.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// New creates a cache holding at most maxEntries windows locally, each for at most ttl.
func New(maxEntries int, ttl time.Duration, opts ...Option) (*Cache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %v", ttl)
	}
	local, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}

	c := &Cache{
		local:  local,
		ttl:    ttl,
		now:    time.Now,
		prefix: "kwtrack:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the window cached under key unless it has expired.
func (c *Cache) Get(key string) (*models.AggregationWindow, bool) {
	now := c.now()
	if e, ok := c.local.Get(key); ok {
		if now.Before(e.expiresAt) {
			return e.window, true
		}
		c.local.Remove(key)
	}

	if c.remote == nil {
		return nil, false
	}

	raw, err := c.remote.Get(c.prefix + key)
	if err != nil {
		slog.Warn("failed to read shared cache", "key", key, "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var rec remoteRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Window == nil {
		slog.Warn("discarding malformed shared cache entry", "key", key, "error", err)
		return nil, false
	}
	if !now.Before(rec.ExpiresAt) {
		return nil, false
	}

	c.local.Add(key, entry{window: rec.Window, expiresAt: rec.ExpiresAt})
	return rec.Window, true
}

// Set caches w under w.Key for the cache TTL, counted from w.ComputedAt when
// it is set. A window already older than the TTL is not cached. The local tier
// is always written; an error reports a failed remote write.
func (c *Cache) Set(w *models.AggregationWindow) error {
	now := c.now()
	expiresAt := now.Add(c.ttl)
	if !w.ComputedAt.IsZero() {
		if capped := w.ComputedAt.Add(c.ttl); capped.Before(expiresAt) {
			expiresAt = capped
		}
	}
	if !now.Before(expiresAt) {
		return nil
	}
	c.local.Add(w.Key, entry{window: w, expiresAt: expiresAt})

	if c.remote == nil {
		return nil
	}
	raw, err := json.Marshal(remoteRecord{Window: w, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("failed to encode window: %w", err)
	}
	if err := c.remote.Set(c.prefix+w.Key, raw, expiresAt.Sub(now)); err != nil {
		return fmt.Errorf("failed to write shared cache: %w", err)
	}
	return nil
}

// Delete drops key from both tiers.
func (c *Cache) Delete(key string) error {
	c.local.Remove(key)
	if c.remote == nil {
		return nil
	}
	return c.remote.Delete(c.prefix + key)
}

// Len returns the number of locally cached entries, including expired ones
// not yet evicted.
func (c *Cache) Len() int {
	return c.local.Len()
}

// Shared reports whether a remote tier is configured.
func (c *Cache) Shared() bool {
	return c.remote != nil
}
