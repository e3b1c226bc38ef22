// Package cache implements the namespaced read-through cache shared by the
// user, ticket and preference stores. Content is a derived, disposable view
// of the document store: every failure path degrades to a miss so callers
// always fall back to the authoritative source.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of cache hits per namespace.",
	}, []string{"namespace"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of cache misses per namespace.",
	}, []string{"namespace"})

	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_errors_total",
		Help: "Total number of cache backend errors per operation.",
	}, []string{"op"})
)

// HashClient is the hash-oriented key/value contract the cache is built on:
// one hash per namespace, one field per entity id, TTL on the whole key.
// The production implementation is Redis; tests use an in-memory fake.
type HashClient interface {
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key, field, value string) error
	HDel(ctx context.Context, key, field string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Cache is the namespaced JSON cache. When disabled, Get always misses and
// Set/Delete do nothing, so consumers behave identically minus the latency
// win.
type Cache struct {
	client  HashClient
	prefix  string
	enabled bool
	logger  *slog.Logger
}

func New(client HashClient, prefix string, enabled bool, logger *slog.Logger) *Cache {
	return &Cache{client: client, prefix: prefix, enabled: enabled, logger: logger}
}

// Enabled reports whether caching is globally on.
func (c *Cache) Enabled() bool { return c.enabled }

func (c *Cache) hashKey(namespace string) string { return c.prefix + namespace }

// Get reads the cached value for (namespace, key) into dest and reports
// whether it was found. Backend errors and corrupt entries are logged and
// reported as misses, never as failures.
func (c *Cache) Get(ctx context.Context, namespace, key string, dest any) bool {
	if !c.enabled {
		return false
	}
	raw, ok, err := c.client.HGet(ctx, c.hashKey(namespace), key)
	if err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn("cache read failed", "namespace", namespace, "key", key, "error", err)
		return false
	}
	if !ok {
		cacheMisses.WithLabelValues(namespace).Inc()
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss", "namespace", namespace, "key", key, "error", err)
		c.Delete(ctx, namespace, key)
		return false
	}
	cacheHits.WithLabelValues(namespace).Inc()
	return true
}

// Set stores value under (namespace, key). A ttl of zero caches until the
// entry is explicitly invalidated; a positive ttl is applied to the whole
// namespace hash and re-armed on every write. Serialization and backend
// errors are logged and skipped so they never abort the caller's primary
// operation.
func (c *Cache) Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) {
	if !c.enabled {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache serialization failed, skipping", "namespace", namespace, "key", key, "error", err)
		return
	}
	hk := c.hashKey(namespace)
	if err := c.client.HSet(ctx, hk, key, string(raw)); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn("cache write failed", "namespace", namespace, "key", key, "error", err)
		return
	}
	if ttl > 0 {
		if err := c.client.Expire(ctx, hk, ttl); err != nil {
			cacheErrors.WithLabelValues("expire").Inc()
			c.logger.Warn("cache expire failed", "namespace", namespace, "error", err)
		}
	}
}

// Delete removes (namespace, key). Idempotent; deleting an absent entry is
// not an error.
func (c *Cache) Delete(ctx context.Context, namespace, key string) {
	if !c.enabled {
		return
	}
	if err := c.client.HDel(ctx, c.hashKey(namespace), key); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		c.logger.Warn("cache delete failed", "namespace", namespace, "key", key, "error", err)
	}
}
