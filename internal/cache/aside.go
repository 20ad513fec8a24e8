package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/metrics"
)

// LoaderFunc loads an aggregate from the authoritative store on a cache miss.
type LoaderFunc func(ctx context.Context) ([]byte, error)

// Coordinator implements the cache-aside policy over a Store. Store faults
// degrade reads to the loader and turn writes into no-ops; they are never
// surfaced to callers.
type Coordinator struct {
	store Store
	log   *slog.Logger
}

// NewCoordinator creates a coordinator over the given store.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{
		store: store,
		log:   logger.WithComponent("cache"),
	}
}

// Store exposes the underlying store, mainly for admin endpoints.
func (c *Coordinator) Store() Store {
	return c.store
}

// GetOrLoad returns the cached value for key, or invokes load and populates
// the cache with the result. The second return value reports whether the
// value came from the cache.
func (c *Coordinator) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load LoaderFunc) ([]byte, bool, error) {
	ns := Namespace(key)
	val, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheHits.WithLabelValues(ns).Inc()
		return val, true, nil
	case errors.Is(err, ErrMiss):
		metrics.CacheMisses.WithLabelValues(ns).Inc()
	case errors.Is(err, ErrUnavailable):
		metrics.CacheUnavailable.WithLabelValues("get").Inc()
		c.log.WarnContext(ctx, "cache unreachable, loading from store", "key", key)
	default:
		c.log.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}

	loaded, loadErr := load(ctx)
	if loadErr != nil {
		return nil, false, loadErr
	}

	// Only populate after a real miss; when the store is down the Set would
	// fail anyway.
	if errors.Is(err, ErrMiss) {
		if setErr := c.store.Set(ctx, key, loaded, ttl); setErr != nil {
			metrics.CacheUnavailable.WithLabelValues("set").Inc()
			c.log.WarnContext(ctx, "cache populate skipped", "key", key, "error", setErr)
		}
	}
	return loaded, false, nil
}

// WriteThrough stores the new aggregate state after the authoritative store
// has been updated. A store fault is logged and swallowed: the entry either
// keeps its old TTL-bounded value or stays absent, both of which are safe.
func (c *Coordinator) WriteThrough(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		metrics.CacheUnavailable.WithLabelValues("set").Inc()
		c.log.WarnContext(ctx, "write-through skipped", "key", key, "error", err)
	}
}

// Invalidate removes the given keys in a single store call, so composite
// aggregates lose all of their cached sub-views together.
func (c *Coordinator) Invalidate(ctx context.Context, keys ...string) {
	if err := c.store.Delete(ctx, keys...); err != nil {
		metrics.CacheUnavailable.WithLabelValues("delete").Inc()
		c.log.WarnContext(ctx, "invalidate skipped", "keys", keys, "error", err)
	}
}

// InvalidatePrefix removes every key in a namespace.
func (c *Coordinator) InvalidatePrefix(ctx context.Context, prefix string) {
	if err := c.store.DeleteByPrefix(ctx, prefix); err != nil {
		metrics.CacheUnavailable.WithLabelValues("delete").Inc()
		c.log.WarnContext(ctx, "prefix invalidate skipped", "prefix", prefix, "error", err)
	}
}

// GetOrLoadJSON is a typed wrapper over Coordinator.GetOrLoad for aggregates
// serialized as JSON.
func GetOrLoadJSON[T any](ctx context.Context, c *Coordinator, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T
	raw, cached, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, false, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		// A corrupt entry is dropped and reloaded on the next read.
		c.Invalidate(ctx, key)
		if !cached {
			return zero, false, err
		}
		v, loadErr := load(ctx)
		return v, false, loadErr
	}
	return out, cached, nil
}

// WriteThroughJSON marshals value and writes it through under key.
func WriteThroughJSON(ctx context.Context, c *Coordinator, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.WarnContext(ctx, "write-through marshal failed", "key", key, "error", err)
		return
	}
	c.WriteThrough(ctx, key, raw, ttl)
}
