// Package ratelimit implements per-client fixed-window admission control
// over a shared TTL store.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/marketfold/shopedge/internal/cache"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/metrics"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // only set on rejection
}

// Limiter counts requests per client key in discrete, non-overlapping
// windows. Each client gets an independent window; the counter resets the
// instant the previous window expires, never before.
type Limiter struct {
	store  cache.Store
	limit  int
	window time.Duration
	log    *slog.Logger
}

// New creates a limiter allowing limit requests per window per client key.
func New(store cache.Store, limit int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		log:    logger.WithComponent("ratelimit"),
	}
}

// Limit returns the configured per-window request limit.
func (l *Limiter) Limit() int {
	return l.limit
}

// Allow records a request for clientKey and decides whether to admit it.
// A store outage fails open: admission control must not amplify a cache
// outage into a full outage.
func (l *Limiter) Allow(ctx context.Context, clientKey string) Decision {
	key := cache.RateLimitKey(clientKey)

	count, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		metrics.RateLimitFailOpens.Inc()
		l.log.WarnContext(ctx, "rate limit store unreachable, failing open", "client", clientKey, "error", err)
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - 1}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if count > int64(l.limit) {
		metrics.RateLimitRejections.Inc()
		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: l.retryAfter(ctx, key),
		}
	}

	return Decision{Allowed: true, Limit: l.limit, Remaining: remaining}
}

func (l *Limiter) retryAfter(ctx context.Context, key string) time.Duration {
	exp, ok, err := l.store.ExpireAt(ctx, key)
	if err != nil || !ok {
		return l.window
	}
	d := time.Until(exp)
	if d < 0 {
		d = 0
	}
	return d
}
