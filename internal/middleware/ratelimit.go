package middleware

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketfold/shopedge/internal/apierr"
	"github.com/marketfold/shopedge/internal/metrics"
	"github.com/marketfold/shopedge/internal/ratelimit"
)

// RateLimiter enforces admission control for the API: an optional global
// token bucket protecting the process, then the per-client fixed window.
type RateLimiter struct {
	global *rate.Limiter
	client *ratelimit.Limiter
}

// NewRateLimiter creates the middleware. globalRate of 0 disables the global
// bucket; client may be nil to disable per-client limiting.
func NewRateLimiter(globalRate float64, globalBurst int, client *ratelimit.Limiter) *RateLimiter {
	rl := &RateLimiter{client: client}
	if globalRate > 0 {
		rl.global = rate.NewLimiter(rate.Limit(globalRate), globalBurst)
	}
	return rl
}

// Limit returns the middleware handler.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.global != nil && !rl.global.Allow() {
			metrics.RateLimitRejections.Inc()
			apierr.WriteErrorWithContext(w, r, apierr.RateLimitGlobal())
			return
		}

		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		decision := rl.client.Allow(r.Context(), ClientKey(r))

		// Limit headers go on every response so clients can pace themselves
		// before hitting the wall.
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			apierr.WriteErrorWithContext(w, r, apierr.RateLimitClient())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the caller for rate limiting. Proxy headers take
// precedence over the socket address so limits follow the real client
// through load balancers.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first entry is the originating client.
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
