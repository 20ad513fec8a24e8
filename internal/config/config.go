package config

import (
	"os"
	"strings"
	"time"

	"github.com/marketfold/shopedge/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port        string
	ServiceName string
	DatabaseURL string

	// Cache backend. When RedisAddr is empty the in-process TTL store is used.
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CacheSweepInterval time.Duration

	// Cache TTL tiers. Shorter TTLs for higher-volatility data.
	CartTTL      time.Duration // cart metadata
	CartItemsTTL time.Duration // cart line items
	CartTotalTTL time.Duration // cached cart total
	ProductTTL   time.Duration // product aggregates
	SearchTTL    time.Duration // search result pages
	TrendingTTL  time.Duration // trending product lists

	// Search result cache sizing (ristretto)
	SearchCacheMaxEntries int64

	// Admission control
	EnableRateLimit      bool
	RateLimitRequests    int           // requests allowed per client per window
	RateLimitWindow      time.Duration // fixed window length
	RateLimitGlobal      float64       // requests per second globally (0 disables)
	RateLimitGlobalBurst int

	// Auth
	PublicPathPrefixes []string // request paths exempt from authentication
	AdminToken         string   // shared token for admin endpoints; empty disables them

	// Trending refresh job
	TrendingRefreshInterval time.Duration
	TrendingSize            int
	DisableTrendingJob      bool

	// Search index circuit breaker
	IndexFailureThreshold int
	IndexBreakerTimeout   time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}
	cached = &Config{
		Port:        port,
		ServiceName: "shopedge",
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		RedisAddr:          strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            utils.GetEnvAsInt("REDIS_DB", 0),
		CacheSweepInterval: utils.GetEnvAsSeconds("CACHE_SWEEP_INTERVAL_SECONDS", time.Minute),

		// TTL tiers mirror the cache key namespaces
		CartTTL:      utils.GetEnvAsSeconds("CART_CACHE_TTL", time.Hour),
		CartItemsTTL: utils.GetEnvAsSeconds("CART_ITEMS_CACHE_TTL", 30*time.Minute),
		CartTotalTTL: utils.GetEnvAsSeconds("CART_TOTAL_CACHE_TTL", time.Hour),
		ProductTTL:   utils.GetEnvAsSeconds("PRODUCT_CACHE_TTL", 30*time.Minute),
		SearchTTL:    utils.GetEnvAsSeconds("SEARCH_CACHE_TTL", 15*time.Minute),
		TrendingTTL:  utils.GetEnvAsSeconds("TRENDING_CACHE_TTL", time.Hour),

		SearchCacheMaxEntries: int64(utils.GetEnvAsInt("SEARCH_CACHE_MAX_ENTRIES", 10000)),

		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		RateLimitRequests:    utils.GetEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:      utils.GetEnvAsSeconds("RATE_LIMIT_WINDOW_SECONDS", time.Minute),
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),

		PublicPathPrefixes: utils.GetEnvAsSlice("PUBLIC_PATH_PREFIXES", []string{
			"/health",
			"/metrics",
			"/api/products",
			"/api/search",
			"/api/users/register",
			"/api/users/login",
		}, ","),
		AdminToken: strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),

		TrendingRefreshInterval: utils.GetEnvAsSeconds("TRENDING_REFRESH_SECONDS", time.Hour),
		TrendingSize:            utils.GetEnvAsInt("TRENDING_SIZE", 10),
		DisableTrendingJob:      utils.GetEnvAsBool("DISABLE_TRENDING_JOB", false),

		IndexFailureThreshold: utils.GetEnvAsInt("INDEX_FAILURE_THRESHOLD", 5),
		IndexBreakerTimeout:   utils.GetEnvAsSeconds("INDEX_BREAKER_TIMEOUT_SECONDS", time.Minute),

		CORSAllowedOrigins: utils.GetEnvAsSlice("CORS_ALLOWED_ORIGINS", nil, ","),

		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
	}
	return cached
}

// Reset clears the cached config. Intended for tests.
func Reset() {
	cached = nil
}
