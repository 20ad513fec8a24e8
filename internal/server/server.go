// Package server assembles the application: cache backend selection,
// persistence, services, background jobs, and the HTTP server.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/marketfold/shopedge/internal/api"
	"github.com/marketfold/shopedge/internal/auth"
	"github.com/marketfold/shopedge/internal/cache"
	"github.com/marketfold/shopedge/internal/cart"
	"github.com/marketfold/shopedge/internal/catalog"
	"github.com/marketfold/shopedge/internal/config"
	"github.com/marketfold/shopedge/internal/events"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/notify"
	"github.com/marketfold/shopedge/internal/order"
	"github.com/marketfold/shopedge/internal/postgres"
	"github.com/marketfold/shopedge/internal/ratelimit"
	"github.com/marketfold/shopedge/internal/search"
)

// Server owns the long-lived application state.
type Server struct {
	cfg     *config.Config
	db      *sql.DB
	store   cache.Store
	results *cache.ResultCache
	bus     *events.Bus

	catalog *catalog.Service
	cart    *cart.Service
	orders  *order.Service
	search  *search.Service

	trendingJob *catalog.TrendingJob
	relay       *notify.Relay
	httpServer  *http.Server
}

// New builds the application from configuration. With no DATABASE_URL the
// in-memory stores back a cache-only demo mode; with no REDIS_ADDR the
// in-process TTL store replaces Redis.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg, bus: events.NewBus()}

	store, err := newCacheStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.store = store
	coord := cache.NewCoordinator(store)

	s.results, err = cache.NewResultCache(cfg.SearchCacheMaxEntries, cfg.SearchTTL)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	productStore, cartStore, orderStore, err := s.newDomainStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	index := search.NewMemoryIndex()
	if err := seedIndex(ctx, productStore, index); err != nil {
		return nil, fmt.Errorf("seed search index: %w", err)
	}
	s.catalog = catalog.NewService(productStore, coord, index, s.results, s.bus, cfg)
	s.search = search.NewService(s.catalog, index, s.results, cfg)
	s.cart = cart.NewService(cartStore, coord, s.catalog, s.bus, cfg)
	s.orders = order.NewService(orderStore, s.cart, s.bus)

	if !cfg.DisableTrendingJob {
		s.trendingJob = catalog.NewTrendingJob(s.catalog)
	}
	s.relay = notify.NewRelay(notify.NewLogSender("email"))

	var limiter *ratelimit.Limiter
	if cfg.EnableRateLimit {
		limiter = ratelimit.New(store, cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	router := api.NewRouter(api.Deps{
		Catalog:     s.catalog,
		Cart:        s.cart,
		Orders:      s.orders,
		Search:      s.search,
		Coordinator: coord,
		Results:     s.results,
		Bus:         s.bus,
		Limiter:     limiter,
		Validator:   auth.StaticValidator{},
		Config:      cfg,
	})

	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // websocket feed writes indefinitely
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// seedIndex loads the existing catalog into the index. Without this a
// restart serves empty result pages until every product is mutated, since an
// empty index answers queries successfully.
func seedIndex(ctx context.Context, store catalog.Store, index *search.MemoryIndex) error {
	products, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if err := index.IndexProduct(ctx, p); err != nil {
			return err
		}
	}
	if len(products) > 0 {
		logger.Info("search index seeded", "products", len(products))
	}
	return nil
}

func newCacheStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-process TTL cache store")
		return cache.NewMemory(cfg.CacheSweepInterval), nil
	}

	store := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := store.Ping(ctx); err != nil {
		// Degraded start is fine: the coordinator treats an unreachable
		// store as a pass-through and the limiter fails open.
		logger.Warn("redis unreachable at startup, continuing degraded", "addr", cfg.RedisAddr, "error", err)
	} else {
		logger.Info("connected to redis cache store", "addr", cfg.RedisAddr)
	}
	return store, nil
}

func (s *Server) newDomainStores(ctx context.Context, cfg *config.Config) (catalog.Store, cart.Store, order.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("no database configured, using in-memory stores")
		return catalog.NewMemoryStore(), cart.NewMemoryStore(), order.NewMemoryStore(), nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	s.db = db
	return postgres.NewProductStore(db), postgres.NewCartStore(db), postgres.NewOrderStore(db), nil
}

// Start runs the background jobs and serves HTTP until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s.trendingJob != nil {
		go s.trendingJob.Run(ctx)
	}
	go s.relay.Run(ctx, s.bus)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests and releases resources.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)

	if closer, ok := s.store.(interface{ Close() }); ok {
		closer.Close()
	}
	s.results.Close()
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
