// Package api builds the HTTP surface: routing, the middleware chain, and
// the handler wiring.
package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marketfold/shopedge/internal/api/handlers"
	"github.com/marketfold/shopedge/internal/auth"
	"github.com/marketfold/shopedge/internal/cache"
	"github.com/marketfold/shopedge/internal/cart"
	"github.com/marketfold/shopedge/internal/catalog"
	"github.com/marketfold/shopedge/internal/config"
	"github.com/marketfold/shopedge/internal/events"
	"github.com/marketfold/shopedge/internal/middleware"
	"github.com/marketfold/shopedge/internal/order"
	"github.com/marketfold/shopedge/internal/ratelimit"
	"github.com/marketfold/shopedge/internal/search"
)

// Deps carries the collaborators the router needs.
type Deps struct {
	Catalog     *catalog.Service
	Cart        *cart.Service
	Orders      *order.Service
	Search      *search.Service
	Coordinator *cache.Coordinator
	Results     *cache.ResultCache
	Bus         *events.Bus
	Limiter     *ratelimit.Limiter
	Validator   auth.Validator
	Config      *config.Config
}

// NewRouter builds the router with the full middleware chain. Order matters:
// request ID first so every later stage logs it, recovery before anything
// that can panic, admission control before authentication so rejected floods
// never reach the validator.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RecoverWithSentry)
	r.Use(middleware.CORS(corsConfig(d.Config)))
	r.Use(middleware.Compress)
	r.Use(middleware.ValidateRequestBody)
	r.Use(middleware.Logging)
	if d.Config.EnableRateLimit {
		rl := middleware.NewRateLimiter(d.Config.RateLimitGlobal, d.Config.RateLimitGlobalBurst, d.Limiter)
		r.Use(rl.Limit)
	}
	r.Use(middleware.Auth(d.Validator, d.Config.PublicPathPrefixes))

	health := handlers.NewHealthHandler(d.Search)
	r.HandleFunc("/health", health.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Catalog
	products := handlers.NewProductHandler(d.Catalog)
	r.HandleFunc("/api/products", products.List).Methods("GET")
	r.HandleFunc("/api/products", products.Create).Methods("POST")
	r.HandleFunc("/api/products/trending", products.Trending).Methods("GET")
	r.HandleFunc("/api/products/{id:[0-9]+}", products.Get).Methods("GET")
	r.HandleFunc("/api/products/{id:[0-9]+}", products.Update).Methods("PUT")
	r.HandleFunc("/api/products/{id:[0-9]+}", products.Delete).Methods("DELETE")
	r.HandleFunc("/api/products/{id:[0-9]+}/stock", products.AdjustStock).Methods("POST")

	// Search
	searchHandler := handlers.NewSearchHandler(d.Search)
	r.HandleFunc("/api/search", searchHandler.Search).Methods("GET")

	// Cart
	carts := handlers.NewCartHandler(d.Cart)
	r.HandleFunc("/api/cart/{userId:[0-9]+}", carts.Get).Methods("GET")
	r.HandleFunc("/api/cart/{userId:[0-9]+}", carts.Clear).Methods("DELETE")
	r.HandleFunc("/api/cart/{userId:[0-9]+}/items", carts.Items).Methods("GET")
	r.HandleFunc("/api/cart/{userId:[0-9]+}/items", carts.AddItem).Methods("POST")
	r.HandleFunc("/api/cart/{userId:[0-9]+}/items/{productId:[0-9]+}", carts.UpdateItem).Methods("PUT")
	r.HandleFunc("/api/cart/{userId:[0-9]+}/items/{productId:[0-9]+}", carts.RemoveItem).Methods("DELETE")
	r.HandleFunc("/api/cart/{userId:[0-9]+}/total", carts.Total).Methods("GET")

	// Orders
	orders := handlers.NewOrderHandler(d.Orders)
	r.HandleFunc("/api/orders/{userId:[0-9]+}", orders.History).Methods("GET")
	r.HandleFunc("/api/orders/{userId:[0-9]+}/checkout", orders.Checkout).Methods("POST")

	// Cache administration
	admin := handlers.NewCacheAdminHandler(d.Coordinator, d.Results)
	r.HandleFunc("/api/admin/cache/stats",
		handlers.RequireAdmin(d.Config.AdminToken, admin.Stats)).Methods("GET")
	r.HandleFunc("/api/admin/cache/invalidate",
		handlers.RequireAdmin(d.Config.AdminToken, admin.Invalidate)).Methods("POST")

	// Live event feed
	eventsHandler := handlers.NewEventsHandler(d.Bus)
	r.HandleFunc("/api/events/live", eventsHandler.Live).Methods("GET")

	return r
}

func corsConfig(cfg *config.Config) *middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		c.AllowedOrigins = cfg.CORSAllowedOrigins
	}
	return c
}
