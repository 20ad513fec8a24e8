// Package catalog owns the product aggregate: persistence, the product
// cache tier, search index upkeep, and the product event stream.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/marketfold/shopedge/internal/cache"
	"github.com/marketfold/shopedge/internal/config"
	"github.com/marketfold/shopedge/internal/events"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/tracing"
)

// Service coordinates the product store with its caches and collaborators.
type Service struct {
	store   Store
	cache   *cache.Coordinator
	index   Indexer
	results ResultInvalidator
	events  events.Publisher
	cfg     *config.Config
	log     *slog.Logger
}

// NewService creates a catalog service. index and results may be nil when the
// search side is not wired, for example in focused tests.
func NewService(store Store, coord *cache.Coordinator, index Indexer, results ResultInvalidator, pub events.Publisher, cfg *config.Config) *Service {
	return &Service{
		store:   store,
		cache:   coord,
		index:   index,
		results: results,
		events:  pub,
		cfg:     cfg,
		log:     logger.WithComponent("catalog"),
	}
}

// Create persists a new product and registers it with the search side.
func (s *Service) Create(ctx context.Context, p *Product) error {
	ctx, span := tracing.StartSpan(ctx, "catalog.Create")
	defer span.End()

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = StatusActive
	}

	if err := s.store.Create(ctx, p); err != nil {
		return err
	}

	s.afterMutation(ctx, *p, "product-created", false)
	return nil
}

// Get returns a product by id, serving from the product cache tier when the
// entry is fresh.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	p, _, err := cache.GetOrLoadJSON(ctx, s.cache, cache.ProductKey(id), s.cfg.ProductTTL,
		func(ctx context.Context) (*Product, error) {
			return s.store.GetByID(ctx, id)
		})
	return p, err
}

// Update commits the new product state, then drops the stale cached views.
// The commit always happens first so a failed write never leaves the cache
// holding state the database rejected.
func (s *Service) Update(ctx context.Context, p *Product) error {
	ctx, span := tracing.StartSpan(ctx, "catalog.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", p.ID))

	p.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return err
	}

	s.afterMutation(ctx, *p, "product-updated", false)
	return nil
}

// AdjustStock applies a stock delta and flips status between ACTIVE and
// OUT_OF_STOCK at the zero boundary.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int) (*Product, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.StockQuantity += delta
	if p.StockQuantity < 0 {
		p.StockQuantity = 0
	}
	switch {
	case p.StockQuantity == 0 && p.Status == StatusActive:
		p.Status = StatusOutOfStock
	case p.StockQuantity > 0 && p.Status == StatusOutOfStock:
		p.Status = StatusActive
	}

	if err := s.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes the product and everything derived from it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "catalog.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id))

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.afterMutation(ctx, *p, "product-deleted", true)
	return nil
}

// List returns the full catalog, uncached. Listing is an admin path; the hot
// read paths are Get, Trending, and search.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.store.List(ctx)
}

// Trending returns the current top sellers, cached for the trending TTL.
func (s *Service) Trending(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = s.cfg.TrendingSize
	}
	items, _, err := cache.GetOrLoadJSON(ctx, s.cache, cache.TrendingKey(limit), s.cfg.TrendingTTL,
		func(ctx context.Context) ([]Product, error) {
			return s.store.Trending(ctx, limit)
		})
	return items, err
}

// afterMutation runs the shared post-commit fanout: cache invalidation,
// search upkeep, and the product event.
func (s *Service) afterMutation(ctx context.Context, p Product, eventType string, removed bool) {
	ctx, span := tracing.StartSpan(ctx, "catalog.afterMutation")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", p.ID),
		attribute.String("product.event", eventType),
	)

	s.cache.Invalidate(ctx, cache.ProductKey(p.ID))
	s.cache.InvalidatePrefix(ctx, cache.NamespaceTrending+":")

	// Any catalog change can alter any result page, so cached pages are
	// dropped wholesale rather than recomputed.
	if s.results != nil {
		s.results.Clear()
	}

	if s.index != nil {
		var err error
		if removed {
			err = s.index.Remove(ctx, p.ID)
		} else {
			err = s.index.IndexProduct(ctx, p)
		}
		if err != nil {
			s.log.WarnContext(ctx, "search index update failed", "product_id", p.ID, "error", err)
		}
	}

	if s.events != nil {
		s.events.Publish(ctx, events.TopicProduct, eventType, productEvent{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Status:    p.Status,
		})
	}
}

type productEvent struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}
