package cart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/marketfold/shopedge/internal/cache"
	"github.com/marketfold/shopedge/internal/catalog"
	"github.com/marketfold/shopedge/internal/config"
	"github.com/marketfold/shopedge/internal/events"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/tracing"
)

// ProductGetter resolves products for line item enrichment.
type ProductGetter interface {
	Get(ctx context.Context, id int64) (*catalog.Product, error)
}

// Service coordinates the cart store with its cache tiers and the cart event
// stream. Reads are cache-aside; mutations commit to the store first, then
// refresh all three cached views together.
type Service struct {
	store    Store
	cache    *cache.Coordinator
	products ProductGetter
	events   events.Publisher
	cfg      *config.Config
	log      *slog.Logger
}

// NewService creates a cart service.
func NewService(store Store, coord *cache.Coordinator, products ProductGetter, pub events.Publisher, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		cache:    coord,
		products: products,
		events:   pub,
		cfg:      cfg,
		log:      logger.WithComponent("cart"),
	}
}

// Get returns the user's cart, creating an empty one on first touch.
func (s *Service) Get(ctx context.Context, userID int64) (*Cart, error) {
	c, _, err := cache.GetOrLoadJSON(ctx, s.cache, cache.CartKey(userID), s.cfg.CartTTL,
		func(ctx context.Context) (*Cart, error) {
			return s.store.GetByUserID(ctx, userID)
		})
	return c, err
}

// Items returns the cart's line items from the item cache tier.
func (s *Service) Items(ctx context.Context, userID int64) ([]Item, error) {
	items, _, err := cache.GetOrLoadJSON(ctx, s.cache, cache.CartItemsKey(userID), s.cfg.CartItemsTTL,
		func(ctx context.Context) ([]Item, error) {
			c, err := s.store.GetByUserID(ctx, userID)
			if err != nil {
				return nil, err
			}
			return c.Items, nil
		})
	return items, err
}

// Total returns the cart total from the total cache tier.
func (s *Service) Total(ctx context.Context, userID int64) (decimal.Decimal, error) {
	total, _, err := cache.GetOrLoadJSON(ctx, s.cache, cache.CartTotalKey(userID), s.cfg.CartTotalTTL,
		func(ctx context.Context) (decimal.Decimal, error) {
			c, err := s.store.GetByUserID(ctx, userID)
			if err != nil {
				return decimal.Zero, err
			}
			return c.TotalAmount, nil
		})
	return total, err
}

// AddItem puts quantity units of a product in the cart, merging with an
// existing line for the same product.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidItem)
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Status != catalog.StatusActive {
		return nil, fmt.Errorf("%w: product %d is not purchasable", ErrInvalidItem, productID)
	}

	return s.mutate(ctx, userID, "item-added", func(c *Cart) error {
		if i := c.find(productID); i >= 0 {
			c.Items[i].Quantity += quantity
			return nil
		}
		c.Items = append(c.Items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			SKU:       p.SKU,
			Quantity:  quantity,
			UnitPrice: p.Price,
		})
		return nil
	})
}

// UpdateItemQuantity sets the quantity on an existing line. A quantity of
// zero or less removes the line.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID int64, quantity int) (*Cart, error) {
	return s.mutate(ctx, userID, "item-updated", func(c *Cart) error {
		i := c.find(productID)
		if i < 0 {
			return fmt.Errorf("%w: product %d", ErrItemNotFound, productID)
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
		c.Items[i].Quantity = quantity
		return nil
	})
}

// RemoveItem deletes the line for a product.
func (s *Service) RemoveItem(ctx context.Context, userID, productID int64) (*Cart, error) {
	return s.mutate(ctx, userID, "item-removed", func(c *Cart) error {
		i := c.find(productID)
		if i < 0 {
			return fmt.Errorf("%w: product %d", ErrItemNotFound, productID)
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	})
}

// Clear empties the cart. The cached views are dropped in one call rather
// than rewritten, so no reader can see an emptied cart with a stale total.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	ctx, span := tracing.StartSpan(ctx, "cart.Clear")
	defer span.End()
	span.SetAttributes(attribute.Int64("cart.user_id", userID))

	c, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	c.Items = []Item{}
	c.RecomputeTotal()
	c.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return err
	}

	s.cache.Invalidate(ctx,
		cache.CartKey(userID),
		cache.CartItemsKey(userID),
		cache.CartTotalKey(userID),
	)
	s.publish(ctx, "cart-cleared", c)
	return nil
}

// mutate runs the shared mutation path: load the authoritative cart, apply
// the change, commit, then refresh the cache tiers. The cache is only
// touched after the store accepts the new state.
func (s *Service) mutate(ctx context.Context, userID int64, eventType string, apply func(*Cart) error) (*Cart, error) {
	ctx, span := tracing.StartSpan(ctx, "cart.mutate")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("cart.user_id", userID),
		attribute.String("cart.event", eventType),
	)

	c, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load cart failed")
		return nil, err
	}

	if err := apply(c); err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.RecomputeTotal()
	c.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save cart failed")
		return nil, err
	}

	s.writeThrough(ctx, c)
	s.publish(ctx, eventType, c)
	return c, nil
}

// writeThrough refreshes all three cache tiers from the committed cart.
func (s *Service) writeThrough(ctx context.Context, c *Cart) {
	cache.WriteThroughJSON(ctx, s.cache, cache.CartKey(c.UserID), c, s.cfg.CartTTL)
	cache.WriteThroughJSON(ctx, s.cache, cache.CartItemsKey(c.UserID), c.Items, s.cfg.CartItemsTTL)
	cache.WriteThroughJSON(ctx, s.cache, cache.CartTotalKey(c.UserID), c.TotalAmount, s.cfg.CartTotalTTL)
}

func (s *Service) publish(ctx context.Context, eventType string, c *Cart) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, events.TopicCart, eventType, cartEvent{
		UserID:    c.UserID,
		ItemCount: len(c.Items),
		Total:     c.TotalAmount,
	})
}

type cartEvent struct {
	UserID    int64           `json:"user_id"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}
