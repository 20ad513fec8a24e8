package order

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/marketfold/shopedge/internal/cart"
	"github.com/marketfold/shopedge/internal/events"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/tracing"
)

// Carts is the cart collaborator checkout drains.
type Carts interface {
	Get(ctx context.Context, userID int64) (*cart.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

// Service turns carts into orders and publishes the order event stream.
type Service struct {
	store  Store
	carts  Carts
	events events.Publisher
	log    *slog.Logger
}

// NewService creates an order service.
func NewService(store Store, carts Carts, pub events.Publisher) *Service {
	return &Service{
		store:  store,
		carts:  carts,
		events: pub,
		log:    logger.WithComponent("order"),
	}
}

// Checkout snapshots the user's cart into a pending order and empties the
// cart. The order commits before the cart is cleared.
func (s *Service) Checkout(ctx context.Context, userID int64) (*Order, error) {
	ctx, span := tracing.StartSpan(ctx, "order.Checkout")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.user_id", userID))

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	o := &Order{
		UserID:      userID,
		Items:       append([]cart.Item(nil), c.Items...),
		TotalAmount: c.TotalAmount,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, o); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int64("order.id", o.ID))

	if err := s.carts.Clear(ctx, userID); err != nil {
		// The order stands; the stale cart self-corrects on the next read.
		s.log.WarnContext(ctx, "cart not cleared after checkout",
			"user_id", userID, "order_id", o.ID, "error", err)
	}

	if s.events != nil {
		s.events.Publish(ctx, events.TopicOrder, "order-placed", orderEvent{
			OrderID:   o.ID,
			UserID:    userID,
			ItemCount: len(o.Items),
			Total:     o.TotalAmount,
		})
	}
	return o, nil
}

// History returns the user's orders, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]Order, error) {
	return s.store.ListByUser(ctx, userID)
}

type orderEvent struct {
	OrderID   int64           `json:"order_id"`
	UserID    int64           `json:"user_id"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}
