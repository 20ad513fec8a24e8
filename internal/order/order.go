// Package order owns the order aggregate. Orders are created from a
// committed cart at checkout; fulfillment beyond that lives in downstream
// services.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketfold/shopedge/internal/cart"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order: not found")

	// ErrEmptyCart is returned when checkout finds nothing to order.
	ErrEmptyCart = errors.New("order: cart is empty")
)

// Order statuses. New orders start PENDING; downstream payment processing
// moves them on.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Order is a snapshot of the cart at checkout time. Line items are frozen;
// later catalog changes do not touch placed orders.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Items       []cart.Item     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store is the persistent order store collaborator.
type Store interface {
	Create(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
}
