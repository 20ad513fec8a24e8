package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/marketfold/shopedge/internal/order"
)

// OrderStore implements order.Store on PostgreSQL. Creating an order also
// records one product_sales row per line, which feeds the trending ranking.
type OrderStore struct {
	db *sql.DB
}

// NewOrderStore creates an order store over db.
func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, items, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		o.UserID, items, o.TotalAmount, o.Status, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_sales (product_id, sold_at, quantity)
			VALUES ($1, $2, $3)`,
			it.ProductID, o.CreatedAt, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("record sale for product %d: %w", it.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, items, total_amount, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := []order.Order{}
	for rows.Next() {
		var o order.Order
		var items []byte
		if err := rows.Scan(&o.ID, &o.UserID, &items, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("decode order %d items: %w", o.ID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
