package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/marketfold/shopedge/internal/cart"
)

// CartStore implements cart.Store on PostgreSQL. Line items are stored as a
// JSONB document; carts are small and always read and written whole.
type CartStore struct {
	db *sql.DB
}

// NewCartStore creates a cart store over db.
func NewCartStore(db *sql.DB) *CartStore {
	return &CartStore{db: db}
}

func (s *CartStore) GetByUserID(ctx context.Context, userID int64) (*cart.Cart, error) {
	var c cart.Cart
	var items []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, items, total_amount, updated_at
		FROM carts WHERE user_id = $1`, userID,
	).Scan(&c.UserID, &items, &c.TotalAmount, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &cart.Cart{UserID: userID, Items: []cart.Item{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select cart %d: %w", userID, err)
	}

	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("decode cart %d items: %w", userID, err)
	}
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	return &c, nil
}

func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("encode cart %d items: %w", c.UserID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, items, total_amount, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET items = EXCLUDED.items,
			total_amount = EXCLUDED.total_amount,
			updated_at = EXCLUDED.updated_at`,
		c.UserID, items, c.TotalAmount, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save cart %d: %w", c.UserID, err)
	}
	return nil
}
