package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/marketfold/shopedge/internal/catalog"
)

const uniqueViolation = "23505"

// ProductStore implements catalog.Store on PostgreSQL.
type ProductStore struct {
	db *sql.DB
}

// NewProductStore creates a product store over db.
func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

const productColumns = `id, name, description, sku, price, stock_quantity,
	category, image_url, status, rating, attributes, created_at, updated_at`

func (s *ProductStore) Create(ctx context.Context, p *catalog.Product) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, description, sku, price, stock_quantity,
			category, image_url, status, rating, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		p.Name, p.Description, p.SKU, p.Price, p.StockQuantity,
		p.Category, p.ImageURL, p.Status, p.Rating, attributesValue(p), p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return catalog.ErrSKUExists
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *ProductStore) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select product %d: %w", id, err)
	}
	return p, nil
}

func (s *ProductStore) Update(ctx context.Context, p *catalog.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, sku = $4, price = $5, stock_quantity = $6,
			category = $7, image_url = $8, status = $9, rating = $10,
			attributes = $11, updated_at = $12
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.SKU, p.Price, p.StockQuantity,
		p.Category, p.ImageURL, p.Status, p.Rating, attributesValue(p), p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return catalog.ErrSKUExists
		}
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *ProductStore) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Trending ranks products by units sold in the last 7 days, falling back to
// rating for products with no recent sales.
func (s *ProductStore) Trending(ctx context.Context, limit int) ([]catalog.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN (
			SELECT product_id, SUM(quantity) AS sold
			FROM product_sales
			WHERE sold_at > now() - INTERVAL '7 days'
			GROUP BY product_id
		) s ON s.product_id = p.id
		WHERE p.status = 'ACTIVE'
		ORDER BY COALESCE(s.sold, 0) DESC, p.rating DESC NULLS LAST, p.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("trending products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*catalog.Product, error) {
	var p catalog.Product
	var attrs pqtype.NullRawMessage
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.SKU, &p.Price, &p.StockQuantity,
		&p.Category, &p.ImageURL, &p.Status, &p.Rating, &attrs,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if attrs.Valid {
		p.Attributes = attrs.RawMessage
	}
	return &p, nil
}

func collectProducts(rows *sql.Rows) ([]catalog.Product, error) {
	out := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func attributesValue(p *catalog.Product) pqtype.NullRawMessage {
	if len(p.Attributes) == 0 {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: p.Attributes, Valid: true}
}
