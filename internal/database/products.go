package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, description, price, category, duration_estimate, stock, is_active, created_at, updated_at, deleted_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.DurationEstimate, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	return p, err
}

func (q *Queries) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListActiveProducts returns the sellable catalog: active, non-deleted
// services ordered by category then name.
func (q *Queries) ListActiveProducts(ctx context.Context) ([]Product, error) {
	const query = `
SELECT ` + productColumns + `
FROM products
WHERE deleted_at IS NULL AND is_active
ORDER BY category, name
`
	return q.queryProducts(ctx, query)
}

// ListProducts returns all non-deleted services, inactive included, for
// the admin catalog views.
func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	const query = `
SELECT ` + productColumns + `
FROM products
WHERE deleted_at IS NULL
ORDER BY category, name
`
	return q.queryProducts(ctx, query)
}

// GetProduct fetches a non-deleted service by id.
func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	const query = `
SELECT ` + productColumns + `
FROM products
WHERE deleted_at IS NULL AND id = $1
`
	return scanProduct(q.db.QueryRow(ctx, query, id))
}

type GetProductsForOrderRow struct {
	ID    uuid.UUID
	Name  string
	Price pgtype.Numeric
}

// GetProductsForOrder batch-fetches authoritative prices for the given ids,
// restricted to sellable (active, non-deleted) services. Callers compare
// the result count against the request count to reject partial matches.
func (q *Queries) GetProductsForOrder(ctx context.Context, ids []uuid.UUID) ([]GetProductsForOrderRow, error) {
	const query = `
SELECT id, name, price
FROM products
WHERE deleted_at IS NULL AND is_active AND id = ANY($1)
`
	rows, err := q.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetProductsForOrderRow
	for rows.Next() {
		var r GetProductsForOrderRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Price); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type CreateProductParams struct {
	Name             string
	Description      pgtype.Text
	Price            pgtype.Numeric
	Category         string
	DurationEstimate pgtype.Text
	Stock            int32
	IsActive         bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	const query = `
INSERT INTO products (name, description, price, category, duration_estimate, stock, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productColumns + `
`
	return scanProduct(q.db.QueryRow(ctx, query,
		arg.Name, arg.Description, arg.Price, arg.Category,
		arg.DurationEstimate, arg.Stock, arg.IsActive))
}

type UpdateProductParams struct {
	ID               uuid.UUID
	Name             string
	Description      pgtype.Text
	Price            pgtype.Numeric
	Category         string
	DurationEstimate pgtype.Text
	Stock            int32
	IsActive         bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	const query = `
UPDATE products
SET name = $2, description = $3, price = $4, category = $5,
    duration_estimate = $6, stock = $7, is_active = $8, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + productColumns + `
`
	return scanProduct(q.db.QueryRow(ctx, query,
		arg.ID, arg.Name, arg.Description, arg.Price, arg.Category,
		arg.DurationEstimate, arg.Stock, arg.IsActive))
}

type UpdateProductStockParams struct {
	ID    uuid.UUID
	Stock int32
}

func (q *Queries) UpdateProductStock(ctx context.Context, arg UpdateProductStockParams) (Product, error) {
	const query = `
UPDATE products
SET stock = $2, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + productColumns + `
`
	return scanProduct(q.db.QueryRow(ctx, query, arg.ID, arg.Stock))
}

// SoftDeleteProduct marks a service deleted and returns its id.
func (q *Queries) SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const query = `
UPDATE products
SET deleted_at = now(), is_active = false, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING id
`
	var out uuid.UUID
	err := q.db.QueryRow(ctx, query, id).Scan(&out)
	return out, err
}

// CountLowStockProducts counts active services at or below the threshold.
func (q *Queries) CountLowStockProducts(ctx context.Context, threshold int32) (int64, error) {
	const query = `
SELECT COUNT(*)
FROM products
WHERE deleted_at IS NULL AND is_active AND stock <= $1
`
	var n int64
	err := q.db.QueryRow(ctx, query, threshold).Scan(&n)
	return n, err
}
