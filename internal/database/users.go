package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, name, phone, email, password_hash, role, address, city, last_order_at, created_at, updated_at, deleted_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Phone, &u.Email, &u.PasswordHash, &u.Role,
		&u.Address, &u.City, &u.LastOrderAt, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	return u, err
}

// GetUserByPhoneOrEmail finds a non-deleted user matching either contact
// field. An empty email never matches (email is nullable).
func (q *Queries) GetUserByPhoneOrEmail(ctx context.Context, phone, email string) (User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE deleted_at IS NULL AND (phone = $1 OR (email = $2 AND $2 <> ''))
LIMIT 1
`
	return scanUser(q.db.QueryRow(ctx, query, phone, email))
}

// GetUserByEmail finds a non-deleted user by email. Used by admin login.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE deleted_at IS NULL AND email = $1
`
	return scanUser(q.db.QueryRow(ctx, query, email))
}

// GetUser fetches a non-deleted user by id.
func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE deleted_at IS NULL AND id = $1
`
	return scanUser(q.db.QueryRow(ctx, query, id))
}

type CreateCustomerParams struct {
	Name         string
	Phone        string
	Email        pgtype.Text
	PasswordHash string
	Address      pgtype.Text
	City         pgtype.Text
}

// CreateCustomer inserts a customer record with last_order_at set to now.
func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (User, error) {
	const query = `
INSERT INTO users (name, phone, email, password_hash, role, address, city, last_order_at)
VALUES ($1, $2, $3, $4, 'CUSTOMER', $5, $6, now())
RETURNING ` + userColumns + `
`
	return scanUser(q.db.QueryRow(ctx, query,
		arg.Name, arg.Phone, arg.Email, arg.PasswordHash, arg.Address, arg.City))
}

type TouchCustomerParams struct {
	ID      uuid.UUID
	Name    string
	Address pgtype.Text
	City    pgtype.Text
}

// TouchCustomer refreshes a returning customer at order time: updates
// contact snapshot fields, bumps last_order_at, and forces the row back to
// the CUSTOMER role.
func (q *Queries) TouchCustomer(ctx context.Context, arg TouchCustomerParams) (User, error) {
	const query = `
UPDATE users
SET name = $2, address = $3, city = $4, role = 'CUSTOMER', last_order_at = now(), updated_at = now()
WHERE id = $1
RETURNING ` + userColumns + `
`
	return scanUser(q.db.QueryRow(ctx, query, arg.ID, arg.Name, arg.Address, arg.City))
}

type ListCustomersParams struct {
	Search pgtype.Text
	Limit  int32
	Offset int32
}

// ListCustomers returns non-deleted customers, optionally filtered by a
// name/phone/email substring, most recently active first.
func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE deleted_at IS NULL
  AND role = 'CUSTOMER'
  AND ($1::text IS NULL OR name ILIKE '%' || $1 || '%' OR phone LIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
ORDER BY last_order_at DESC NULLS LAST, created_at DESC
LIMIT $2 OFFSET $3
`
	rows, err := q.db.Query(ctx, query, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateCustomerParams struct {
	ID      uuid.UUID
	Name    string
	Phone   string
	Email   pgtype.Text
	Address pgtype.Text
	City    pgtype.Text
}

// UpdateCustomer applies an admin edit to a customer record.
func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (User, error) {
	const query = `
UPDATE users
SET name = $2, phone = $3, email = $4, address = $5, city = $6, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL AND role = 'CUSTOMER'
RETURNING ` + userColumns + `
`
	return scanUser(q.db.QueryRow(ctx, query,
		arg.ID, arg.Name, arg.Phone, arg.Email, arg.Address, arg.City))
}

// SoftDeleteCustomer marks a customer deleted and returns its id.
func (q *Queries) SoftDeleteCustomer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const query = `
UPDATE users
SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL AND role = 'CUSTOMER'
RETURNING id
`
	var out uuid.UUID
	err := q.db.QueryRow(ctx, query, id).Scan(&out)
	return out, err
}

type GetCustomerOrderStatsRow struct {
	TotalOrders int64
	TotalSpend  pgtype.Numeric
}

// GetCustomerOrderStats sums the non-cancelled order history linked to a
// customer record.
func (q *Queries) GetCustomerOrderStats(ctx context.Context, customerID uuid.UUID) (GetCustomerOrderStatsRow, error) {
	const query = `
SELECT COUNT(*), COALESCE(SUM(total_price), 0)
FROM orders
WHERE customer_id = $1 AND status <> 'CANCELLED'
`
	var row GetCustomerOrderStatsRow
	err := q.db.QueryRow(ctx, query, customerID).Scan(&row.TotalOrders, &row.TotalSpend)
	return row, err
}
