package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, customer_id, customer_name, customer_phone, customer_email,
	address, city, pickup_date, notes, payment_method, payment_proof, total_price,
	status, payment_status, admin_notes, completed_at, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail,
		&o.Address, &o.City, &o.PickupDate, &o.Notes, &o.PaymentMethod, &o.PaymentProof, &o.TotalPrice,
		&o.Status, &o.PaymentStatus, &o.AdminNotes, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	OrderNumber   string
	CustomerID    pgtype.UUID
	CustomerName  string
	CustomerPhone string
	CustomerEmail pgtype.Text
	Address       string
	City          string
	PickupDate    pgtype.Timestamptz
	Notes         pgtype.Text
	PaymentMethod string
	TotalPrice    pgtype.Numeric
}

// CreateOrder inserts a new order in the initial PENDING/UNPAID state.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	const query = `
INSERT INTO orders (order_number, customer_id, customer_name, customer_phone, customer_email,
	address, city, pickup_date, notes, payment_method, total_price, status, payment_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'PENDING', 'UNPAID')
RETURNING ` + orderColumns + `
`
	return scanOrder(q.db.QueryRow(ctx, query,
		arg.OrderNumber, arg.CustomerID, arg.CustomerName, arg.CustomerPhone, arg.CustomerEmail,
		arg.Address, arg.City, arg.PickupDate, arg.Notes, arg.PaymentMethod, arg.TotalPrice))
}

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	const query = `
INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, product_id, quantity, unit_price, subtotal, created_at
`
	var it OrderItem
	err := q.db.QueryRow(ctx, query,
		arg.OrderID, arg.ProductID, arg.Quantity, arg.UnitPrice, arg.Subtotal,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal, &it.CreatedAt)
	return it, err
}

type InsertStatusHistoryParams struct {
	OrderID uuid.UUID
	Status  string
	Note    string
}

// InsertStatusHistory appends one audit-trail entry. Rows are never
// updated or removed.
func (q *Queries) InsertStatusHistory(ctx context.Context, arg InsertStatusHistoryParams) (OrderStatusHistory, error) {
	const query = `
INSERT INTO order_status_history (order_id, status, note)
VALUES ($1, $2, $3)
RETURNING id, order_id, status, note, created_at
`
	var h OrderStatusHistory
	err := q.db.QueryRow(ctx, query, arg.OrderID, arg.Status, arg.Note).
		Scan(&h.ID, &h.OrderID, &h.Status, &h.Note, &h.CreatedAt)
	return h, err
}

// GetOrder fetches an order by id.
func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	const query = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`
	return scanOrder(q.db.QueryRow(ctx, query, id))
}

type ListOrdersParams struct {
	Status        pgtype.Text
	PaymentStatus pgtype.Text
	StartDate     pgtype.Timestamptz
	EndDate       pgtype.Timestamptz
	Limit         int32
	Offset        int32
}

// ListOrders returns orders newest first with optional status, payment
// status and date filters.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	const query = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR payment_status = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`
	rows, err := q.db.Query(ctx, query,
		arg.Status, arg.PaymentStatus, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type ListOrdersByCustomerParams struct {
	CustomerID uuid.UUID
	Limit      int32
}

func (q *Queries) ListOrdersByCustomer(ctx context.Context, arg ListOrdersByCustomerParams) ([]Order, error) {
	const query = `
SELECT ` + orderColumns + `
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := q.db.Query(ctx, query, arg.CustomerID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type ListOrderItemsByOrderRow struct {
	OrderItem
	ProductName string
}

// ListOrderItemsByOrder returns an order's line items with the current
// catalog name joined in for display. Prices come from the snapshot
// columns, never the live catalog.
func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	const query = `
SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price, oi.subtotal, oi.created_at, p.name
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = $1
ORDER BY oi.created_at
`
	rows, err := q.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListOrderItemsByOrderRow
	for rows.Next() {
		var r ListOrderItemsByOrderRow
		if err := rows.Scan(&r.ID, &r.OrderID, &r.ProductID, &r.Quantity,
			&r.UnitPrice, &r.Subtotal, &r.CreatedAt, &r.ProductName); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// ListStatusHistoryByOrder returns the audit trail oldest first.
func (q *Queries) ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderStatusHistory, error) {
	const query = `
SELECT id, order_id, status, note, created_at
FROM order_status_history
WHERE order_id = $1
ORDER BY created_at, id
`
	rows, err := q.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []OrderStatusHistory
	for rows.Next() {
		var h OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Note, &h.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
	// CompletedAt is only set when transitioning to COMPLETED; a NULL
	// value keeps whatever timestamp is already there.
	CompletedAt pgtype.Timestamptz
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	const query = `
UPDATE orders
SET status = $2, completed_at = COALESCE($3, completed_at), updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`
	return scanOrder(q.db.QueryRow(ctx, query, arg.ID, arg.Status, arg.CompletedAt))
}

type UpdateOrderPaymentStatusParams struct {
	ID            uuid.UUID
	PaymentStatus string
}

func (q *Queries) UpdateOrderPaymentStatus(ctx context.Context, arg UpdateOrderPaymentStatusParams) (Order, error) {
	const query = `
UPDATE orders
SET payment_status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`
	return scanOrder(q.db.QueryRow(ctx, query, arg.ID, arg.PaymentStatus))
}

type SetOrderPaymentProofParams struct {
	ID           uuid.UUID
	PaymentProof string
}

func (q *Queries) SetOrderPaymentProof(ctx context.Context, arg SetOrderPaymentProofParams) (Order, error) {
	const query = `
UPDATE orders
SET payment_proof = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`
	return scanOrder(q.db.QueryRow(ctx, query, arg.ID, arg.PaymentProof))
}

type SetOrderAdminNotesParams struct {
	ID         uuid.UUID
	AdminNotes string
}

func (q *Queries) SetOrderAdminNotes(ctx context.Context, arg SetOrderAdminNotesParams) (Order, error) {
	const query = `
UPDATE orders
SET admin_notes = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`
	return scanOrder(q.db.QueryRow(ctx, query, arg.ID, arg.AdminNotes))
}
