package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// User is a row in users. Customers and admin staff share the table,
// distinguished by Role. Customers carry a placeholder password hash and
// never authenticate.
type User struct {
	ID           uuid.UUID
	Name         string
	Phone        string
	Email        pgtype.Text
	PasswordHash string
	Role         string
	Address      pgtype.Text
	City         pgtype.Text
	LastOrderAt  pgtype.Timestamptz
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    pgtype.Timestamptz
}

// Product is a row in products (a cleaning service in the catalog).
// Price is immutable per catalog entry; orders snapshot it at purchase time.
type Product struct {
	ID               uuid.UUID
	Name             string
	Description      pgtype.Text
	Price            pgtype.Numeric
	Category         string
	DurationEstimate pgtype.Text
	Stock            int32
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        pgtype.Timestamptz
}

// Order is a row in orders. Customer contact fields are denormalized
// snapshots; CustomerID is an optional link that may be NULL when the
// customer upsert failed at intake time.
type Order struct {
	ID            uuid.UUID
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
	PaymentProof  pgtype.Text
	TotalPrice    pgtype.Numeric
	Status        string
	PaymentStatus string
	AdminNotes    pgtype.Text
	CompletedAt   pgtype.Timestamptz
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem is a row in order_items. Immutable once created; UnitPrice is
// the catalog price at submission time, never re-looked-up.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
	CreatedAt time.Time
}

// OrderStatusHistory is a row in order_status_history, the append-only
// audit trail of order and payment status transitions.
type OrderStatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    string
	Note      string
	CreatedAt time.Time
}
