package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/athallaarl66/crazwash-api/internal/cache"
	"github.com/athallaarl66/crazwash-api/internal/database"
	"github.com/athallaarl66/crazwash-api/internal/enum"
	"github.com/athallaarl66/crazwash-api/internal/metrics"
)

const maxOrderNumberRetries = 3

// Errors returned by the intake service. The messages are shown to
// storefront customers as-is.
var (
	ErrNameRequired         = errors.New("nama wajib diisi")
	ErrPhoneRequired        = errors.New("nomor telepon wajib diisi")
	ErrAddressRequired      = errors.New("alamat wajib diisi")
	ErrEmptyItems           = errors.New("pilih minimal 1 layanan")
	ErrPaymentMethod        = errors.New("pilih metode pembayaran")
	ErrInvalidQuantity      = errors.New("jumlah layanan harus lebih dari 0")
	ErrInvalidProductID     = errors.New("layanan tidak valid")
	ErrProductUnavailable   = errors.New("layanan tidak tersedia")
	ErrInvalidPickupDate    = errors.New("tanggal penjemputan tidak valid")
)

// knownCities is the fixed list scanned against pickup addresses.
// Matching is case-insensitive substring; first hit wins.
var knownCities = []string{
	"Jakarta",
	"Bandung",
	"Surabaya",
	"Bekasi",
	"Depok",
	"Tangerang",
	"Bogor",
	"Semarang",
	"Yogyakarta",
	"Medan",
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IntakeStore defines the DB methods needed inside the order-creation
// transaction. Satisfied by *database.Queries.
type IntakeStore interface {
	GetProductsForOrder(ctx context.Context, ids []uuid.UUID) ([]database.GetProductsForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	InsertStatusHistory(ctx context.Context, arg database.InsertStatusHistoryParams) (database.OrderStatusHistory, error)
}

// CustomerStore defines the DB methods for the customer upsert, which runs
// outside the order transaction so its failure cannot abort the order.
type CustomerStore interface {
	GetUserByPhoneOrEmail(ctx context.Context, phone, email string) (database.User, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.User, error)
	TouchCustomer(ctx context.Context, arg database.TouchCustomerParams) (database.User, error)
}

// NewIntakeStore creates an IntakeStore from a DBTX (pool or tx).
type NewIntakeStore func(db database.DBTX) IntakeStore

// EventBroadcaster pushes order events to connected admin dashboards.
type EventBroadcaster interface {
	Broadcast(eventType string, payload any)
}

// CreateOrderRequest is the validated input for placing an order.
type CreateOrderRequest struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Address       string
	PickupDate    string // RFC3339, optional
	Notes         string
	PaymentMethod string
	Items         []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single service selection.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
}

// CreateOrderResult is the created order with its line items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// IntakeService handles public order placement.
type IntakeService struct {
	pool      TxBeginner
	newStore  NewIntakeStore
	customers CustomerStore
	cache     *cache.Cache
	events    EventBroadcaster

	defaultCity string
	now         func() time.Time
	randInt     func(n int) int
}

// NewIntakeService creates a new IntakeService. events may be nil.
func NewIntakeService(pool TxBeginner, newStore NewIntakeStore, customers CustomerStore, c *cache.Cache, events EventBroadcaster, defaultCity string) *IntakeService {
	return &IntakeService{
		pool:        pool,
		newStore:    newStore,
		customers:   customers,
		cache:       c,
		events:      events,
		defaultCity: defaultCity,
		now:         time.Now,
		randInt:     rand.Intn,
	}
}

// DeriveCity scans a free-text address for a known city name and returns
// the fallback when none matches. The same address always yields the same
// city.
func DeriveCity(address, fallback string) string {
	lower := strings.ToLower(address)
	for _, city := range knownCities {
		if strings.Contains(lower, strings.ToLower(city)) {
			return city
		}
	}
	return fallback
}

// CreateOrder validates the submission, resolves the customer, snapshots
// catalog prices, and persists the order atomically. The customer upsert
// is allowed to fail without aborting order creation; the order is then
// stored without a customer link.
func (s *IntakeService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Validate customer fields ---
	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.CustomerPhone)
	address := strings.TrimSpace(req.Address)
	if name == "" {
		return nil, s.reject(ErrNameRequired)
	}
	if phone == "" {
		return nil, s.reject(ErrPhoneRequired)
	}
	if address == "" {
		return nil, s.reject(ErrAddressRequired)
	}

	// --- Validate selection ---
	if len(req.Items) == 0 {
		return nil, s.reject(ErrEmptyItems)
	}
	if !enum.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, s.reject(ErrPaymentMethod)
	}

	productIDs := make([]uuid.UUID, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, s.reject(ErrInvalidQuantity)
		}
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, s.reject(ErrInvalidProductID)
		}
		if !seen[id] {
			seen[id] = true
			productIDs = append(productIDs, id)
		}
	}

	pickupDate := pgtype.Timestamptz{}
	if req.PickupDate != "" {
		t, err := time.Parse(time.RFC3339, req.PickupDate)
		if err != nil {
			return nil, s.reject(ErrInvalidPickupDate)
		}
		pickupDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	city := DeriveCity(address, s.defaultCity)

	// --- Resolve customer (isolated: failure never aborts the order) ---
	customerID := pgtype.UUID{}
	customer, err := s.upsertCustomer(ctx, name, phone, strings.TrimSpace(req.CustomerEmail), address, city)
	if err != nil {
		metrics.CustomerUpsertFailuresTotal.Inc()
		zap.L().Warn("customer upsert failed, creating order without customer link",
			zap.String("phone", phone), zap.Error(err))
	} else {
		customerID = pgtype.UUID{Bytes: customer.ID, Valid: true}
	}

	// Retry loop: handles the order_number unique constraint race.
	var result *CreateOrderResult
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err = s.createOrderTx(ctx, req, name, phone, address, city, customerID, pickupDate, productIDs)
		if err == nil {
			break
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if result == nil {
		return nil, lastErr
	}

	metrics.OrdersCreatedTotal.Inc()
	if err := s.cache.InvalidateOrderViews(ctx); err != nil {
		zap.L().Warn("invalidate order views", zap.Error(err))
	}
	if err := s.cache.InvalidateCustomerViews(ctx); err != nil {
		zap.L().Warn("invalidate customer views", zap.Error(err))
	}
	if s.events != nil {
		s.events.Broadcast("order.created", map[string]any{
			"order_id":     result.Order.ID,
			"order_number": result.Order.OrderNumber,
			"total_price":  database.NumericDecimal(result.Order.TotalPrice).StringFixed(2),
		})
	}

	return result, nil
}

// createOrderTx executes the priced order creation in one transaction.
func (s *IntakeService) createOrderTx(ctx context.Context, req CreateOrderRequest, name, phone, address, city string, customerID pgtype.UUID, pickupDate pgtype.Timestamptz, productIDs []uuid.UUID) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Fetch authoritative prices in one batch ---
	products, err := store.GetProductsForOrder(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get products for order: %w", err)
	}
	// A missing row means an unknown, inactive, or deleted service.
	// The whole submission is rejected; partial orders never exist.
	if len(products) != len(productIDs) {
		return nil, s.reject(ErrProductUnavailable)
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = database.NumericDecimal(p.Price)
	}

	// --- Compute line subtotals and the order total ---
	total := decimal.Zero
	type pricedItem struct {
		productID uuid.UUID
		quantity  int32
		unitPrice decimal.Decimal
		subtotal  decimal.Decimal
	}
	items := make([]pricedItem, 0, len(req.Items))
	for _, item := range req.Items {
		id, _ := uuid.Parse(item.ProductID)
		unitPrice := prices[id]
		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		total = total.Add(subtotal)
		items = append(items, pricedItem{
			productID: id,
			quantity:  item.Quantity,
			unitPrice: unitPrice,
			subtotal:  subtotal,
		})
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:   s.generateOrderNumber(),
		CustomerID:    customerID,
		CustomerName:  name,
		CustomerPhone: phone,
		CustomerEmail: database.TextFrom(strings.TrimSpace(req.CustomerEmail)),
		Address:       address,
		City:          city,
		PickupDate:    pickupDate,
		Notes:         database.TextFrom(strings.TrimSpace(req.Notes)),
		PaymentMethod: req.PaymentMethod,
		TotalPrice:    database.NumericFromDecimal(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert line items ---
	var created []database.OrderItem
	for _, it := range items {
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: it.productID,
			Quantity:  it.quantity,
			UnitPrice: database.NumericFromDecimal(it.unitPrice),
			Subtotal:  database.NumericFromDecimal(it.subtotal),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, row)
	}

	// --- Initial audit entry: history always opens with PENDING ---
	if _, err := store.InsertStatusHistory(ctx, database.InsertStatusHistoryParams{
		OrderID: order.ID,
		Status:  enum.OrderStatusPending,
		Note:    "Pesanan dibuat",
	}); err != nil {
		return nil, fmt.Errorf("insert status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: created}, nil
}

// upsertCustomer resolves the customer record by phone or email, updating
// contact fields on a hit and creating the record on a miss. Customers
// never authenticate, so new records get a throwaway bcrypt hash and a
// synthesized email when none was supplied.
func (s *IntakeService) upsertCustomer(ctx context.Context, name, phone, email, address, city string) (database.User, error) {
	existing, err := s.customers.GetUserByPhoneOrEmail(ctx, phone, email)
	if err == nil {
		return s.customers.TouchCustomer(ctx, database.TouchCustomerParams{
			ID:      existing.ID,
			Name:    name,
			Address: database.TextFrom(address),
			City:    database.TextFrom(city),
		})
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.User{}, err
	}

	if email == "" {
		email = phone + "@customer.crazwash.id"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return database.User{}, fmt.Errorf("hash placeholder password: %w", err)
	}
	return s.customers.CreateCustomer(ctx, database.CreateCustomerParams{
		Name:         name,
		Phone:        phone,
		Email:        database.TextFrom(email),
		PasswordHash: string(hash),
		Address:      database.TextFrom(address),
		City:         database.TextFrom(city),
	})
}

// generateOrderNumber builds a human-readable order number from the wall
// clock plus a 3-digit random suffix. Uniqueness is enforced by the DB
// index; collisions are resolved by the caller's retry loop.
func (s *IntakeService) generateOrderNumber() string {
	return fmt.Sprintf("CW-%s-%03d", s.now().Format("20060102150405"), s.randInt(1000))
}

// isOrderNumberConflict checks for a unique violation on the order number
// (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// reject counts a validation failure and returns the sentinel unchanged.
func (s *IntakeService) reject(err error) error {
	metrics.OrderIntakeFailuresTotal.WithLabelValues(err.Error()).Inc()
	return err
}

// IsValidationError reports whether err is a known intake validation
// error that should map to a 400 at the boundary.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrPhoneRequired) ||
		errors.Is(err, ErrAddressRequired) ||
		errors.Is(err, ErrEmptyItems) ||
		errors.Is(err, ErrPaymentMethod) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidProductID) ||
		errors.Is(err, ErrProductUnavailable) ||
		errors.Is(err, ErrInvalidPickupDate)
}
