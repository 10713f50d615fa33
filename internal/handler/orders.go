package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/athallaarl66/crazwash-api/internal/cache"
	"github.com/athallaarl66/crazwash-api/internal/database"
	"github.com/athallaarl66/crazwash-api/internal/service"
)

// OrderIntaker defines the service methods behind the public intake
// endpoint. Satisfied by *service.IntakeService.
type OrderIntaker interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStatuser defines the service methods behind the admin status
// endpoints. Satisfied by *service.StatusService.
type OrderStatuser interface {
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus, adminNote string) (database.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, newStatus, adminNote string) (database.Order, error)
	AttachPaymentProof(ctx context.Context, orderID uuid.UUID, proof string) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusHistory, error)
}

// OrderHandler handles order endpoints, both the public storefront intake
// and the admin back-office views.
type OrderHandler struct {
	intake OrderIntaker
	status OrderStatuser
	store  OrderStore
	cache  *cache.Cache
}

// NewOrderHandler creates a new OrderHandler. c may be nil.
func NewOrderHandler(intake OrderIntaker, status OrderStatuser, store OrderStore, c *cache.Cache) *OrderHandler {
	return &OrderHandler{intake: intake, status: status, store: store, cache: c}
}

// RegisterPublicRoutes registers the storefront endpoint.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
}

// RegisterAdminRoutes registers the back-office endpoints. Expected to be
// mounted inside the authenticated /admin subrouter.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Patch("/orders/{id}/payment", h.UpdatePayment)
	r.Patch("/orders/{id}/payment-proof", h.AttachPaymentProof)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName  string                   `json:"customer_name"`
	CustomerPhone string                   `json:"customer_phone"`
	CustomerEmail string                   `json:"customer_email"`
	Address       string                   `json:"address"`
	PickupDate    string                   `json:"pickup_date"`
	Notes         string                   `json:"notes"`
	PaymentMethod string                   `json:"payment_method"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type orderResponse struct {
	ID            uuid.UUID  `json:"id"`
	OrderNumber   string     `json:"order_number"`
	CustomerID    *string    `json:"customer_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	CustomerEmail *string    `json:"customer_email"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	PickupDate    *time.Time `json:"pickup_date"`
	Notes         *string    `json:"notes"`
	PaymentMethod string     `json:"payment_method"`
	PaymentProof  *string    `json:"payment_proof"`
	TotalPrice    string     `json:"total_price"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	AdminNotes    *string    `json:"admin_notes"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Subtotal    string    `json:"subtotal"`
}

type statusHistoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

type createOrderResponse struct {
	orderResponse
	Items []orderItemResponse `json:"items"`
}

// orderDetailResponse extends orderResponse with items and the audit
// trail for the GET detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Items   []orderItemResponse     `json:"items"`
	History []statusHistoryResponse `json:"history"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
	Note          string `json:"note"`
}

type paymentProofRequest struct {
	PaymentProof string `json:"payment_proof"`
}

// --- Handlers ---

// Create handles POST /orders. No authentication: this is the storefront
// submission endpoint.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	result, err := h.intake.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Address:       req.Address,
		PickupDate:    req.PickupDate,
		Notes:         req.Notes,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
	})
	if err != nil {
		if service.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("create order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := createOrderResponse{
		orderResponse: dbOrderToResponse(result.Order),
		Items:         make([]orderItemResponse, len(result.Items)),
	}
	for i, item := range result.Items {
		resp.Items[i] = orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: numericToString(item.UnitPrice),
			Subtotal:  numericToString(item.Subtotal),
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /admin/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("payment_status"); s != "" {
		params.PaymentStatus = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	cacheKey := cache.PrefixOrders + r.URL.RawQuery
	var cached orderListResponse
	if hit, err := h.cache.GetJSON(r.Context(), cacheKey, &cached); err != nil {
		zap.L().Warn("order list cache read", zap.Error(err))
	} else if hit {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		zap.L().Error("list orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := orderListResponse{
		Orders: make([]orderResponse, len(orders)),
		Limit:  limit,
		Offset: offset,
	}
	for i, o := range orders {
		resp.Orders[i] = dbOrderToResponse(o)
	}

	if err := h.cache.SetJSON(r.Context(), cacheKey, resp); err != nil {
		zap.L().Warn("order list cache write", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /admin/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		zap.L().Error("get order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		zap.L().Error("list order items", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	history, err := h.store.ListStatusHistoryByOrder(r.Context(), orderID)
	if err != nil {
		zap.L().Error("list status history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := orderDetailResponse{
		orderResponse: dbOrderToResponse(order),
		Items:         make([]orderItemResponse, len(items)),
		History:       make([]statusHistoryResponse, len(history)),
	}
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   numericToString(item.UnitPrice),
			Subtotal:    numericToString(item.Subtotal),
		}
	}
	for i, entry := range history {
		resp.History[i] = statusHistoryResponse{
			ID:        entry.ID,
			Status:    entry.Status,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	updated, err := h.status.UpdateOrderStatus(r.Context(), orderID, req.Status, req.Note)
	if err != nil {
		h.writeStatusError(w, err, "update order status")
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// UpdatePayment handles PATCH /admin/orders/{id}/payment.
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentStatus == "" {
		writeError(w, http.StatusBadRequest, "payment_status is required")
		return
	}

	updated, err := h.status.UpdatePaymentStatus(r.Context(), orderID, req.PaymentStatus, req.Note)
	if err != nil {
		h.writeStatusError(w, err, "update payment status")
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// AttachPaymentProof handles PATCH /admin/orders/{id}/payment-proof.
func (h *OrderHandler) AttachPaymentProof(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req paymentProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentProof == "" {
		writeError(w, http.StatusBadRequest, "payment_proof is required")
		return
	}

	updated, err := h.status.AttachPaymentProof(r.Context(), orderID, req.PaymentProof)
	if err != nil {
		h.writeStatusError(w, err, "attach payment proof")
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// --- Helpers ---

// writeStatusError maps status-service errors to HTTP codes.
func (h *OrderHandler) writeStatusError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTransitionNotAllowed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zap.L().Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: textPtr(o.CustomerEmail),
		Address:       o.Address,
		City:          o.City,
		Notes:         textPtr(o.Notes),
		PaymentMethod: o.PaymentMethod,
		PaymentProof:  textPtr(o.PaymentProof),
		TotalPrice:    numericToString(o.TotalPrice),
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		AdminNotes:    textPtr(o.AdminNotes),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.CustomerID.Valid {
		s := uuid.UUID(o.CustomerID.Bytes).String()
		resp.CustomerID = &s
	}
	if o.PickupDate.Valid {
		resp.PickupDate = &o.PickupDate.Time
	}
	if o.CompletedAt.Valid {
		resp.CompletedAt = &o.CompletedAt.Time
	}
	return resp
}
