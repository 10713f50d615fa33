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

const recentOrdersLimit = 10

// CustomerStore defines the database methods needed by customer handlers.
type CustomerStore interface {
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.User, error)
	SoftDeleteCustomer(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	GetCustomerOrderStats(ctx context.Context, customerID uuid.UUID) (database.GetCustomerOrderStatsRow, error)
	ListOrdersByCustomer(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error)
}

// CustomerHandler handles the admin customer directory.
type CustomerHandler struct {
	store CustomerStore
	cache *cache.Cache
	now   func() time.Time
}

func NewCustomerHandler(store CustomerStore, c *cache.Cache) *CustomerHandler {
	return &CustomerHandler{store: store, cache: c, now: time.Now}
}

// RegisterAdminRoutes registers the customer endpoints. Admin only.
func (h *CustomerHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/customers", h.List)
	r.Get("/customers/{id}", h.Get)
	r.Put("/customers/{id}", h.Update)
	r.Delete("/customers/{id}", h.Delete)
}

type customerResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Email          *string    `json:"email"`
	Address        *string    `json:"address"`
	City           *string    `json:"city"`
	LastOrderAt    *time.Time `json:"last_order_at"`
	ActivityStatus string     `json:"activity_status"`
	CreatedAt      time.Time  `json:"created_at"`
}

type customerDetailResponse struct {
	customerResponse
	TotalOrders  int64           `json:"total_orders"`
	TotalSpend   string          `json:"total_spend"`
	RecentOrders []orderResponse `json:"recent_orders"`
}

type customerListResponse struct {
	Customers []customerResponse `json:"customers"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type updateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// List handles GET /admin/customers. Supports ?search= over name, phone
// and email.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListCustomersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}

	cacheKey := cache.PrefixCustomers + r.URL.RawQuery
	var cached customerListResponse
	if hit, err := h.cache.GetJSON(r.Context(), cacheKey, &cached); err != nil {
		zap.L().Warn("customer list cache read", zap.Error(err))
	} else if hit {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	customers, err := h.store.ListCustomers(r.Context(), params)
	if err != nil {
		zap.L().Error("list customers", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := customerListResponse{
		Customers: make([]customerResponse, len(customers)),
		Limit:     limit,
		Offset:    offset,
	}
	for i, c := range customers {
		resp.Customers[i] = h.customerToResponse(c)
	}

	if err := h.cache.SetJSON(r.Context(), cacheKey, resp); err != nil {
		zap.L().Warn("customer list cache write", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /admin/customers/{id}: profile plus lifetime order stats
// and recent orders.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	customer, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		zap.L().Error("get customer", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	stats, err := h.store.GetCustomerOrderStats(r.Context(), id)
	if err != nil {
		zap.L().Error("customer order stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	orders, err := h.store.ListOrdersByCustomer(r.Context(), database.ListOrdersByCustomerParams{
		CustomerID: id,
		Limit:      recentOrdersLimit,
	})
	if err != nil {
		zap.L().Error("customer recent orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := customerDetailResponse{
		customerResponse: h.customerToResponse(customer),
		TotalOrders:      stats.TotalOrders,
		TotalSpend:       numericToString(stats.TotalSpend),
		RecentOrders:     make([]orderResponse, len(orders)),
	}
	for i, o := range orders {
		resp.RecentOrders[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /admin/customers/{id}.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	var req updateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	customer, err := h.store.UpdateCustomer(r.Context(), database.UpdateCustomerParams{
		ID:      id,
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   database.TextFrom(req.Email),
		Address: database.TextFrom(req.Address),
		City:    database.TextFrom(req.City),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		zap.L().Error("update customer", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.invalidate(r.Context())
	writeJSON(w, http.StatusOK, h.customerToResponse(customer))
}

// Delete handles DELETE /admin/customers/{id}. Soft delete; orders keep
// their denormalized contact snapshot.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	if _, err := h.store.SoftDeleteCustomer(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		zap.L().Error("delete customer", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *CustomerHandler) invalidate(ctx context.Context) {
	if err := h.cache.InvalidateCustomerViews(ctx); err != nil {
		zap.L().Warn("customer cache invalidation", zap.Error(err))
	}
}

// customerToResponse converts a database.User, deriving the activity
// status from the last order timestamp.
func (h *CustomerHandler) customerToResponse(c database.User) customerResponse {
	resp := customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     textPtr(c.Email),
		Address:   textPtr(c.Address),
		City:      textPtr(c.City),
		CreatedAt: c.CreatedAt,
	}
	var lastOrder time.Time
	if c.LastOrderAt.Valid {
		lastOrder = c.LastOrderAt.Time
		resp.LastOrderAt = &c.LastOrderAt.Time
	}
	resp.ActivityStatus = service.ActivityStatus(lastOrder, h.now())
	return resp
}
