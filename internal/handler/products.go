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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/athallaarl66/crazwash-api/internal/cache"
	"github.com/athallaarl66/crazwash-api/internal/database"
	"github.com/athallaarl66/crazwash-api/internal/enum"
)

// ProductStore defines the database methods needed by product handlers.
type ProductStore interface {
	ListActiveProducts(ctx context.Context) ([]database.Product, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	UpdateProductStock(ctx context.Context, arg database.UpdateProductStockParams) (database.Product, error)
	SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// ProductHandler handles the service catalog. The public side lists active
// services for the storefront; the admin side manages the catalog.
type ProductHandler struct {
	store ProductStore
	cache *cache.Cache
}

func NewProductHandler(store ProductStore, c *cache.Cache) *ProductHandler {
	return &ProductHandler{store: store, cache: c}
}

// RegisterPublicRoutes registers the storefront catalog endpoint.
func (h *ProductHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/services", h.ListActive)
}

// RegisterAdminRoutes registers the catalog management endpoints.
func (h *ProductHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/services", h.List)
	r.Get("/services/{id}", h.Get)
	r.Post("/services", h.Create)
	r.Put("/services/{id}", h.Update)
	r.Patch("/services/{id}/stock", h.UpdateStock)
	r.Delete("/services/{id}", h.Delete)
}

type productRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Price            string `json:"price"`
	Category         string `json:"category"`
	DurationEstimate string `json:"duration_estimate"`
	Stock            int32  `json:"stock"`
	IsActive         *bool  `json:"is_active"`
}

type updateStockRequest struct {
	Stock *int32 `json:"stock"`
}

type productResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Description      *string   `json:"description"`
	Price            string    `json:"price"`
	Category         string    `json:"category"`
	DurationEstimate *string   `json:"duration_estimate"`
	Stock            int32     `json:"stock"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ListActive handles GET /services for the storefront. Only active,
// non-deleted services are returned.
func (h *ProductHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListActiveProducts(r.Context())
	if err != nil {
		zap.L().Error("list active products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, productsToResponse(products))
}

// List handles GET /admin/services, including inactive services.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		zap.L().Error("list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, productsToResponse(products))
}

// Get handles GET /admin/services/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		zap.L().Error("get product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, productToResponse(product))
}

// Create handles POST /admin/services.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, ok := h.validateProduct(w, req)
	if !ok {
		return
	}

	product, err := h.store.CreateProduct(r.Context(), params)
	if err != nil {
		zap.L().Error("create product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.invalidateCatalog(r.Context())
	writeJSON(w, http.StatusCreated, productToResponse(product))
}

// Update handles PUT /admin/services/{id}.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, ok := h.validateProduct(w, req)
	if !ok {
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:               id,
		Name:             params.Name,
		Description:      params.Description,
		Price:            params.Price,
		Category:         params.Category,
		DurationEstimate: params.DurationEstimate,
		Stock:            params.Stock,
		IsActive:         params.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		zap.L().Error("update product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.invalidateCatalog(r.Context())
	writeJSON(w, http.StatusOK, productToResponse(product))
}

// UpdateStock handles PATCH /admin/services/{id}/stock.
func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	var req updateStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Stock == nil || *req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "stock must be zero or positive")
		return
	}

	product, err := h.store.UpdateProductStock(r.Context(), database.UpdateProductStockParams{
		ID:    id,
		Stock: *req.Stock,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		zap.L().Error("update product stock", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.invalidateCatalog(r.Context())
	writeJSON(w, http.StatusOK, productToResponse(product))
}

// Delete handles DELETE /admin/services/{id}. Soft delete: the row is kept
// so existing order items and history stay resolvable.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	if _, err := h.store.SoftDeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		zap.L().Error("delete product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.invalidateCatalog(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// validateProduct checks a productRequest and converts it to create params.
// Writes the error response itself and returns ok=false on failure.
func (h *ProductHandler) validateProduct(w http.ResponseWriter, req productRequest) (database.CreateProductParams, bool) {
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return database.CreateProductParams{}, false
	}
	if !enum.IsValidCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return database.CreateProductParams{}, false
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must be a non-negative number")
		return database.CreateProductParams{}, false
	}
	if req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "stock must be zero or positive")
		return database.CreateProductParams{}, false
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	return database.CreateProductParams{
		Name:             req.Name,
		Description:      database.TextFrom(req.Description),
		Price:            database.NumericFromDecimal(price),
		Category:         req.Category,
		DurationEstimate: database.TextFrom(req.DurationEstimate),
		Stock:            req.Stock,
		IsActive:         isActive,
	}, true
}

// invalidateCatalog drops cached order and dashboard views that embed
// catalog data. Best effort.
func (h *ProductHandler) invalidateCatalog(ctx context.Context) {
	if err := h.cache.InvalidatePrefix(ctx, cache.PrefixDashboard); err != nil {
		zap.L().Warn("catalog cache invalidation", zap.Error(err))
	}
}

func productToResponse(p database.Product) productResponse {
	return productResponse{
		ID:               p.ID,
		Name:             p.Name,
		Description:      textPtr(p.Description),
		Price:            numericToString(p.Price),
		Category:         p.Category,
		DurationEstimate: textPtr(p.DurationEstimate),
		Stock:            p.Stock,
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func productsToResponse(products []database.Product) []productResponse {
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productToResponse(p)
	}
	return resp
}
