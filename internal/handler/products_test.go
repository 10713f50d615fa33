package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/athallaarl66/crazwash-api/internal/database"
	"github.com/athallaarl66/crazwash-api/internal/enum"
	"github.com/athallaarl66/crazwash-api/internal/handler"
	"github.com/athallaarl66/crazwash-api/internal/middleware"
)

type mockProductStore struct {
	listActiveFn  func(ctx context.Context) ([]database.Product, error)
	listFn        func(ctx context.Context) ([]database.Product, error)
	getFn         func(ctx context.Context, id uuid.UUID) (database.Product, error)
	createFn      func(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	updateFn      func(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	updateStockFn func(ctx context.Context, arg database.UpdateProductStockParams) (database.Product, error)
	softDeleteFn  func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

func (m *mockProductStore) ListActiveProducts(ctx context.Context) ([]database.Product, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return []database.Product{}, nil
}

func (m *mockProductStore) ListProducts(ctx context.Context) ([]database.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []database.Product{}, nil
}

func (m *mockProductStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return database.Product{}, pgx.ErrNoRows
}

func (m *mockProductStore) CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, arg)
	}
	return database.Product{}, pgx.ErrNoRows
}

func (m *mockProductStore) UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, arg)
	}
	return database.Product{}, pgx.ErrNoRows
}

func (m *mockProductStore) UpdateProductStock(ctx context.Context, arg database.UpdateProductStockParams) (database.Product, error) {
	if m.updateStockFn != nil {
		return m.updateStockFn(ctx, arg)
	}
	return database.Product{}, pgx.ErrNoRows
}

func (m *mockProductStore) SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return uuid.Nil, pgx.ErrNoRows
}

func setupProductRouter(store *mockProductStore) *chi.Mux {
	h := handler.NewProductHandler(store, nil)
	r := chi.NewRouter()
	r.Group(h.RegisterPublicRoutes)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		h.RegisterAdminRoutes(r)
	})
	return r
}

func testProduct(t *testing.T, name string, active bool) database.Product {
	t.Helper()
	now := time.Now()
	return database.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     testNumeric(t, "75000.00"),
		Category:  enum.CategoryDeepClean,
		Stock:     10,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProductListActive_Public(t *testing.T) {
	store := &mockProductStore{
		listActiveFn: func(ctx context.Context) ([]database.Product, error) {
			return []database.Product{testProduct(t, "Deep Clean Sepatu", true)}, nil
		},
	}

	router := setupProductRouter(store)
	// Storefront endpoint, no token.
	rr := doRequest(t, router, "GET", "/services", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp []map[string]interface{}
	decodeInto(t, rr, &resp)
	if len(resp) != 1 {
		t.Fatalf("products: got %d, want 1", len(resp))
	}
	if resp[0]["name"] != "Deep Clean Sepatu" {
		t.Errorf("name: got %v", resp[0]["name"])
	}
	if resp[0]["price"] != "75000.00" {
		t.Errorf("price: got %v, want 75000.00", resp[0]["price"])
	}
}

func TestProductList_AdminSeesInactive(t *testing.T) {
	store := &mockProductStore{
		listFn: func(ctx context.Context) ([]database.Product, error) {
			return []database.Product{
				testProduct(t, "Deep Clean Sepatu", true),
				testProduct(t, "Layanan Lama", false),
			}, nil
		},
	}

	router := setupProductRouter(store)
	rr := doAdminRequest(t, router, "GET", "/admin/services", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp []map[string]interface{}
	decodeInto(t, rr, &resp)
	if len(resp) != 2 {
		t.Fatalf("products: got %d, want 2", len(resp))
	}
}

func TestProductCreate_HappyPath(t *testing.T) {
	var captured database.CreateProductParams
	store := &mockProductStore{
		createFn: func(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
			captured = arg
			p := testProduct(t, arg.Name, arg.IsActive)
			p.Price = arg.Price
			p.Category = arg.Category
			p.Stock = arg.Stock
			return p, nil
		},
	}

	router := setupProductRouter(store)
	rr := doAdminRequest(t, router, "POST", "/admin/services", map[string]interface{}{
		"name":              "Premium Wash Tas",
		"description":       "Cuci premium untuk tas kulit",
		"price":             "120000",
		"category":          "PREMIUM",
		"duration_estimate": "3-4 hari",
		"stock":             5,
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if captured.Name != "Premium Wash Tas" {
		t.Errorf("name: got %q", captured.Name)
	}
	if captured.Category != enum.CategoryPremium {
		t.Errorf("category: got %q, want PREMIUM", captured.Category)
	}
	if !captured.IsActive {
		t.Error("is_active should default to true")
	}
	if got := database.NumericDecimal(captured.Price).StringFixed(2); got != "120000.00" {
		t.Errorf("price: got %s, want 120000.00", got)
	}
}

func TestProductCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"price": "1000", "category": "BASIC"}},
		{"bad category", map[string]interface{}{"name": "X", "price": "1000", "category": "LUXURY"}},
		{"bad price", map[string]interface{}{"name": "X", "price": "mahal", "category": "BASIC"}},
		{"negative price", map[string]interface{}{"name": "X", "price": "-5", "category": "BASIC"}},
		{"negative stock", map[string]interface{}{"name": "X", "price": "1000", "category": "BASIC", "stock": -1}},
	}

	router := setupProductRouter(&mockProductStore{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAdminRequest(t, router, "POST", "/admin/services", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestProductUpdate_NotFound(t *testing.T) {
	router := setupProductRouter(&mockProductStore{})
	rr := doAdminRequest(t, router, "PUT", "/admin/services/"+uuid.New().String(), map[string]interface{}{
		"name":     "X",
		"price":    "1000",
		"category": "BASIC",
	})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestProductUpdateStock(t *testing.T) {
	id := uuid.New()
	var captured database.UpdateProductStockParams
	store := &mockProductStore{
		updateStockFn: func(ctx context.Context, arg database.UpdateProductStockParams) (database.Product, error) {
			captured = arg
			p := testProduct(t, "Deep Clean Sepatu", true)
			p.ID = arg.ID
			p.Stock = arg.Stock
			return p, nil
		},
	}

	router := setupProductRouter(store)
	rr := doAdminRequest(t, router, "PATCH", "/admin/services/"+id.String()+"/stock", map[string]interface{}{
		"stock": 3,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if captured.ID != id || captured.Stock != 3 {
		t.Errorf("params: got %+v, want id=%v stock=3", captured, id)
	}
}

func TestProductUpdateStock_MissingStock(t *testing.T) {
	router := setupProductRouter(&mockProductStore{})
	rr := doAdminRequest(t, router, "PATCH", "/admin/services/"+uuid.New().String()+"/stock", map[string]interface{}{})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestProductDelete(t *testing.T) {
	id := uuid.New()
	called := false
	store := &mockProductStore{
		softDeleteFn: func(ctx context.Context, gotID uuid.UUID) (uuid.UUID, error) {
			called = true
			if gotID != id {
				t.Errorf("id: got %v, want %v", gotID, id)
			}
			return id, nil
		},
	}

	router := setupProductRouter(store)
	rr := doAdminRequest(t, router, "DELETE", "/admin/services/"+id.String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if !called {
		t.Error("SoftDeleteProduct not called")
	}
}

func TestProductDelete_NotFound(t *testing.T) {
	router := setupProductRouter(&mockProductStore{})
	rr := doAdminRequest(t, router, "DELETE", "/admin/services/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
