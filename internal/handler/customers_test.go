package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/athallaarl66/crazwash-api/internal/database"
	"github.com/athallaarl66/crazwash-api/internal/enum"
	"github.com/athallaarl66/crazwash-api/internal/handler"
	"github.com/athallaarl66/crazwash-api/internal/middleware"
)

type mockCustomerStore struct {
	listFn       func(ctx context.Context, arg database.ListCustomersParams) ([]database.User, error)
	getFn        func(ctx context.Context, id uuid.UUID) (database.User, error)
	updateFn     func(ctx context.Context, arg database.UpdateCustomerParams) (database.User, error)
	softDeleteFn func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	statsFn      func(ctx context.Context, customerID uuid.UUID) (database.GetCustomerOrderStatsRow, error)
	listOrdersFn func(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error)
}

func (m *mockCustomerStore) ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, arg)
	}
	return []database.User{}, nil
}

func (m *mockCustomerStore) GetUser(ctx context.Context, id uuid.UUID) (database.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockCustomerStore) UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, arg)
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockCustomerStore) SoftDeleteCustomer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return uuid.Nil, pgx.ErrNoRows
}

func (m *mockCustomerStore) GetCustomerOrderStats(ctx context.Context, customerID uuid.UUID) (database.GetCustomerOrderStatsRow, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, customerID)
	}
	return database.GetCustomerOrderStatsRow{}, nil
}

func (m *mockCustomerStore) ListOrdersByCustomer(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error) {
	if m.listOrdersFn != nil {
		return m.listOrdersFn(ctx, arg)
	}
	return []database.Order{}, nil
}

func setupCustomerRouter(store *mockCustomerStore) *chi.Mux {
	h := handler.NewCustomerHandler(store, nil)
	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		h.RegisterAdminRoutes(r)
	})
	return r
}

func testCustomer(name string, lastOrder time.Time) database.User {
	c := database.User{
		ID:        uuid.New(),
		Name:      name,
		Phone:     "081234567890",
		Role:      enum.UserRoleCustomer,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if !lastOrder.IsZero() {
		c.LastOrderAt = pgtype.Timestamptz{Time: lastOrder, Valid: true}
	}
	return c
}

func TestCustomerList_Search(t *testing.T) {
	var captured database.ListCustomersParams
	store := &mockCustomerStore{
		listFn: func(ctx context.Context, arg database.ListCustomersParams) ([]database.User, error) {
			captured = arg
			return []database.User{testCustomer("Budi Santoso", time.Now())}, nil
		},
	}

	router := setupCustomerRouter(store)
	rr := doAdminRequest(t, router, "GET", "/admin/customers?search=budi&limit=10", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if !captured.Search.Valid || captured.Search.String != "budi" {
		t.Errorf("search: got %+v, want budi", captured.Search)
	}
	if captured.Limit != 10 {
		t.Errorf("limit: got %d, want 10", captured.Limit)
	}

	resp := decodeBody(t, rr)
	customers := resp["customers"].([]interface{})
	if len(customers) != 1 {
		t.Fatalf("customers: got %d, want 1", len(customers))
	}
}

func TestCustomerList_DerivesActivityStatus(t *testing.T) {
	now := time.Now()
	store := &mockCustomerStore{
		listFn: func(ctx context.Context, arg database.ListCustomersParams) ([]database.User, error) {
			return []database.User{
				testCustomer("Baru", now.AddDate(0, 0, -5)),
				testCustomer("Jarang", now.AddDate(0, 0, -60)),
				testCustomer("Hilang", now.AddDate(0, 0, -200)),
				testCustomer("Tanpa Pesanan", time.Time{}),
			}, nil
		},
	}

	router := setupCustomerRouter(store)
	rr := doAdminRequest(t, router, "GET", "/admin/customers", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeBody(t, rr)
	customers := resp["customers"].([]interface{})
	want := []string{"ACTIVE", "IDLE", "DORMANT", "DORMANT"}
	for i, c := range customers {
		got := c.(map[string]interface{})["activity_status"]
		if got != want[i] {
			t.Errorf("customer %d activity_status: got %v, want %s", i, got, want[i])
		}
	}
}

func TestCustomerGet_IncludesStatsAndRecentOrders(t *testing.T) {
	customer := testCustomer("Budi Santoso", time.Now())
	store := &mockCustomerStore{
		getFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			if id != customer.ID {
				t.Errorf("id: got %v, want %v", id, customer.ID)
			}
			return customer, nil
		},
		statsFn: func(ctx context.Context, customerID uuid.UUID) (database.GetCustomerOrderStatsRow, error) {
			return database.GetCustomerOrderStatsRow{
				TotalOrders: 7,
				TotalSpend:  testNumeric(t, "1250000.00"),
			}, nil
		},
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error) {
			if arg.Limit != 10 {
				t.Errorf("recent orders limit: got %d, want 10", arg.Limit)
			}
			return []database.Order{testOrder(t, uuid.New())}, nil
		},
	}

	router := setupCustomerRouter(store)
	rr := doAdminRequest(t, router, "GET", "/admin/customers/"+customer.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	if resp["total_orders"] != float64(7) {
		t.Errorf("total_orders: got %v, want 7", resp["total_orders"])
	}
	if resp["total_spend"] != "1250000.00" {
		t.Errorf("total_spend: got %v, want 1250000.00", resp["total_spend"])
	}
	recent := resp["recent_orders"].([]interface{})
	if len(recent) != 1 {
		t.Fatalf("recent_orders: got %d, want 1", len(recent))
	}
}

func TestCustomerGet_NotFound(t *testing.T) {
	router := setupCustomerRouter(&mockCustomerStore{})
	rr := doAdminRequest(t, router, "GET", "/admin/customers/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCustomerUpdate_HappyPath(t *testing.T) {
	id := uuid.New()
	var captured database.UpdateCustomerParams
	store := &mockCustomerStore{
		updateFn: func(ctx context.Context, arg database.UpdateCustomerParams) (database.User, error) {
			captured = arg
			c := testCustomer(arg.Name, time.Now())
			c.ID = arg.ID
			return c, nil
		},
	}

	router := setupCustomerRouter(store)
	rr := doAdminRequest(t, router, "PUT", "/admin/customers/"+id.String(), map[string]interface{}{
		"name":    "Budi Revisi",
		"phone":   "089876543210",
		"email":   "budi@example.com",
		"address": "Jl. Braga No. 5",
		"city":    "Bandung",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if captured.ID != id || captured.Name != "Budi Revisi" || captured.Phone != "089876543210" {
		t.Errorf("params: got %+v", captured)
	}
	if !captured.Email.Valid || captured.Email.String != "budi@example.com" {
		t.Errorf("email: got %+v", captured.Email)
	}
	if !captured.City.Valid || captured.City.String != "Bandung" {
		t.Errorf("city: got %+v", captured.City)
	}
}

func TestCustomerUpdate_Validation(t *testing.T) {
	router := setupCustomerRouter(&mockCustomerStore{})

	rr := doAdminRequest(t, router, "PUT", "/admin/customers/"+uuid.New().String(), map[string]interface{}{
		"phone": "0812",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing name: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = doAdminRequest(t, router, "PUT", "/admin/customers/"+uuid.New().String(), map[string]interface{}{
		"name": "Budi",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing phone: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCustomerDelete(t *testing.T) {
	id := uuid.New()
	store := &mockCustomerStore{
		softDeleteFn: func(ctx context.Context, gotID uuid.UUID) (uuid.UUID, error) {
			return gotID, nil
		},
	}

	router := setupCustomerRouter(store)
	rr := doAdminRequest(t, router, "DELETE", "/admin/customers/"+id.String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestCustomerDelete_NotFound(t *testing.T) {
	router := setupCustomerRouter(&mockCustomerStore{})
	rr := doAdminRequest(t, router, "DELETE", "/admin/customers/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
