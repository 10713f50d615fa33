package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/athallaarl66/crazwash-api/internal/cache"
	"github.com/athallaarl66/crazwash-api/internal/config"
	"github.com/athallaarl66/crazwash-api/internal/database"
	"github.com/athallaarl66/crazwash-api/internal/enum"
	"github.com/athallaarl66/crazwash-api/internal/handler"
	mw "github.com/athallaarl66/crazwash-api/internal/middleware"
	"github.com/athallaarl66/crazwash-api/internal/service"
	"github.com/athallaarl66/crazwash-api/internal/ws"
)

// New creates a Chi router with all application routes wired up. The
// storefront endpoints are public; everything under /admin requires an
// authenticated ADMIN token.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, c *cache.Cache, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",      // storefront dev server
			"http://localhost:5174",      // admin dev server
			"https://crazwash.id",        // production storefront
			"https://admin.crazwash.id",  // production admin
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	intakeSvc := service.NewIntakeService(
		pool,
		func(db database.DBTX) service.IntakeStore { return database.New(db) },
		queries,
		c,
		hub,
		cfg.DefaultCity,
	)
	statusSvc := service.NewStatusService(queries, c, hub, cfg.EnforceStatusFlow)
	dashboardSvc := service.NewDashboardService(queries, c, int32(cfg.LowStockThreshold))

	orderHandler := handler.NewOrderHandler(intakeSvc, statusSvc, queries, c)
	productHandler := handler.NewProductHandler(queries, c)
	customerHandler := handler.NewCustomerHandler(queries, c)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)

	// Public storefront routes
	orderHandler.RegisterPublicRoutes(r)
	productHandler.RegisterPublicRoutes(r)
	authHandler.RegisterRoutes(r)

	// WebSocket route, authenticates via query param
	r.Get("/ws/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Admin back office
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.UserRoleAdmin))

		orderHandler.RegisterAdminRoutes(r)
		productHandler.RegisterAdminRoutes(r)
		customerHandler.RegisterAdminRoutes(r)
		dashboardHandler.RegisterAdminRoutes(r)
	})

	return r
}
