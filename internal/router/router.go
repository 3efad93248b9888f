package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/franchise-pos/api/internal/auth"
	"github.com/franchise-pos/api/internal/config"
	"github.com/franchise-pos/api/internal/enum"
	"github.com/franchise-pos/api/internal/handler"
	mw "github.com/franchise-pos/api/internal/middleware"
	"github.com/franchise-pos/api/internal/service"
	"github.com/franchise-pos/api/internal/store"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *store.Queries, pool *pgxpool.Pool) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://*"},
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

	accountService := service.NewAccountService(pool, func(db store.DBTX) service.AccountStore {
		return store.New(db)
	})
	orderService := service.NewOrderService(pool, func(db store.DBTX) service.OrderStore {
		return store.New(db)
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(
		queries,
		accountService,
		auth.NewTokenInfoVerifier(cfg.GoogleClientID),
		cfg.JWTSecret,
		cfg.AllowedEmailDomain,
	)
	r.Route("/auth", authHandler.RegisterRoutes)

	orderHandler := handler.NewOrderHandler(queries, orderService, cfg.AllowAnonymousOrders)

	// Order creation accepts anonymous kiosk traffic; a token, when
	// present, attributes the order to its processor.
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthenticateOptional(cfg.JWTSecret))
		r.Route("/create-order", orderHandler.RegisterCreateRoute)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Account management (admin roles only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleSuperAdmin, enum.RoleFranchiseAdmin))

			adminHandler := handler.NewFranchiseAdminHandler(queries, accountService)
			r.Route("/franchise-admin", adminHandler.RegisterRoutes)

			staffHandler := handler.NewStaffHandler(queries, accountService)
			r.Route("/staff", staffHandler.RegisterRoutes)
		})

		locationHandler := handler.NewLocationHandler(queries)
		r.Route("/locations", locationHandler.RegisterRoutes)

		categoryHandler := handler.NewCategoryHandler(queries)
		r.Route("/categories", categoryHandler.RegisterRoutes)

		menuItemHandler := handler.NewMenuItemHandler(queries)
		r.Route("/menu-items", menuItemHandler.RegisterRoutes)

		r.Route("/orders", orderHandler.RegisterHistoryRoutes)
	})

	return r
}
