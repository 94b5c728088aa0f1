package router

import (
	"net/http"

	"wttt-sync-worker/internal/handler"
	"wttt-sync-worker/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	SyncHandler    *handler.SyncHandler
	AuthMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/health", cfg.Handler.Health)
		r.Get("/ready", cfg.Handler.Ready)
	}
	if cfg.SyncHandler != nil {
		r.Get("/sync/status", cfg.SyncHandler.Status)
	}

	// TRIGGER routes gated by the worker secret
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		if cfg.SyncHandler != nil {
			r.Post("/sync/orders", cfg.SyncHandler.SyncOrders)
			r.Post("/sync/inventory", cfg.SyncHandler.SyncInventory)
			r.Post("/sync/reports", cfg.SyncHandler.SyncReports)
		}
	})

	return r
}
