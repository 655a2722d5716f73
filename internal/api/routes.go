package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. limiter may be nil, in which case
// the public endpoints run unthrottled (local mode without Redis).
func SetupRoutes(h *Handlers, limiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// The subscribe form and confirmation links are embedded on arbitrary
	// sites, so the public endpoints are open to any origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check (never rate limited)
	r.Get("/health", h.HealthCheck)

	// Confirmation links arrive from email clients; they carry a single-use
	// token already, so they bypass the rate limiter too.
	r.Get("/confirm", h.Confirm)

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Post("/subscribe", h.Subscribe)
		r.Post("/unsubscribe", h.Unsubscribe)
	})

	return r
}
