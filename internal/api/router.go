/**
 * @description
 * This file sets up the HTTP router for the campaign service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, panic recovery, timeouts and CORS, and maps the routes to their
 * handler functions. Every route is anonymous-visitor territory; there is
 * no authenticated surface in this service.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the campaign routes.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Campaign service is healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/progress", h.handleProgress)

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.handleOpenCheckout)
			r.Post("/{sessionID}/proceed", h.handleProceed)
			r.Post("/{sessionID}/confirm", h.handleConfirmEmbedded)
			r.Post("/{sessionID}/cancel", h.handleCancelCheckout)
			r.Delete("/{sessionID}", h.handleCloseCheckout)
		})

		r.Route("/forest", func(r chi.Router) {
			r.Get("/", h.handleForest)
			r.Post("/select", h.handleSelectTree)
			r.Post("/deselect", h.handleDeselectTree)
		})

		r.Get("/confirmation", h.handleConfirmation)
		r.Post("/personalize", h.handlePersonalize)
	})

	return r
}
