/**
 * @description
 * This file sets up the HTTP router for the benefit-service. It defines the
 * API endpoints, associates them with their handlers, and applies middleware
 * for logging, panic recovery, timeouts, and CORS.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// BenefitRoutes creates and returns the router for the benefit endpoints.
// allowedOrigins is a comma-separated list; empty allows any origin.
func BenefitRoutes(h *BenefitHandlers, allowedOrigins string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := []string{"*"}
	if trimmed := strings.TrimSpace(allowedOrigins); trimmed != "" {
		origins = strings.Split(trimmed, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Get("/", h.ListBenefitsHandler)
	r.Get("/active", h.ListActiveBenefitsHandler)
	r.Get("/{id}", h.GetBenefitHandler)
	r.Post("/", h.CreateBenefitHandler)
	r.Put("/{id}", h.UpdateBenefitHandler)
	r.Delete("/{id}", h.DeleteBenefitHandler)
	r.Post("/transfer", h.TransferHandler)

	return r
}
