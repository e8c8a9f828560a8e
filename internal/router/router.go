// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// bizdir API. Routes are grouped by audience: public, authenticated,
// business owners and system administrators.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bizdir/internal/auth"
	"bizdir/internal/handlers"
	"bizdir/internal/metrics"
	"bizdir/internal/middleware"
	"bizdir/internal/models"
)

// Deps holds everything the route table needs.
type Deps struct {
	Tokens      *auth.Tokens
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter // nil disables rate limiting

	Health     *handlers.Health
	Auth       *handlers.Auth
	Categories *handlers.Categories
	Businesses *handlers.Businesses
	Ads        *handlers.Ads
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.SecureHeaders)

	r.Method(http.MethodGet, "/health", d.Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, "not_found", "Route not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed.")
	})

	r.Route("/api", func(r chi.Router) {
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Middleware)
		}
		r.Use(middleware.Authenticate(d.Tokens))

		requireAdmin := middleware.RequireRole(models.RoleSystemAdmin)
		requireOwner := middleware.RequireRole(models.RoleBusinessOwner)

		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
			r.Post("/refresh", d.Auth.Refresh)
			r.Post("/logout", d.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/logout-all", d.Auth.LogoutAll)
				r.Get("/me", d.Auth.Me)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/2fa/setup", d.Auth.SetupTOTP)
				r.Post("/2fa/enable", d.Auth.EnableTOTP)
			})
		})

		// Public catalogue
		r.Get("/categories", d.Categories.Forest)
		r.Get("/categories/roots", d.Categories.Roots)
		r.Get("/categories/{id}", d.Categories.Get)

		r.Get("/businesses", d.Businesses.List)
		r.Get("/businesses/{idOrSlug}", d.Businesses.Get)

		// Ads
		r.Route("/ads", func(r chi.Router) {
			r.Get("/", d.Ads.Eligible)
			r.Post("/{id}/click", d.Ads.Click)

			r.With(middleware.RequireRole(models.RoleSystemAdmin, models.RoleBusinessOwner)).Post("/", d.Ads.Create)
			r.With(requireOwner).Get("/mine", d.Ads.ListMine)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/{id}", d.Ads.Get)
				r.Put("/{id}", d.Ads.Update)
			})
		})

		// Business owners
		r.Route("/owner", func(r chi.Router) {
			r.Use(requireOwner)
			r.Post("/businesses", d.Businesses.Create)
			r.Get("/businesses", d.Businesses.ListMine)
			r.Put("/businesses/{id}", d.Businesses.Update)
		})

		// System administrators
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Post("/categories", d.Categories.Create)
			r.Put("/categories/{id}", d.Categories.Update)
			r.Delete("/categories/{id}", d.Categories.Delete)

			r.Patch("/businesses/{id}/active", d.Businesses.SetActive)

			r.Get("/ads", d.Ads.ListAll)
			r.Get("/ads/export", d.Ads.Export)
			r.Post("/ads/bulk-delete", d.Ads.BulkDelete)
			r.Patch("/ads/{id}/status", d.Ads.SetStatus)
			r.Delete("/ads/{id}", d.Ads.Delete)

			r.Get("/users", d.Auth.ListUsers)
			r.Patch("/users/{id}/active", d.Auth.SetUserActive)
		})
	})

	return r
}

func writeStatus(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
