package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AuthRoutes builds the auth service router.
func AuthRoutes(h *AuthHandler, mw *Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/refresh", h.Refresh)
	r.Post("/api/auth/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.Get("/api/auth/profile", h.Profile)
	})

	return r
}

// CatalogRoutes builds the catalog service router. Reads are public (with
// best-effort identity), writes are admin-only.
func CatalogRoutes(h *CatalogHandler, mw *Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(mw.OptionalAuth)
		r.Get("/api/products", h.List)
		r.Get("/api/products/{id}", h.Get)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.Use(mw.RequireAdmin)
		r.Post("/api/products", h.Create)
	})

	return r
}
