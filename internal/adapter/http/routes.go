package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/archsaint/storefront/internal/middleware"
)

// MountRoutes registers all API routes on the router. Catalog reads and
// auth are public; orders require a valid token and mutations of the
// catalog require the admin role.
func MountRoutes(r chi.Router, h *Handlers) {
	authn := middleware.Auth(h.Auth)

	r.Route("/api/v1", func(r chi.Router) {
		// Auth
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		// Catalog, public reads
		r.Get("/products", h.ListProducts)
		r.Get("/products/featured", h.ListFeaturedProducts)
		r.Get("/products/search", h.SearchProducts)
		r.Get("/products/{id}", h.GetProduct)

		// Catalog, admin writes
		r.Group(func(r chi.Router) {
			r.Use(authn, middleware.RequireAdmin)
			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)
		})

		// Orders, authenticated
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/orders", h.CreateOrder)
			r.Get("/orders/me", h.ListMyOrders)
			r.Get("/orders/{id}", h.GetOrder)
		})

		// Orders, admin
		r.Group(func(r chi.Router) {
			r.Use(authn, middleware.RequireAdmin)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/search", h.SearchOrders)
			r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
			r.Delete("/orders/{id}", h.DeleteOrder)
		})
	})
}
