// Package database defines the port interface for the persistent store.
// The store is the single source of truth; cache entries are always
// reconstructable from it.
package database

import (
	"context"

	"github.com/archsaint/storefront/internal/domain/order"
	"github.com/archsaint/storefront/internal/domain/product"
	"github.com/archsaint/storefront/internal/domain/user"
)

// Page holds a page of records plus the total count across all pages.
type Page[T any] struct {
	Records []T
	Total   int
}

// Store is the port interface for persistence. Implementations return
// domain.ErrNotFound when an entity is absent and domain.ErrConflict on
// unique-constraint violations.
type Store interface {
	// --- Users ---

	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id int64) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	// --- Products ---

	CreateProduct(ctx context.Context, p *product.Product) error
	GetProduct(ctx context.Context, id int64) (*product.Product, error)
	ListProducts(ctx context.Context, page, limit int) (*Page[product.Product], error)
	ListFeaturedProducts(ctx context.Context, page, limit int) ([]product.Product, error)
	SearchProducts(ctx context.Context, q product.SearchQuery) (*Page[product.Product], error)
	UpdateProduct(ctx context.Context, p *product.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	// --- Orders ---

	// CreateOrder atomically validates the referenced products, captures
	// their current discounted prices, and inserts the order, its line
	// items, and the payment record. On success the returned order is
	// fully hydrated (user email, items with product details, payment).
	CreateOrder(ctx context.Context, req *order.CreateRequest) (*order.Order, error)

	// GetOrder returns an order hydrated with the owning user's email and
	// line items including product details.
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrders(ctx context.Context, page, limit int) (*Page[order.Order], error)
	ListUserOrders(ctx context.Context, userID int64, limit int) ([]order.Order, error)
	SearchOrders(ctx context.Context, q order.SearchQuery) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}
