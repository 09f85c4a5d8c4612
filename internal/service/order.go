package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/archsaint/storefront/internal/adapter/otel"
	"github.com/archsaint/storefront/internal/domain/order"
	"github.com/archsaint/storefront/internal/port/database"
)

// OrderService is the application service for orders. Reads go through the
// cache; writes go to the store and then invalidate or prime the cache.
type OrderService struct {
	store    database.Store
	cache    *EntityCache[order.Order]
	resolver *Resolver[order.Order]
	effects  *SideEffects
	metrics  *otel.Metrics
}

// NewOrderService creates an OrderService.
func NewOrderService(store database.Store, cache *EntityCache[order.Order], effects *SideEffects, metrics *otel.Metrics) *OrderService {
	s := &OrderService{
		store:   store,
		cache:   cache,
		effects: effects,
		metrics: metrics,
	}
	s.resolver = NewResolver(cache, store.GetOrder)
	return s
}

// Create validates the request, creates the order atomically, and runs the
// post-commit side effects (cache priming, confirmation mail job). Side
// effect failures never fail the creation.
func (s *OrderService) Create(ctx context.Context, req *order.CreateRequest) (*order.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o, err := s.store.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	s.effects.AfterOrderCreate(ctx, o)

	if s.metrics != nil {
		s.metrics.OrdersCreated.Add(ctx, 1)
	}
	slog.Info("order created",
		"order_id", o.ID,
		"user_id", o.UserID,
		"total_items", o.TotalItems,
		"total_price", o.TotalPrice,
	)
	return o, nil
}

// Get resolves an order read-through: cache first, then the store with a
// cache backfill. The returned Source reports which path served the read.
func (s *OrderService) Get(ctx context.Context, id int64) (*order.Order, Source, error) {
	o, source, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, source, err
	}
	s.countResolve(ctx, source)
	return o, source, nil
}

// List returns one page of all orders, served from the cache when possible.
// The returned Source reports which path served the page.
func (s *OrderService) List(ctx context.Context, page, limit int) (*database.Page[order.Order], Source, error) {
	if cached, ok := GetPage[order.Order, database.Page[order.Order]](ctx, s.cache, page, limit); ok {
		return cached, SourceCache, nil
	}

	result, err := s.store.ListOrders(ctx, page, limit)
	if err != nil {
		return nil, SourceDatabase, err
	}
	SetPage(ctx, s.cache, page, limit, result)
	return result, SourceDatabase, nil
}

// ListForUser returns the user's most recent orders, served from the cache
// when possible.
func (s *OrderService) ListForUser(ctx context.Context, userID int64, limit int) ([]order.Order, Source, error) {
	if cached, ok := s.cache.GetUserListing(ctx, userID, limit); ok {
		return cached, SourceCache, nil
	}

	orders, err := s.store.ListUserOrders(ctx, userID, limit)
	if err != nil {
		return nil, SourceDatabase, err
	}
	s.cache.SetUserListing(ctx, userID, limit, orders)
	return orders, SourceDatabase, nil
}

// Search filters orders by status and price bounds. Search results are not
// cached; the filter space is unbounded.
func (s *OrderService) Search(ctx context.Context, q order.SearchQuery) ([]order.Order, error) {
	return s.store.SearchOrders(ctx, q)
}

// UpdateStatus transitions an order's status and invalidates its cache
// entries, listing sweep included.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, req *order.UpdateRequest) (*order.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o, err := s.store.UpdateOrderStatus(ctx, id, req.Status)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	slog.Info("order status updated", "order_id", id, "status", req.Status)
	return o, nil
}

// Delete removes an order and invalidates its cache entries.
func (s *OrderService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	slog.Info("order deleted", "order_id", id)
	return nil
}

func (s *OrderService) countResolve(ctx context.Context, source Source) {
	if s.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", s.cache.Kind()),
		attribute.String("source", string(source)),
	)
	s.metrics.ResolveSource.Add(ctx, 1, attrs)
	if source == SourceCache {
		s.metrics.CacheHits.Add(ctx, 1, attrs)
	} else {
		s.metrics.CacheMisses.Add(ctx, 1, attrs)
	}
}
