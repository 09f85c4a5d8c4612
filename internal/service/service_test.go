package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/archsaint/storefront/internal/domain/order"
	"github.com/archsaint/storefront/internal/domain/product"
	"github.com/archsaint/storefront/internal/domain/user"
	"github.com/archsaint/storefront/internal/port/database"
	"github.com/archsaint/storefront/internal/port/messagequeue"
)

// memCache is an in-memory cache.Cache with failure injection. TTLs are
// recorded but not enforced; expiry behavior is covered by the adapter
// tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	fail    bool
}

func newMemCache() *memCache {
	return &memCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

var errCacheDown = errors.New("cache down")

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, false, errCacheDown
	}
	data, ok := c.entries[key]
	return data, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errCacheDown
	}
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errCacheDown
	}
	delete(c.entries, key)
	return nil
}

func (c *memCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errCacheDown
	}
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// fakeQueue records published messages and can be made to fail.
type fakeQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	fail      bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{published: make(map[string][][]byte)}
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("queue unreachable")
	}
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

func (q *fakeQueue) count(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.published[subject])
}

// fakeStore implements database.Store with function fields; unset methods
// fail the call.
type fakeStore struct {
	createUser     func(ctx context.Context, u *user.User) error
	getUser        func(ctx context.Context, id int64) (*user.User, error)
	getUserByEmail func(ctx context.Context, email string) (*user.User, error)

	createProduct  func(ctx context.Context, p *product.Product) error
	getProduct     func(ctx context.Context, id int64) (*product.Product, error)
	listProducts   func(ctx context.Context, page, limit int) (*database.Page[product.Product], error)
	listFeatured   func(ctx context.Context, page, limit int) ([]product.Product, error)
	searchProducts func(ctx context.Context, q product.SearchQuery) (*database.Page[product.Product], error)
	updateProduct  func(ctx context.Context, p *product.Product) error
	deleteProduct  func(ctx context.Context, id int64) error

	createOrder    func(ctx context.Context, req *order.CreateRequest) (*order.Order, error)
	getOrder       func(ctx context.Context, id int64) (*order.Order, error)
	listOrders     func(ctx context.Context, page, limit int) (*database.Page[order.Order], error)
	listUserOrders func(ctx context.Context, userID int64, limit int) ([]order.Order, error)
	searchOrders   func(ctx context.Context, q order.SearchQuery) ([]order.Order, error)
	updateStatus   func(ctx context.Context, id int64, status order.Status) (*order.Order, error)
	deleteOrder    func(ctx context.Context, id int64) error
}

var errNotStubbed = errors.New("not stubbed")

func (s *fakeStore) CreateUser(ctx context.Context, u *user.User) error {
	if s.createUser == nil {
		return errNotStubbed
	}
	return s.createUser(ctx, u)
}

func (s *fakeStore) GetUser(ctx context.Context, id int64) (*user.User, error) {
	if s.getUser == nil {
		return nil, errNotStubbed
	}
	return s.getUser(ctx, id)
}

func (s *fakeStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	if s.getUserByEmail == nil {
		return nil, errNotStubbed
	}
	return s.getUserByEmail(ctx, email)
}

func (s *fakeStore) CreateProduct(ctx context.Context, p *product.Product) error {
	if s.createProduct == nil {
		return errNotStubbed
	}
	return s.createProduct(ctx, p)
}

func (s *fakeStore) GetProduct(ctx context.Context, id int64) (*product.Product, error) {
	if s.getProduct == nil {
		return nil, errNotStubbed
	}
	return s.getProduct(ctx, id)
}

func (s *fakeStore) ListProducts(ctx context.Context, page, limit int) (*database.Page[product.Product], error) {
	if s.listProducts == nil {
		return nil, errNotStubbed
	}
	return s.listProducts(ctx, page, limit)
}

func (s *fakeStore) ListFeaturedProducts(ctx context.Context, page, limit int) ([]product.Product, error) {
	if s.listFeatured == nil {
		return nil, errNotStubbed
	}
	return s.listFeatured(ctx, page, limit)
}

func (s *fakeStore) SearchProducts(ctx context.Context, q product.SearchQuery) (*database.Page[product.Product], error) {
	if s.searchProducts == nil {
		return nil, errNotStubbed
	}
	return s.searchProducts(ctx, q)
}

func (s *fakeStore) UpdateProduct(ctx context.Context, p *product.Product) error {
	if s.updateProduct == nil {
		return errNotStubbed
	}
	return s.updateProduct(ctx, p)
}

func (s *fakeStore) DeleteProduct(ctx context.Context, id int64) error {
	if s.deleteProduct == nil {
		return errNotStubbed
	}
	return s.deleteProduct(ctx, id)
}

func (s *fakeStore) CreateOrder(ctx context.Context, req *order.CreateRequest) (*order.Order, error) {
	if s.createOrder == nil {
		return nil, errNotStubbed
	}
	return s.createOrder(ctx, req)
}

func (s *fakeStore) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	if s.getOrder == nil {
		return nil, errNotStubbed
	}
	return s.getOrder(ctx, id)
}

func (s *fakeStore) ListOrders(ctx context.Context, page, limit int) (*database.Page[order.Order], error) {
	if s.listOrders == nil {
		return nil, errNotStubbed
	}
	return s.listOrders(ctx, page, limit)
}

func (s *fakeStore) ListUserOrders(ctx context.Context, userID int64, limit int) ([]order.Order, error) {
	if s.listUserOrders == nil {
		return nil, errNotStubbed
	}
	return s.listUserOrders(ctx, userID, limit)
}

func (s *fakeStore) SearchOrders(ctx context.Context, q order.SearchQuery) ([]order.Order, error) {
	if s.searchOrders == nil {
		return nil, errNotStubbed
	}
	return s.searchOrders(ctx, q)
}

func (s *fakeStore) UpdateOrderStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error) {
	if s.updateStatus == nil {
		return nil, errNotStubbed
	}
	return s.updateStatus(ctx, id, status)
}

func (s *fakeStore) DeleteOrder(ctx context.Context, id int64) error {
	if s.deleteOrder == nil {
		return errNotStubbed
	}
	return s.deleteOrder(ctx, id)
}

// --- shared fixtures ---

func sampleOrder(id int64) *order.Order {
	return &order.Order{
		ID:              id,
		UserID:          7,
		UserEmail:       "buyer@example.com",
		Status:          order.StatusPending,
		TotalItems:      3,
		TotalPrice:      2300,
		DeliveryMethod:  "standard",
		ShippingAddress: "1 Main St",
		Items: []order.Item{
			{ID: 1, ProductID: 1, Quantity: 2, Price: 900},
			{ID: 2, ProductID: 2, Quantity: 1, Price: 500},
		},
	}
}

func sampleProduct(id int64) *product.Product {
	return &product.Product{
		ID:    id,
		Name:  fmt.Sprintf("Product %d", id),
		Price: 1000,
		Slug:  fmt.Sprintf("product-%d", id),
		Stock: 5,
	}
}
