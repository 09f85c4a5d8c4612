package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	sfhttp "github.com/archsaint/storefront/internal/adapter/http"
	"github.com/archsaint/storefront/internal/config"
	"github.com/archsaint/storefront/internal/domain"
	"github.com/archsaint/storefront/internal/domain/order"
	"github.com/archsaint/storefront/internal/domain/product"
	"github.com/archsaint/storefront/internal/domain/user"
	"github.com/archsaint/storefront/internal/port/database"
	"github.com/archsaint/storefront/internal/port/messagequeue"
	"github.com/archsaint/storefront/internal/service"
)

// memStore is a stateful in-memory database.Store for handler tests. Order
// creation mirrors the persistent store: it captures discounted prices at
// order time and computes the totals.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]*user.User
	products map[int64]*product.Product
	orders   map[int64]*order.Order
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*user.User),
		products: make(map[int64]*product.Product),
		orders:   make(map[int64]*order.Order),
	}
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	u.ID = m.id()
	m.users[u.ID] = u
	return nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) CreateProduct(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.products[p.ID] = p
	return nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListProducts(_ context.Context, _, _ int) (*database.Page[product.Product], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &database.Page[product.Product]{Total: len(m.products)}
	for _, p := range m.products {
		page.Records = append(page.Records, *p)
	}
	return page, nil
}

func (m *memStore) ListFeaturedProducts(_ context.Context, _, _ int) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []product.Product
	for _, p := range m.products {
		if p.Featured {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) SearchProducts(_ context.Context, _ product.SearchQuery) (*database.Page[product.Product], error) {
	return m.ListProducts(context.Background(), 1, 10)
}

func (m *memStore) UpdateProduct(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) CreateOrder(_ context.Context, req *order.CreateRequest) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[req.UserID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	o := &order.Order{
		ID:              m.id(),
		UserID:          req.UserID,
		UserEmail:       u.Email,
		Status:          order.StatusPending,
		DeliveryMethod:  req.DeliveryMethod,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       time.Now().UTC(),
	}
	for _, it := range req.Items {
		p, ok := m.products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, domain.ErrNotFound)
		}
		price := p.Price * (1 - float64(p.DiscountRate)/100)
		o.Items = append(o.Items, order.Item{
			ID:        m.id(),
			ProductID: p.ID,
			Quantity:  it.Quantity,
			Price:     price,
			Product:   p,
		})
		o.TotalPrice += price * float64(it.Quantity)
		o.TotalItems += it.Quantity
	}
	o.Payment = &order.Payment{
		ID:              m.id(),
		OrderID:         o.ID,
		UserID:          o.UserID,
		Amount:          o.TotalPrice,
		Method:          req.PaymentMethod,
		GatewayProvider: req.GatewayProvider,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) GetOrder(_ context.Context, id int64) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) ListOrders(_ context.Context, _, _ int) (*database.Page[order.Order], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &database.Page[order.Order]{Total: len(m.orders)}
	for _, o := range m.orders {
		page.Records = append(page.Records, *o)
	}
	return page, nil
}

func (m *memStore) ListUserOrders(_ context.Context, userID int64, _ int) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) SearchOrders(_ context.Context, q order.SearchQuery) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if q.Status == "" || o.Status == q.Status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) UpdateOrderStatus(_ context.Context, id int64, status order.Status) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Status = status
	cp := *o
	return &cp, nil
}

func (m *memStore) DeleteOrder(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

// memCache is a minimal in-memory cache.Cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache { return &memCache{entries: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

type nopQueue struct{}

func (nopQueue) Publish(context.Context, string, []byte) error { return nil }
func (nopQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (nopQueue) Drain() error      { return nil }
func (nopQueue) Close() error      { return nil }
func (nopQueue) IsConnected() bool { return true }

type nopUploader struct{}

func (nopUploader) Upload(_ context.Context, localPath, folder string) (string, error) {
	return "https://cdn.example.com/" + folder + "/" + localPath, nil
}

type fixture struct {
	store  *memStore
	router chi.Router
	auth   *service.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	cacheStore := newMemCache()
	orderCache := service.NewEntityCache[order.Order]("order", cacheStore, time.Hour, 5*time.Minute)
	productCache := service.NewEntityCache[product.Product]("product", cacheStore, time.Hour, 5*time.Minute)

	effects := service.NewSideEffects(orderCache, nopQueue{}, nil)
	authSvc := service.NewAuthService(store, config.Auth{
		TokenSecret: "handler-test-secret",
		TokenTTL:    time.Hour,
		BcryptCost:  bcrypt.MinCost,
	})

	h := &sfhttp.Handlers{
		Orders:   service.NewOrderService(store, orderCache, effects, nil),
		Products: service.NewProductService(store, productCache, nopUploader{}, effects, "products"),
		Auth:     authSvc,
		Queue:    nopQueue{},
		TempDir:  t.TempDir(),
	}

	r := chi.NewRouter()
	r.Get("/health", h.Health)
	sfhttp.MountRoutes(r, h)

	return &fixture{store: store, router: r, auth: authSvc}
}

// registerUser creates a user through the API and returns its access token.
func (f *fixture) registerUser(t *testing.T, email string, role user.Role) string {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"name":"Test User","password":"long enough"}`, email)
	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", "", strings.NewReader(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", rec.Code, rec.Body)
	}

	var resp user.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	if role == user.RoleAdmin {
		// Promote directly in the store and log in again so the token
		// carries the admin role.
		f.store.mu.Lock()
		f.store.users[resp.User.ID].Role = user.RoleAdmin
		f.store.mu.Unlock()

		login := fmt.Sprintf(`{"email":%q,"password":"long enough"}`, email)
		rec = f.do(t, http.MethodPost, "/api/v1/auth/login", "", strings.NewReader(login))
		if rec.Code != http.StatusOK {
			t.Fatalf("login: status %d: %s", rec.Code, rec.Body)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode login response: %v", err)
		}
	}
	return resp.AccessToken
}

func (f *fixture) seedProduct(t *testing.T, price float64, discountRate int) *product.Product {
	t.Helper()
	p := &product.Product{
		Name:         "Seeded Product",
		Price:        price,
		DiscountRate: discountRate,
		Stock:        10,
		Slug:         fmt.Sprintf("seeded-%d-%d", int(price), discountRate),
	}
	if err := f.store.CreateProduct(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) do(t *testing.T, method, path, token string, body *strings.Reader) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	token := f.registerUser(t, "buyer@example.com", user.RoleCustomer)
	if token == "" {
		t.Fatal("empty access token")
	}

	// Duplicate registration is a conflict.
	body := `{"email":"buyer@example.com","name":"Dup","password":"long enough"}`
	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", "", strings.NewReader(body))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}

	// Wrong password is unauthorized.
	rec = f.do(t, http.MethodPost, "/api/v1/auth/login", "",
		strings.NewReader(`{"email":"buyer@example.com","password":"wrong password"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}
}

func TestCreateOrderComputesTotals(t *testing.T) {
	f := newFixture(t)
	token := f.registerUser(t, "buyer@example.com", user.RoleCustomer)
	p1 := f.seedProduct(t, 1000, 10)
	p2 := f.seedProduct(t, 500, 0)

	body := fmt.Sprintf(`{
		"items": [
			{"product_id": %d, "quantity": 2},
			{"product_id": %d, "quantity": 1}
		],
		"delivery_method": "standard",
		"shipping_address": "1 Main St",
		"payment_method": "card",
		"gateway_provider": "stripe"
	}`, p1.ID, p2.ID)

	rec := f.do(t, http.MethodPost, "/api/v1/orders", token, strings.NewReader(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: status %d: %s", rec.Code, rec.Body)
	}

	var o order.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if o.TotalPrice != 2300 {
		t.Errorf("TotalPrice = %v, want 2300", o.TotalPrice)
	}
	if o.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", o.TotalItems)
	}
	if o.Status != order.StatusPending {
		t.Errorf("Status = %q, want pending", o.Status)
	}
}

func TestGetOrderSourceTag(t *testing.T) {
	f := newFixture(t)
	token := f.registerUser(t, "buyer@example.com", user.RoleCustomer)
	p := f.seedProduct(t, 100, 0)

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":1}],"delivery_method":"standard","shipping_address":"1 Main St","payment_method":"card","gateway_provider":"stripe"}`, p.ID)
	rec := f.do(t, http.MethodPost, "/api/v1/orders", token, strings.NewReader(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: status %d: %s", rec.Code, rec.Body)
	}
	var o order.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatal(err)
	}

	// Creation primes the cache, so the first read is already warm.
	var resp struct {
		Source string `json:"source"`
	}
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", o.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get order: status %d: %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Source != "cache" {
		t.Errorf("source after write-through = %q, want cache", resp.Source)
	}
}

func TestGetProductColdThenWarm(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, 100, 0)

	var resp struct {
		Source string `json:"source"`
	}
	path := fmt.Sprintf("/api/v1/products/%d", p.ID)

	rec := f.do(t, http.MethodGet, path, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get product: status %d: %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Source != "database" {
		t.Errorf("cold read source = %q, want database", resp.Source)
	}

	rec = f.do(t, http.MethodGet, path, "", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Source != "cache" {
		t.Errorf("warm read source = %q, want cache", resp.Source)
	}
}

func TestOrderAuthorization(t *testing.T) {
	f := newFixture(t)
	buyerToken := f.registerUser(t, "buyer@example.com", user.RoleCustomer)
	otherToken := f.registerUser(t, "other@example.com", user.RoleCustomer)
	p := f.seedProduct(t, 100, 0)

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":1}],"delivery_method":"standard","shipping_address":"1 Main St","payment_method":"card","gateway_provider":"stripe"}`, p.ID)
	rec := f.do(t, http.MethodPost, "/api/v1/orders", buyerToken, strings.NewReader(body))
	var o order.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatal(err)
	}

	// Another customer cannot read the order.
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", o.ID), otherToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user read status = %d, want 404", rec.Code)
	}

	// Unauthenticated creation is rejected.
	rec = f.do(t, http.MethodPost, "/api/v1/orders", "", strings.NewReader(body))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated create status = %d, want 401", rec.Code)
	}

	// Customers cannot list all orders.
	rec = f.do(t, http.MethodGet, "/api/v1/orders", buyerToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer list-all status = %d, want 403", rec.Code)
	}
}

func TestProductWritesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	customerToken := f.registerUser(t, "buyer@example.com", user.RoleCustomer)
	adminToken := f.registerUser(t, "admin@example.com", user.RoleAdmin)

	body := `{"name":"Widget","price":100,"stock":5,"slug":"widget"}`

	rec := f.do(t, http.MethodPost, "/api/v1/products", customerToken, strings.NewReader(body))
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer create status = %d, want 403", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/products", adminToken, strings.NewReader(body))
	if rec.Code != http.StatusCreated {
		t.Errorf("admin create status = %d: %s", rec.Code, rec.Body)
	}
}

func TestMyOrdersListing(t *testing.T) {
	f := newFixture(t)
	token := f.registerUser(t, "buyer@example.com", user.RoleCustomer)
	p := f.seedProduct(t, 100, 0)

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":1}],"delivery_method":"standard","shipping_address":"1 Main St","payment_method":"card","gateway_provider":"stripe"}`, p.ID)
	for i := 0; i < 2; i++ {
		if rec := f.do(t, http.MethodPost, "/api/v1/orders", token, strings.NewReader(body)); rec.Code != http.StatusCreated {
			t.Fatalf("create order %d: status %d", i, rec.Code)
		}
	}

	rec := f.do(t, http.MethodGet, "/api/v1/orders/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list my orders: status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Orders []order.Order `json:"orders"`
		Source string        `json:"source"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Orders) != 2 {
		t.Errorf("my orders = %d, want 2", len(resp.Orders))
	}
	if resp.Source != "database" {
		t.Errorf("first listing source = %q, want database", resp.Source)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	f := newFixture(t)
	token := f.registerUser(t, "buyer@example.com", user.RoleCustomer)

	rec := f.do(t, http.MethodGet, "/api/v1/orders/999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/orders/not-a-number", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"ok"`)) {
		t.Errorf("health body = %s", rec.Body)
	}
}
