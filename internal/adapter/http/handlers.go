package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/archsaint/storefront/internal/domain/order"
	"github.com/archsaint/storefront/internal/domain/product"
	"github.com/archsaint/storefront/internal/domain/user"
	"github.com/archsaint/storefront/internal/middleware"
	"github.com/archsaint/storefront/internal/port/messagequeue"
	"github.com/archsaint/storefront/internal/service"
)

const maxUploadSize = 32 << 20 // 32 MB across all staged images

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Orders   *service.OrderService
	Products *service.ProductService
	Auth     *service.AuthService
	Queue    messagequeue.Queue
	DB       Pinger
	Cache    Pinger
	TempDir  string
}

// resolvedResponse wraps a record with the source that served it.
type resolvedResponse struct {
	Data   any            `json:"data"`
	Source service.Source `json:"source"`
}

// --- Auth ---

// Register handles POST /api/v1/auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeDomainError(w, err, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Products ---

// ListProducts handles GET /api/v1/products
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit := pageLimit(r)
	result, source, err := h.Products.List(r.Context(), page, limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": result.Records,
		"total":    result.Total,
		"source":   source,
	})
}

// ListFeaturedProducts handles GET /api/v1/products/featured
func (h *Handlers) ListFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	page, limit := pageLimit(r)
	products, err := h.Products.ListFeatured(r.Context(), page, limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if products == nil {
		products = []product.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// SearchProducts handles GET /api/v1/products/search
func (h *Handlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	q := product.SearchQuery{
		Term:   qp.Get("q"),
		Brand:  qp.Get("brand"),
		SortBy: product.SortOrder(qp.Get("sort")),
	}
	q.Page, q.Limit = pageLimit(r)
	if v, err := strconv.ParseFloat(qp.Get("min_price"), 64); err == nil {
		q.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(qp.Get("max_price"), 64); err == nil {
		q.MaxPrice = &v
	}

	result, err := h.Products.Search(r.Context(), q)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": result.Records,
		"total":    result.Total,
	})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	p, source, err := h.Products.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, resolvedResponse{Data: p, Source: source})
}

// CreateProduct handles POST /api/v1/products. The body is either JSON or a
// multipart form with a "data" JSON field and "images" file parts; staged
// image files are handed to the product service, which enqueues their
// cleanup.
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req product.CreateRequest
	paths, ok := h.readWithUploads(w, r, &req)
	if !ok {
		return
	}

	p, err := h.Products.Create(r.Context(), &req, paths)
	if err != nil {
		writeDomainError(w, err, "product creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	var req product.UpdateRequest
	paths, ok := h.readWithUploads(w, r, &req)
	if !ok {
		return
	}

	p, err := h.Products.Update(r.Context(), id, &req, paths)
	if err != nil {
		writeDomainError(w, err, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Products.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Orders ---

// CreateOrder handles POST /api/v1/orders. The order is created for the
// authenticated user; confirmation mail is sent asynchronously.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	req, ok := readJSON[order.CreateRequest](w, r)
	if !ok {
		return
	}
	req.UserID = claims.UserID

	o, err := h.Orders.Create(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "order creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// GetOrder handles GET /api/v1/orders/{id}. Customers may only read their
// own orders.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	o, source, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "order not found")
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims.Role != user.RoleAdmin && o.UserID != claims.UserID {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, resolvedResponse{Data: o, Source: source})
}

// ListOrders handles GET /api/v1/orders (admin).
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := pageLimit(r)
	result, source, err := h.Orders.List(r.Context(), page, limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": result.Records,
		"total":  result.Total,
		"source": source,
	})
}

// ListMyOrders handles GET /api/v1/orders/me
func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	_, limit := pageLimit(r)

	orders, source, err := h.Orders.ListForUser(r.Context(), claims.UserID, limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"source": source,
	})
}

// SearchOrders handles GET /api/v1/orders/search (admin).
func (h *Handlers) SearchOrders(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	q := order.SearchQuery{Status: order.Status(qp.Get("status"))}
	if v, err := strconv.ParseFloat(qp.Get("min_price"), 64); err == nil {
		q.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(qp.Get("max_price"), 64); err == nil {
		q.MaxPrice = &v
	}
	_, q.Limit = pageLimit(r)

	orders, err := h.Orders.Search(r.Context(), q)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// UpdateOrderStatus handles PATCH /api/v1/orders/{id}/status (admin).
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[order.UpdateRequest](w, r)
	if !ok {
		return
	}

	o, err := h.Orders.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		writeDomainError(w, err, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// DeleteOrder handles DELETE /api/v1/orders/{id} (admin).
func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Orders.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "order not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Health ---

// Health handles GET /health. The database is the only hard dependency;
// the cache and queue degrade gracefully, so their outage reports as
// degraded rather than unavailable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbOK := h.DB == nil || h.DB.Ping(ctx) == nil
	cacheOK := h.Cache == nil || h.Cache.Ping(ctx) == nil
	queueOK := h.Queue == nil || h.Queue.IsConnected()

	status := http.StatusOK
	overall := "ok"
	switch {
	case !dbOK:
		status = http.StatusServiceUnavailable
		overall = "unavailable"
	case !cacheOK || !queueOK:
		overall = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status":   overall,
		"database": dbOK,
		"cache":    cacheOK,
		"queue":    queueOK,
	})
}

// readWithUploads decodes the request either as plain JSON or as a
// multipart form with a "data" JSON field plus "images" file parts. File
// parts are staged into TempDir; the returned paths must be handed to the
// service so they reach the cleanup queue.
func (h *Handlers) readWithUploads(w http.ResponseWriter, r *http.Request, dst any) ([]string, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return nil, false
		}
		return nil, true
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	if data := r.FormValue("data"); data != "" {
		if err := json.Unmarshal([]byte(data), dst); err != nil {
			writeError(w, http.StatusBadRequest, "invalid data field")
			return nil, false
		}
	}

	var paths []string
	for _, fh := range r.MultipartForm.File["images"] {
		path, err := h.stageUpload(fh)
		if err != nil {
			writeInternalError(w, fmt.Errorf("stage upload: %w", err))
			return paths, false
		}
		paths = append(paths, path)
	}
	return paths, true
}

func (h *Handlers) stageUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(h.TempDir, "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", err
	}
	defer func() { _ = tmp.Close() }()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
