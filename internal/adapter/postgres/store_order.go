package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/archsaint/storefront/internal/domain"
	"github.com/archsaint/storefront/internal/domain/order"
	"github.com/archsaint/storefront/internal/domain/product"
	"github.com/archsaint/storefront/internal/port/database"
)

// CreateOrder atomically validates the referenced products, captures their
// current discounted prices, and inserts the order, its line items, and the
// payment record. The transaction is bounded by the configured timeout; on
// abort no partial order state is persisted.
func (s *Store) CreateOrder(ctx context.Context, req *order.CreateRequest) (*order.Order, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.pool.Begin(txCtx)
	if err != nil {
		return nil, fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Bound the wait for row locks so a contended product row cannot hold
	// the request past the transaction budget.
	if _, err := tx.Exec(txCtx,
		fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	// Capture each product's current discounted price. Price is fixed at
	// order time; it is never re-read from the catalog afterwards.
	var totalPrice float64
	var totalItems int
	prices := make([]float64, len(req.Items))
	for i, it := range req.Items {
		var price float64
		var discountRate int
		err := tx.QueryRow(txCtx,
			`SELECT price, discount_rate FROM products WHERE id = $1`, it.ProductID).
			Scan(&price, &discountRate)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("product %d: %w", it.ProductID, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("load product %d: %w", it.ProductID, err)
		}
		prices[i] = price * (1 - float64(discountRate)/100)
		totalPrice += prices[i] * float64(it.Quantity)
		totalItems += it.Quantity
	}

	var orderID int64
	err = tx.QueryRow(txCtx,
		`INSERT INTO orders (user_id, total_items, total_price, delivery_method, shipping_address)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		req.UserID, totalItems, totalPrice, req.DeliveryMethod, req.ShippingAddress).
		Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i, it := range req.Items {
		if _, err := tx.Exec(txCtx,
			`INSERT INTO order_items (order_id, product_id, quantity, price)
			 VALUES ($1, $2, $3, $4)`,
			orderID, it.ProductID, it.Quantity, prices[i]); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if _, err := tx.Exec(txCtx,
		`INSERT INTO payments (order_id, user_id, amount, method, gateway_provider)
		 VALUES ($1, $2, $3, $4, $5)`,
		orderID, req.UserID, totalPrice, req.PaymentMethod, req.GatewayProvider); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, fmt.Errorf("commit order tx: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

const orderColumns = `o.id, o.user_id, u.email, o.status, o.total_items, o.total_price,
	o.delivery_method, o.shipping_address, o.created_at, o.updated_at`

func scanOrder(row scannable) (*order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.Status, &o.TotalItems, &o.TotalPrice,
		&o.DeliveryMethod, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrder returns an order hydrated with the owning user's email, its line
// items with product details, and the payment record.
func (s *Store) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders o JOIN users u ON u.id = o.user_id
		 WHERE o.id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		return nil, notFoundWrap(err, "get order %d", id)
	}

	if err := s.hydrateOrders(ctx, []*order.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, page, limit int) (*database.Page[order.Order], error) {
	page, limit = normalizeLimit(page, limit)

	orders, err := s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders o JOIN users u ON u.id = o.user_id
		 ORDER BY o.created_at DESC OFFSET $1 LIMIT $2`,
		(page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	return &database.Page[order.Order]{Records: orders, Total: total}, nil
}

func (s *Store) ListUserOrders(ctx context.Context, userID int64, limit int) ([]order.Order, error) {
	_, limit = normalizeLimit(1, limit)

	orders, err := s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders o JOIN users u ON u.id = o.user_id
		 WHERE o.user_id = $1 ORDER BY o.created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user %d orders: %w", userID, err)
	}
	return orders, nil
}

func (s *Store) SearchOrders(ctx context.Context, q order.SearchQuery) ([]order.Order, error) {
	where := ` WHERE TRUE`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Status != "" {
		where += ` AND o.status = ` + arg(string(q.Status))
	}
	if q.MinPrice != nil {
		where += ` AND o.total_price >= ` + arg(*q.MinPrice)
	}
	if q.MaxPrice != nil {
		where += ` AND o.total_price <= ` + arg(*q.MaxPrice)
	}

	limit := q.Limit
	if limit < 1 || limit > 50 {
		limit = 25
	}

	orders, err := s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders o JOIN users u ON u.id = o.user_id`+
			where+` ORDER BY o.created_at DESC LIMIT `+arg(limit), args...)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err := execExpectOne(tag, err, "update order %d", id); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete order %d", id)
}

// queryOrders runs an order query and hydrates the results with their line
// items and payment records.
func (s *Store) queryOrders(ctx context.Context, query string, args ...any) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []order.Order
	var refs []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		refs = append(refs, &orders[i])
	}
	if err := s.hydrateOrders(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// hydrateOrders attaches line items (with product details) and payment
// records to the given orders with two batched queries.
func (s *Store) hydrateOrders(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []order.Item{}
	}

	rows, err := s.pool.Query(ctx,
		`SELECT i.id, i.order_id, i.product_id, i.quantity, i.price,
			p.id, p.name, p.description, p.images, p.category, p.brand, p.weight,
			p.dimensions, p.price, p.discount_rate, p.stock, p.slug, p.featured,
			p.created_at, p.updated_at
		 FROM order_items i JOIN products p ON p.id = i.product_id
		 WHERE i.order_id = ANY($1) ORDER BY i.id ASC`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it order.Item
		var orderID int64
		var p product.Product
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.Quantity, &it.Price,
			&p.ID, &p.Name, &p.Description, &p.Images, &p.Category, &p.Brand, &p.Weight,
			&p.Dimensions, &p.Price, &p.DiscountRate, &p.Stock, &p.Slug, &p.Featured,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		it.Product = &p
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load order items: %w", err)
	}

	payRows, err := s.pool.Query(ctx,
		`SELECT id, order_id, user_id, amount, method, gateway_provider, created_at
		 FROM payments WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	defer payRows.Close()

	for payRows.Next() {
		var p order.Payment
		if err := payRows.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Method,
			&p.GatewayProvider, &p.CreatedAt); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		if o, ok := byID[p.OrderID]; ok {
			pay := p
			o.Payment = &pay
		}
	}
	return payRows.Err()
}
