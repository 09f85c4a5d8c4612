package postgres

import (
	"context"
	"fmt"

	"github.com/archsaint/storefront/internal/domain/product"
	"github.com/archsaint/storefront/internal/port/database"
)

const productColumns = `id, name, description, images, category, brand, weight,
	dimensions, price, discount_rate, stock, slug, featured, created_at, updated_at`

func scanProduct(row scannable) (*product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Images, &p.Category, &p.Brand,
		&p.Weight, &p.Dimensions, &p.Price, &p.DiscountRate, &p.Stock, &p.Slug,
		&p.Featured, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *product.Product) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, images, category, brand, weight,
			dimensions, price, discount_rate, stock, slug, featured)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.Description, pgTextArray(p.Images), pgTextArray(p.Category), p.Brand,
		p.Weight, p.Dimensions, p.Price, p.DiscountRate, p.Stock, p.Slug, p.Featured)

	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*product.Product, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		return nil, notFoundWrap(err, "get product %d", id)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, page, limit int) (*database.Page[product.Product], error) {
	page, limit = normalizeLimit(page, limit)

	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id ASC OFFSET $1 LIMIT $2`,
		(page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]product.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	return &database.Page[product.Product]{Records: products, Total: total}, nil
}

func (s *Store) ListFeaturedProducts(ctx context.Context, page, limit int) ([]product.Product, error) {
	page, limit = normalizeLimit(page, limit)

	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE featured ORDER BY id ASC OFFSET $1 LIMIT $2`,
		(page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	defer rows.Close()

	products := make([]product.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) SearchProducts(ctx context.Context, q product.SearchQuery) (*database.Page[product.Product], error) {
	page, limit := normalizeLimit(q.Page, q.Limit)

	where := ` WHERE TRUE`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Term != "" {
		ph := arg("%" + q.Term + "%")
		where += ` AND (name ILIKE ` + ph + ` OR description ILIKE ` + ph + `)`
	}
	if q.Brand != "" {
		where += ` AND brand ILIKE ` + arg(q.Brand)
	}
	if q.MinPrice != nil {
		where += ` AND price >= ` + arg(*q.MinPrice)
	}
	if q.MaxPrice != nil {
		where += ` AND price <= ` + arg(*q.MaxPrice)
	}

	orderBy := ` ORDER BY created_at DESC`
	switch q.SortBy {
	case product.SortPriceAsc:
		orderBy = ` ORDER BY price ASC`
	case product.SortPriceDesc:
		orderBy = ` ORDER BY price DESC`
	case product.SortNameAsc:
		orderBy = ` ORDER BY name ASC`
	case product.SortNameDesc:
		orderBy = ` ORDER BY name DESC`
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + orderBy +
		` OFFSET ` + arg((page-1)*limit) + ` LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	products := make([]product.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	return &database.Page[product.Product]{Records: products, Total: total}, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *product.Product) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET name = $2, description = $3, images = $4, category = $5,
			brand = $6, weight = $7, dimensions = $8, price = $9, discount_rate = $10,
			stock = $11, slug = $12, featured = $13, updated_at = now()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, pgTextArray(p.Images), pgTextArray(p.Category),
		p.Brand, p.Weight, p.Dimensions, p.Price, p.DiscountRate, p.Stock, p.Slug, p.Featured)
	return execExpectOne(tag, err, "update product %d", p.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete product %d", id)
}
