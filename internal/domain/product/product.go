// Package product defines the product catalog domain model.
package product

import (
	"fmt"
	"time"

	"github.com/archsaint/storefront/internal/domain"
)

// Product represents a catalog item.
type Product struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Images       []string  `json:"images"`
	Category     []string  `json:"category"`
	Brand        string    `json:"brand"`
	Weight       int       `json:"weight"`
	Dimensions   string    `json:"dimensions"`
	Price        float64   `json:"price"`
	DiscountRate int       `json:"discount_rate"`
	Stock        int       `json:"stock"`
	Slug         string    `json:"slug"`
	Featured     bool      `json:"featured"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DiscountedPrice returns the effective unit price after the discount rate
// is applied.
func (p *Product) DiscountedPrice() float64 {
	return p.Price * (1 - float64(p.DiscountRate)/100)
}

// CreateRequest holds the fields needed to create a new product. Image
// uploads travel separately as multipart files.
type CreateRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     []string `json:"category"`
	Brand        string   `json:"brand"`
	Weight       int      `json:"weight"`
	Dimensions   string   `json:"dimensions"`
	Price        float64  `json:"price"`
	DiscountRate int      `json:"discount_rate"`
	Stock        int      `json:"stock"`
	Slug         string   `json:"slug"`
	Featured     bool     `json:"featured"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if r.Price < 0 {
		return fmt.Errorf("price must not be negative: %w", domain.ErrValidation)
	}
	if r.DiscountRate < 0 || r.DiscountRate > 100 {
		return fmt.Errorf("discount_rate must be between 0 and 100: %w", domain.ErrValidation)
	}
	if r.Stock < 0 {
		return fmt.Errorf("stock must not be negative: %w", domain.ErrValidation)
	}
	return nil
}

// UpdateRequest holds optional fields for a partial product update.
type UpdateRequest struct {
	Name         *string  `json:"name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Category     []string `json:"category,omitempty"`
	Brand        *string  `json:"brand,omitempty"`
	Weight       *int     `json:"weight,omitempty"`
	Dimensions   *string  `json:"dimensions,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	DiscountRate *int     `json:"discount_rate,omitempty"`
	Stock        *int     `json:"stock,omitempty"`
	Slug         *string  `json:"slug,omitempty"`
	Featured     *bool    `json:"featured,omitempty"`
	Images       []string `json:"images,omitempty"`
}

// Validate checks the optional fields of an UpdateRequest.
func (r *UpdateRequest) Validate() error {
	if r.Price != nil && *r.Price < 0 {
		return fmt.Errorf("price must not be negative: %w", domain.ErrValidation)
	}
	if r.DiscountRate != nil && (*r.DiscountRate < 0 || *r.DiscountRate > 100) {
		return fmt.Errorf("discount_rate must be between 0 and 100: %w", domain.ErrValidation)
	}
	if r.Stock != nil && *r.Stock < 0 {
		return fmt.Errorf("stock must not be negative: %w", domain.ErrValidation)
	}
	return nil
}

// SortOrder names a supported listing sort.
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortNameAsc   SortOrder = "name_asc"
	SortNameDesc  SortOrder = "name_desc"
)

// SearchQuery holds the filters for a product search.
type SearchQuery struct {
	Term     string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	SortBy   SortOrder
	Page     int
	Limit    int
}
