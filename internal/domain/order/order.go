// Package order defines the order domain model: orders, their line items,
// and the payment record created alongside them.
package order

import (
	"fmt"
	"time"

	"github.com/archsaint/storefront/internal/domain"
	"github.com/archsaint/storefront/internal/domain/product"
)

// Status represents the fulfilment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ValidStatuses is the set of all valid order statuses.
var ValidStatuses = map[Status]bool{
	StatusPending:   true,
	StatusPaid:      true,
	StatusShipped:   true,
	StatusDelivered: true,
	StatusCancelled: true,
}

// Order represents a placed order, hydrated with its line items, payment
// record, and the owning user's contact email.
type Order struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	UserEmail       string    `json:"user_email,omitempty"`
	Status          Status    `json:"status"`
	TotalItems      int       `json:"total_items"`
	TotalPrice      float64   `json:"total_price"`
	DeliveryMethod  string    `json:"delivery_method"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	Items           []Item    `json:"items"`
	Payment         *Payment  `json:"payment,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Item is a single order line. Price is captured from the product at order
// time, after discount; it is never re-read from the catalog.
type Item struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     float64          `json:"price"`
	Product   *product.Product `json:"product,omitempty"`
}

// Payment is the payment record created atomically with the order.
type Payment struct {
	ID              int64     `json:"id"`
	OrderID         int64     `json:"order_id"`
	UserID          int64     `json:"user_id"`
	Amount          float64   `json:"amount"`
	Method          string    `json:"method"`
	GatewayProvider string    `json:"gateway_provider,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ItemRequest references a product and quantity in a CreateRequest.
type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateRequest holds the fields needed to place an order. Totals are not
// accepted from the client; they are computed from current product prices
// inside the creation transaction.
type CreateRequest struct {
	UserID          int64         `json:"-"`
	Items           []ItemRequest `json:"items"`
	DeliveryMethod  string        `json:"delivery_method"`
	ShippingAddress string        `json:"shipping_address,omitempty"`
	PaymentMethod   string        `json:"payment_method"`
	GatewayProvider string        `json:"gateway_provider,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("items are required: %w", domain.ErrValidation)
	}
	for i, it := range r.Items {
		if it.ProductID <= 0 {
			return fmt.Errorf("items[%d].product_id is required: %w", i, domain.ErrValidation)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("items[%d].quantity must be positive: %w", i, domain.ErrValidation)
		}
	}
	if r.PaymentMethod == "" {
		return fmt.Errorf("payment_method is required: %w", domain.ErrValidation)
	}
	return nil
}

// UpdateRequest holds the mutable fields of an existing order.
type UpdateRequest struct {
	Status Status `json:"status"`
}

// Validate checks that the UpdateRequest carries a known status.
func (r *UpdateRequest) Validate() error {
	if !ValidStatuses[r.Status] {
		return fmt.Errorf("invalid status %q: %w", r.Status, domain.ErrValidation)
	}
	return nil
}

// SearchQuery holds the filters for an order search.
type SearchQuery struct {
	Status   Status
	MinPrice *float64
	MaxPrice *float64
	Limit    int
}
