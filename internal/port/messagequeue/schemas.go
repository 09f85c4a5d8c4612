package messagequeue

import "github.com/archsaint/storefront/internal/domain/order"

// EmailPayload is the schema for jobs.email messages. It carries the fully
// hydrated order so the worker never reads the store.
type EmailPayload struct {
	To    string      `json:"to"`
	Order order.Order `json:"order"`
}

// FileCleanupPayload is the schema for jobs.filecleanup messages.
type FileCleanupPayload struct {
	Paths []string `json:"paths"`
}
