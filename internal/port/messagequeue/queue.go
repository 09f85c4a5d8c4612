// Package messagequeue defines the async job queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue. A nil return
// acknowledges the message; a non-nil return triggers the queue's bounded
// redelivery policy.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for the durable, at-least-once job queue.
// Publish returns once the message is durably recorded; execution happens
// on independent worker consumers, fully decoupled from the publisher.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects for the two background job queues.
const (
	SubjectEmail       = "jobs.email"       // order confirmation mail
	SubjectFileCleanup = "jobs.filecleanup" // temp upload file removal
)
