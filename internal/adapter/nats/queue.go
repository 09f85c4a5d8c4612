// Package nats implements the job queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/archsaint/storefront/internal/port/messagequeue"
)

const streamName = "STOREFRONT"

// Queue implements messagequeue.Queue using NATS JetStream. Jobs published
// to the stream survive process restarts; delivery is at-least-once with
// explicit acks.
type Queue struct {
	nc         *nats.Conn
	js         jetstream.JetStream
	maxDeliver int
	retryDelay time.Duration
}

// Connect establishes a connection to NATS and ensures the JetStream stream
// exists. maxDeliver bounds redelivery attempts per job; retryDelay is the
// backoff before a failed job is redelivered.
func Connect(ctx context.Context, url string, maxDeliver int, retryDelay time.Duration) (*Queue, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"jobs.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js, maxDeliver: maxDeliver, retryDelay: retryDelay}, nil
}

// Publish sends a message to the given subject. It returns once JetStream
// has durably recorded the message. Each message carries a unique ID so the
// stream's duplicate window can drop publisher retries.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := q.js.Publish(ctx, subject, data, jetstream.WithMsgID(uuid.NewString()))
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. Each
// subject gets its own durable consumer, so the email and file-cleanup
// queues retry and dead-letter independently.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durableName(subject),
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    q.maxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		attempt := uint64(1)
		if meta, metaErr := msg.Metadata(); metaErr == nil {
			attempt = meta.NumDelivered
		}

		if err := handler(context.Background(), msg.Subject(), msg.Data()); err != nil {
			if attempt >= uint64(q.maxDeliver) {
				// Retry budget exhausted: dead-letter (log only, drop).
				slog.Error("job dead-lettered",
					"subject", msg.Subject(), "attempts", attempt, "error", err)
				if termErr := msg.Term(); termErr != nil {
					slog.Error("nats term failed", "error", termErr)
				}
				return
			}
			slog.Warn("job failed, scheduling retry",
				"subject", msg.Subject(), "attempt", attempt, "error", err)
			if nakErr := msg.NakWithDelay(q.retryDelay); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// Drain gracefully drains all subscriptions before closing.
func (q *Queue) Drain() error {
	return q.nc.Drain()
}

// Close shuts down the NATS connection immediately.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the queue is currently connected.
func (q *Queue) IsConnected() bool {
	return q.nc.IsConnected()
}

// durableName maps a subject like "jobs.email" to a consumer name like
// "email-workers".
func durableName(subject string) string {
	name := strings.TrimPrefix(subject, "jobs.")
	name = strings.ReplaceAll(name, ".", "-")
	return name + "-workers"
}
