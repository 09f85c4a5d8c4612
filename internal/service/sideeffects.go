package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/archsaint/storefront/internal/adapter/otel"
	"github.com/archsaint/storefront/internal/domain/order"
	"github.com/archsaint/storefront/internal/port/messagequeue"
)

// SideEffects coordinates the deferred work that follows a committed write:
// cache priming and background job publication. Every step is best-effort
// and independent of the others; a failed step is logged and skipped, it
// never surfaces to the request that triggered it.
type SideEffects struct {
	orderCache *EntityCache[order.Order]
	queue      messagequeue.Queue
	metrics    *otel.Metrics
}

// NewSideEffects creates a SideEffects coordinator.
func NewSideEffects(orderCache *EntityCache[order.Order], queue messagequeue.Queue, metrics *otel.Metrics) *SideEffects {
	return &SideEffects{orderCache: orderCache, queue: queue, metrics: metrics}
}

// AfterOrderCreate runs the post-commit effects of order creation: the fresh
// order is primed into the cache and a confirmation mail job is enqueued.
// Each effect runs regardless of whether the previous one succeeded.
func (s *SideEffects) AfterOrderCreate(ctx context.Context, o *order.Order) {
	s.orderCache.SetSingle(ctx, o.ID, o)

	s.publish(ctx, messagequeue.SubjectEmail, messagequeue.EmailPayload{
		To:    o.UserEmail,
		Order: *o,
	})
}

// CleanupFiles enqueues a removal job for the given temporary file paths.
// Call it on both the success and failure paths of an upload so staged files
// never accumulate.
func (s *SideEffects) CleanupFiles(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}
	s.publish(ctx, messagequeue.SubjectFileCleanup, messagequeue.FileCleanupPayload{Paths: paths})
}

func (s *SideEffects) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("job payload marshal failed", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("job publish failed", "subject", subject, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.JobsPublished.Add(ctx, 1,
			metric.WithAttributes(attribute.String("subject", subject)))
	}
	slog.Debug("job published", "subject", subject)
}
