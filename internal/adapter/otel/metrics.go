// Package otel provides OpenTelemetry metric instruments for the
// storefront service. Instruments are created against the global meter
// provider, so they are no-ops until an SDK is installed.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "storefront"

// Metrics holds all storefront metric instruments.
type Metrics struct {
	CacheHits     metric.Int64Counter
	CacheMisses   metric.Int64Counter
	ResolveSource metric.Int64Counter
	OrdersCreated metric.Int64Counter
	JobsPublished metric.Int64Counter
	JobsFailed    metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CacheHits, err = meter.Int64Counter("storefront.cache.hits",
		metric.WithDescription("Cache hits by entity kind"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("storefront.cache.misses",
		metric.WithDescription("Cache misses by entity kind"))
	if err != nil {
		return nil, err
	}

	m.ResolveSource, err = meter.Int64Counter("storefront.resolve.source",
		metric.WithDescription("Resolved reads by source tag (cache or database)"))
	if err != nil {
		return nil, err
	}

	m.OrdersCreated, err = meter.Int64Counter("storefront.orders.created",
		metric.WithDescription("Orders created"))
	if err != nil {
		return nil, err
	}

	m.JobsPublished, err = meter.Int64Counter("storefront.jobs.published",
		metric.WithDescription("Background jobs published by queue"))
	if err != nil {
		return nil, err
	}

	m.JobsFailed, err = meter.Int64Counter("storefront.jobs.failed",
		metric.WithDescription("Background job executions that returned an error"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
