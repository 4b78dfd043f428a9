package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Store operations recorded by RecordStoreOp.
const (
	StoreOpGet    = "get"
	StoreOpPut    = "put"
	StoreOpRemove = "remove"
)

// Outcomes recorded by RecordStoreOp.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Delivery sources recorded by RecordDelivery.
const (
	SourceCache   = "cache"
	SourceNetwork = "network"
)

// Metrics records cache and delivery metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordStoreOp counts one store operation and its outcome.
	RecordStoreOp(ctx context.Context, op, outcome string)

	// RecordDelivery counts one callback delivery. err is nil for successes.
	RecordDelivery(ctx context.Context, meta CallMeta, source string, err error)

	// RecordSuppressed counts a network failure swallowed after a cache delivery.
	RecordSuppressed(ctx context.Context, meta CallMeta, err error)

	// RecordNetwork records one network round-trip.
	RecordNetwork(ctx context.Context, meta CallMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	storeOps     metric.Int64Counter
	deliveries   metric.Int64Counter
	suppressed   metric.Int64Counter
	networkCount metric.Int64Counter
	networkErrs  metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	storeOps, err := meter.Int64Counter(
		"callcache.store.ops",
		metric.WithDescription("Store operations by operation and outcome"),
		metric.WithUnit("{op}"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter(
		"callcache.deliveries",
		metric.WithDescription("Callback deliveries by source and outcome"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, err
	}

	suppressed, err := meter.Int64Counter(
		"callcache.failures.suppressed",
		metric.WithDescription("Network failures swallowed after a cache delivery"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	networkCount, err := meter.Int64Counter(
		"callcache.network.total",
		metric.WithDescription("Total number of network round-trips"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	networkErrs, err := meter.Int64Counter(
		"callcache.network.errors",
		metric.WithDescription("Total number of failed network round-trips"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"callcache.network.duration_ms",
		metric.WithDescription("Network round-trip duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		storeOps:     storeOps,
		deliveries:   deliveries,
		suppressed:   suppressed,
		networkCount: networkCount,
		networkErrs:  networkErrs,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordStoreOp(ctx context.Context, op, outcome string) {
	m.storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store.op", op),
		attribute.String("store.outcome", outcome),
	))
}

func (m *metricsImpl) RecordDelivery(ctx context.Context, meta CallMeta, source string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call.op", meta.Op),
		attribute.String("delivery.source", source),
		attribute.String("delivery.outcome", outcome),
	))
}

func (m *metricsImpl) RecordSuppressed(ctx context.Context, meta CallMeta, _ error) {
	m.suppressed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call.op", meta.Op),
	))
}

func (m *metricsImpl) RecordNetwork(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("http.request.method", meta.Method),
	)

	m.networkCount.Add(ctx, 1, opt)
	if err != nil {
		m.networkErrs.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordStoreOp(context.Context, string, string)                 {}
func (noopMetrics) RecordDelivery(context.Context, CallMeta, string, error)       {}
func (noopMetrics) RecordSuppressed(context.Context, CallMeta, error)             {}
func (noopMetrics) RecordNetwork(context.Context, CallMeta, time.Duration, error) {}
