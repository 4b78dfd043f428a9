package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumWhere totals the data points of an int64 sum whose attributes include all of attrs.
func sumWhere(t *testing.T, m *metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		match := true
		for _, kv := range attrs {
			v, ok := dp.Attributes.Value(kv.Key)
			if !ok || v != kv.Value {
				match = false
				break
			}
		}
		if match {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_StoreOps(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStoreOp(ctx, StoreOpGet, OutcomeHit)
	m.RecordStoreOp(ctx, StoreOpGet, OutcomeMiss)
	m.RecordStoreOp(ctx, StoreOpGet, OutcomeMiss)
	m.RecordStoreOp(ctx, StoreOpPut, OutcomeOK)

	found := findMetric(collect(t, reader), "callcache.store.ops")
	if found == nil {
		t.Fatal("callcache.store.ops metric not found")
	}
	if got := sumWhere(t, found, attribute.String("store.op", "get"), attribute.String("store.outcome", "miss")); got != 2 {
		t.Errorf("get/miss = %d, want 2", got)
	}
	if got := sumWhere(t, found, attribute.String("store.op", "get"), attribute.String("store.outcome", "hit")); got != 1 {
		t.Errorf("get/hit = %d, want 1", got)
	}
	if got := sumWhere(t, found, attribute.String("store.op", "put")); got != 1 {
		t.Errorf("put = %d, want 1", got)
	}
}

func TestMetrics_Deliveries(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	meta := CallMeta{Op: OpEnqueue, Method: "GET"}

	m.RecordDelivery(ctx, meta, SourceCache, nil)
	m.RecordDelivery(ctx, meta, SourceNetwork, nil)
	m.RecordDelivery(ctx, meta, SourceNetwork, errors.New("boom"))
	m.RecordSuppressed(ctx, meta, errors.New("late"))

	rm := collect(t, reader)
	deliveries := findMetric(rm, "callcache.deliveries")
	if got := sumWhere(t, deliveries, attribute.String("delivery.source", "cache")); got != 1 {
		t.Errorf("cache deliveries = %d, want 1", got)
	}
	if got := sumWhere(t, deliveries, attribute.String("delivery.outcome", "failure")); got != 1 {
		t.Errorf("failure deliveries = %d, want 1", got)
	}
	if got := sumWhere(t, findMetric(rm, "callcache.failures.suppressed")); got != 1 {
		t.Errorf("suppressed = %d, want 1", got)
	}
}

func TestMetrics_Network(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	meta := CallMeta{Method: "GET"}

	m.RecordNetwork(ctx, meta, 20*time.Millisecond, nil)
	m.RecordNetwork(ctx, meta, 40*time.Millisecond, errors.New("timeout"))

	rm := collect(t, reader)
	if got := sumWhere(t, findMetric(rm, "callcache.network.total")); got != 2 {
		t.Errorf("network.total = %d, want 2", got)
	}
	if got := sumWhere(t, findMetric(rm, "callcache.network.errors")); got != 1 {
		t.Errorf("network.errors = %d, want 1", got)
	}

	hist := findMetric(rm, "callcache.network.duration_ms")
	if hist == nil {
		t.Fatal("duration histogram not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	if len(data.DataPoints) != 1 || data.DataPoints[0].Count != 2 {
		t.Errorf("unexpected histogram points: %+v", data.DataPoints)
	}
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	ctx := context.Background()
	m.RecordStoreOp(ctx, StoreOpGet, OutcomeHit)
	m.RecordDelivery(ctx, CallMeta{}, SourceCache, nil)
	m.RecordSuppressed(ctx, CallMeta{}, nil)
	m.RecordNetwork(ctx, CallMeta{}, time.Second, nil)
}
