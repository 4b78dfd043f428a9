package health

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/callcache/cache"
)

// CheckKeyPrefix namespaces keys written by StoreChecker.
const CheckKeyPrefix = "callcache:health:"

// StoreChecker verifies a cache.Store by writing, reading back and removing
// a canary entry. Stores that implement Pinger are pinged first.
type StoreChecker struct {
	name  string
	store cache.Store
	slow  time.Duration
}

// StoreOption configures a StoreChecker.
type StoreOption func(*StoreChecker)

// WithStoreName overrides the checker name. Default: "store".
func WithStoreName(name string) StoreOption {
	return func(c *StoreChecker) {
		if name != "" {
			c.name = name
		}
	}
}

// WithSlowThreshold reports degraded when the check takes longer than d.
// Default: 250ms.
func WithSlowThreshold(d time.Duration) StoreOption {
	return func(c *StoreChecker) {
		if d > 0 {
			c.slow = d
		}
	}
}

// NewStoreChecker creates a checker for store.
func NewStoreChecker(store cache.Store, opts ...StoreOption) *StoreChecker {
	c := &StoreChecker{name: "store", store: store, slow: 250 * time.Millisecond}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the checker name.
func (c *StoreChecker) Name() string { return c.name }

// Check pings the store, then round-trips a canary entry.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if c.store == nil {
		return Unhealthy("no store configured", cache.ErrNilStore)
	}
	start := time.Now()

	if p, ok := c.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("store unreachable", err)
		}
	}

	key := CheckKeyPrefix + uuid.NewString()
	want := []byte(start.UTC().Format(time.RFC3339Nano))
	if err := c.store.Put(ctx, key, want); err != nil {
		return Unhealthy("store write failed", err)
	}
	defer func() { _ = c.store.Remove(context.WithoutCancel(ctx), key) }()

	got, ok := c.store.Get(ctx, key)
	if !ok {
		return Unhealthy("store lost canary entry", ErrCheckFailed)
	}
	if !bytes.Equal(got, want) {
		return Unhealthy("store returned wrong canary value", ErrCheckMismatch)
	}

	elapsed := time.Since(start)
	details := map[string]any{"roundtrip_ms": elapsed.Milliseconds()}
	if elapsed > c.slow {
		return Degraded(fmt.Sprintf("store round-trip slow (%s)", elapsed.Round(time.Millisecond))).WithDetails(details)
	}
	return Healthy("store round-trip ok").WithDetails(details)
}
