package call

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonwraymond/callcache/cache"
	"github.com/jonwraymond/callcache/codec"
	"github.com/jonwraymond/callcache/dispatch"
	"github.com/jonwraymond/callcache/observe"
)

// FailurePolicy decides what happens to a network failure that follows a
// cache delivery.
type FailurePolicy int

const (
	// FailureSuppress drops the failure; the cached response stands.
	FailureSuppress FailurePolicy = iota
	// FailureReport delivers the failure through OnFailure.
	FailureReport
)

// String returns the string representation of the policy.
func (p FailurePolicy) String() string {
	switch p {
	case FailureSuppress:
		return "suppress"
	case FailureReport:
		return "report"
	default:
		return "unknown"
	}
}

// ParseFailurePolicy parses "suppress" or "report". Empty means suppress.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "suppress":
		return FailureSuppress, nil
	case "report":
		return FailureReport, nil
	default:
		return FailureSuppress, fmt.Errorf("call: unknown failure policy %q", s)
	}
}

// SuppressedFailureHandler observes network failures dropped under
// FailureSuppress. It must not block.
type SuppressedFailureHandler func(ctx context.Context, req *http.Request, err error)

// Factory holds the collaborators shared by every cached call: the store,
// the delivery dispatcher, key derivation and telemetry.
//
// A Factory is immutable after construction and safe for concurrent use.
type Factory struct {
	store        cache.Store
	dispatcher   dispatch.Dispatcher
	keyer        cache.Keyer
	policy       cache.Policy
	failure      FailurePolicy
	onSuppressed SuppressedFailureHandler
	logger       observe.Logger
	metrics      observe.Metrics
	tracer       observe.Tracer
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithKeyer sets the key derivation. Defaults to cache.NewDefaultKeyer().
func WithKeyer(k cache.Keyer) FactoryOption {
	return func(f *Factory) {
		if k != nil {
			f.keyer = k
		}
	}
}

// WithCachePolicy sets which requests are cacheable.
// Defaults to cache.DefaultPolicy().
func WithCachePolicy(p cache.Policy) FactoryOption {
	return func(f *Factory) {
		f.policy = p
	}
}

// WithFailurePolicy sets the handling of failures after a cache hit.
func WithFailurePolicy(p FailurePolicy) FactoryOption {
	return func(f *Factory) {
		f.failure = p
	}
}

// WithSuppressedFailureHandler registers a hook for suppressed failures.
func WithSuppressedFailureHandler(h SuppressedFailureHandler) FactoryOption {
	return func(f *Factory) {
		f.onSuppressed = h
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) FactoryOption {
	return func(f *Factory) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t observe.Tracer) FactoryOption {
	return func(f *Factory) {
		if t != nil {
			f.tracer = t
		}
	}
}

// NewFactory creates a Factory over store and d.
//
// A nil store yields a factory whose calls are network-only.
func NewFactory(store cache.Store, d dispatch.Dispatcher, opts ...FactoryOption) (*Factory, error) {
	if d == nil {
		return nil, ErrNilDispatcher
	}
	f := &Factory{
		store:      store,
		dispatcher: d,
		keyer:      cache.NewDefaultKeyer(),
		policy:     cache.DefaultPolicy(),
		failure:    FailureSuppress,
		logger:     observe.NopLogger(),
		metrics:    observe.NopMetrics(),
		tracer:     observe.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Store returns the factory's store, nil when caching is disabled.
func (f *Factory) Store() cache.Store { return f.store }

// Dispatcher returns the delivery dispatcher.
func (f *Factory) Dispatcher() dispatch.Dispatcher { return f.dispatcher }

// FailurePolicy returns the configured failure policy.
func (f *Factory) FailurePolicy() FailurePolicy { return f.failure }

// KeyFor derives the cache key for req, or the reason req is not cached.
func (f *Factory) KeyFor(req *http.Request) (string, error) {
	if f.store == nil {
		return "", cache.ErrNilStore
	}
	if err := f.policy.Check(req); err != nil {
		return "", err
	}
	key, err := f.keyer.Key(req)
	if err != nil {
		return "", err
	}
	if err := cache.ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Wrap decorates inner with caching. f must come from NewFactory and c
// must be non-nil.
func Wrap[T any](f *Factory, inner Call[T], c codec.Codec[T]) *CachedCall[T] {
	return newCachedCall(f, inner, c)
}
