package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jonwraymond/callcache/cache"
	"github.com/jonwraymond/callcache/call"
	"github.com/jonwraymond/callcache/codec"
	"github.com/jonwraymond/callcache/dispatch"
	"github.com/jonwraymond/callcache/health"
	"github.com/jonwraymond/callcache/httpcall"
	"github.com/jonwraymond/callcache/observe"
	"github.com/jonwraymond/callcache/resilience"
)

// queueWarnDepth is the serial backlog reported as degraded.
const queueWarnDepth = 1024

// Runtime holds the components assembled from a Config.
//
// Contract:
//   - Ownership: Runtime owns the store client, dispatcher and observer;
//     Close releases them.
//   - Concurrency: all fields are safe for concurrent use.
type Runtime struct {
	Config     Config
	Factory    *call.Factory
	Store      cache.Store
	Dispatcher dispatch.Dispatcher
	Observer   observe.Observer
	Executor   *resilience.Executor
	Health     *health.Aggregator
	Logger     observe.Logger

	middleware *observe.Middleware
	closers    []func(context.Context) error
}

// Build validates cfg and assembles a Runtime. Build does not contact the
// store; use Runtime.Health to check it.
func Build(ctx context.Context, cfg Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("config: observer: %w", err)
	}
	rt.Observer = obs
	rt.Logger = obs.Logger()
	rt.closers = append(rt.closers, obs.Shutdown)

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("config: metrics: %w", err)
	}
	tracer := observe.NewTracer(obs.Tracer())
	rt.middleware = observe.NewMiddleware(tracer, metrics, rt.Logger)

	raw, err := rt.buildStore(cfg.Store)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.Store = cache.Instrument(raw, metrics)

	rt.Health = health.NewAggregator()
	rt.Health.Register(health.NewStoreChecker(rt.Store, health.WithStoreName("store."+cfg.Store.Backend)))
	memory := health.MemoryCheckerConfig{}
	if sizer, ok := raw.(health.Sizer); ok {
		memory.Store = sizer
		memory.MaxEntries = cfg.Store.MaxEntries
	}
	rt.Health.Register(health.NewMemoryChecker(memory))

	switch cfg.Dispatcher.Mode {
	case ModeSerial:
		s := dispatch.NewSerial(dispatch.WithSerialLogger(rt.Logger))
		rt.Dispatcher = s
		rt.closers = append(rt.closers, s.Close)
		rt.Health.Register(health.NewQueueChecker("dispatcher", s, queueWarnDepth))
	default:
		rt.Dispatcher = dispatch.Inline{}
	}

	failure, err := call.ParseFailurePolicy(cfg.Failure.Policy)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	policy := cache.DefaultPolicy()
	policy.AllowUnsafe = cfg.Keying.AllowUnsafe

	rt.Factory, err = call.NewFactory(rt.Store, rt.Dispatcher,
		call.WithKeyer(cache.NewDefaultKeyer(cache.WithIdentity(identity(cfg.Keying)))),
		call.WithCachePolicy(policy),
		call.WithFailurePolicy(failure),
		call.WithLogger(rt.Logger),
		call.WithMetrics(metrics),
		call.WithTracer(tracer),
	)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("config: factory: %w", err)
	}

	rt.Executor = buildExecutor(cfg.HTTP, rt.Logger)
	if cb := rt.Executor.CircuitBreaker(); cb != nil {
		rt.Health.Register(health.NewCircuitChecker("network.breaker", cb))
	}

	rt.Logger.Info(ctx, "callcache runtime ready",
		observe.Field{Key: "store", Value: cfg.Store.Backend},
		observe.Field{Key: "dispatcher", Value: cfg.Dispatcher.Mode},
		observe.Field{Key: "failure_policy", Value: failure.String()},
	)
	return rt, nil
}

func (rt *Runtime) buildStore(sc StoreConfig) (cache.Store, error) {
	switch sc.Backend {
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:        sc.Addr,
			Password:    sc.Password,
			DB:          sc.DB,
			DialTimeout: sc.DialTimeout.Std(),
		})
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		s, err := cache.NewRedisStore(client, cache.WithRedisPrefix(sc.Prefix), cache.WithRedisLogger(rt.Logger))
		if err != nil {
			return nil, fmt.Errorf("config: redis store: %w", err)
		}
		return s, nil
	case BackendMemcache:
		client := memcache.New(sc.Servers...)
		if sc.DialTimeout > 0 {
			client.Timeout = sc.DialTimeout.Std()
		}
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		s, err := cache.NewMemcacheStore(client, cache.WithMemcachePrefix(sc.Prefix), cache.WithMemcacheLogger(rt.Logger))
		if err != nil {
			return nil, fmt.Errorf("config: memcache store: %w", err)
		}
		return s, nil
	default:
		return cache.NewMemoryStore(), nil
	}
}

func identity(kc KeyingConfig) cache.IdentityFunc {
	var fns []cache.IdentityFunc
	switch kc.Identity {
	case "bearer":
		fns = append(fns, cache.BearerSubject)
	case "jwt":
		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
		if kc.JWTIssuer != "" {
			opts = append(opts, jwt.WithIssuer(kc.JWTIssuer))
		}
		fns = append(fns, cache.VerifiedBearerSubject(cache.HMACKeyfunc([]byte(kc.JWTSecret)), opts...))
	}
	if len(kc.VaryHeaders) > 0 {
		fns = append(fns, cache.HeaderIdentity(kc.VaryHeaders...))
	}
	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0]
	default:
		return cache.CombineIdentity(fns...)
	}
}

func buildExecutor(hc HTTPConfig, logger observe.Logger) *resilience.Executor {
	var opts []resilience.ExecutorOption
	if hc.BreakerFailures > 0 {
		opts = append(opts, resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  hc.BreakerFailures,
			ResetTimeout: hc.BreakerReset.Std(),
			IsFailure:    httpcall.Retryable,
			OnStateChange: func(from, to resilience.State) {
				logger.Warn(context.Background(), "network breaker state changed",
					observe.Field{Key: "from", Value: from.String()},
					observe.Field{Key: "to", Value: to.String()},
				)
			},
		})))
	}
	if hc.MaxAttempts > 1 {
		opts = append(opts, resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts: hc.MaxAttempts,
			Jitter:      true,
			RetryIf:     httpcall.Retryable,
		})))
	}
	if hc.Rate > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        hc.Rate,
			Burst:       hc.Burst,
			WaitOnLimit: true,
		})))
	}
	if hc.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: hc.MaxConcurrent,
			MaxWait:       hc.QueueWait.Std(),
		})))
	}
	if hc.Timeout > 0 {
		opts = append(opts, resilience.WithTimeout(hc.Timeout.Std()))
	}
	return resilience.NewExecutor(opts...)
}

// HTTPOptions returns the httpcall options matching the runtime.
func (rt *Runtime) HTTPOptions() []httpcall.Option {
	opts := []httpcall.Option{
		httpcall.WithExecutor(rt.Executor),
		httpcall.WithMiddleware(rt.middleware),
	}
	if rt.Config.HTTP.Instrument {
		opts = append(opts, httpcall.WithInstrumentation(
			otelhttp.WithPropagators(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{}, propagation.Baggage{},
			)),
		))
	}
	if rt.Config.HTTP.MaxBodyBytes > 0 {
		opts = append(opts, httpcall.WithMaxBodyBytes(rt.Config.HTTP.MaxBodyBytes))
	}
	return opts
}

// Close releases the runtime's resources in reverse creation order.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// NewAdapter builds an HTTP-backed adapter that decodes with c.
func NewAdapter[T any](rt *Runtime, c codec.Codec[T], extra ...httpcall.Option) (*call.Adapter[T], error) {
	client, err := httpcall.New(c, append(rt.HTTPOptions(), extra...)...)
	if err != nil {
		return nil, err
	}
	return call.NewAdapter(rt.Factory, call.Caller[T](client), c)
}

// Shutdown is Close bounded by d.
func (rt *Runtime) Shutdown(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return rt.Close(ctx)
}
