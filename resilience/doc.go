// Package resilience wraps network round-trips with retry, circuit
// breaking, per-attempt timeouts, rate limiting and a concurrency
// bulkhead.
//
// The patterns work on plain func(context.Context) error operations and
// can be used alone or composed by an Executor:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: time.Minute,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts:  3,
//	        InitialDelay: 100 * time.Millisecond,
//	    })),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return roundTrip(ctx)
//	})
//
// The breaker wraps the retry loop, so one exhausted retry sequence counts
// as a single failure. The timeout bounds each attempt, not the sequence.
// The rate limiter charges every attempt, so retries spend tokens too; the
// bulkhead holds one slot for the whole sequence.
//
// Errors that implement RetryAfterError override the computed backoff,
// which lets HTTP transports honor Retry-After.
package resilience
