package resilience

import (
	"context"
	"time"
)

// Executor composes a bulkhead, circuit breaker, retry, rate limiter and
// per-attempt timeout. Unset patterns are skipped; the zero Executor runs
// op once.
type Executor struct {
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	rateLimiter    *RateLimiter
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor from opts.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker guards the whole retry sequence with cb.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRetry retries failed attempts.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithBulkhead caps concurrent operations, each holding its slot across
// all of its retry attempts.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithRateLimiter takes a token for every attempt, retries included.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// WithTimeout bounds each attempt to d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(d)
	}
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Bulkhead returns the configured bulkhead, or nil.
func (e *Executor) Bulkhead() *Bulkhead {
	return e.bulkhead
}

// RateLimiter returns the configured rate limiter, or nil.
func (e *Executor) RateLimiter() *RateLimiter {
	return e.rateLimiter
}

// Execute runs op as bulkhead(breaker(retry(ratelimit(timeout(op))))).
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	if e.timeout != nil {
		attempt := run
		run = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, attempt)
		}
	}
	if e.rateLimiter != nil {
		limited := run
		run = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, limited)
		}
	}
	if e.retry != nil {
		attempts := run
		run = func(ctx context.Context) error {
			return e.retry.Execute(ctx, attempts)
		}
	}
	if e.circuitBreaker != nil {
		guarded := run
		run = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, guarded)
		}
	}
	if e.bulkhead != nil {
		isolated := run
		run = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, isolated)
		}
	}
	return run(ctx)
}
