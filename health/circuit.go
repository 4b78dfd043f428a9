package health

import (
	"context"

	"github.com/jonwraymond/callcache/resilience"
)

// CircuitChecker maps a circuit breaker's state to a status: closed is
// healthy, half-open degraded, open unhealthy.
type CircuitChecker struct {
	name string
	cb   *resilience.CircuitBreaker
}

// NewCircuitChecker creates a checker for cb.
func NewCircuitChecker(name string, cb *resilience.CircuitBreaker) *CircuitChecker {
	return &CircuitChecker{name: name, cb: cb}
}

// Name returns the checker name.
func (c *CircuitChecker) Name() string { return c.name }

// Check reads the breaker state.
func (c *CircuitChecker) Check(context.Context) Result {
	if c.cb == nil {
		return Healthy("no circuit breaker configured")
	}
	snap := c.cb.Snapshot()
	details := map[string]any{
		"state":    snap.State.String(),
		"failures": snap.Failures,
		"rejected": snap.Rejected,
	}
	switch snap.State {
	case resilience.StateOpen:
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit probing").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}
