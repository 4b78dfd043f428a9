package health

import (
	"context"
	"fmt"
)

// Queue is implemented by delivery dispatchers that buffer work.
type Queue interface {
	Pending() int
	Dropped() int64
}

// QueueChecker reports a delivery backlog. A backlog above the threshold
// is degraded; dropped deliveries are unhealthy.
type QueueChecker struct {
	name      string
	queue     Queue
	threshold int
}

// NewQueueChecker creates a checker for q. threshold <= 0 defaults to 1000.
func NewQueueChecker(name string, q Queue, threshold int) *QueueChecker {
	if threshold <= 0 {
		threshold = 1000
	}
	return &QueueChecker{name: name, queue: q, threshold: threshold}
}

// Name returns the checker name.
func (c *QueueChecker) Name() string { return c.name }

// Check reads the queue counters.
func (c *QueueChecker) Check(context.Context) Result {
	pending, dropped := c.queue.Pending(), c.queue.Dropped()
	details := map[string]any{"pending": pending, "dropped": dropped}
	switch {
	case dropped > 0:
		return Unhealthy(fmt.Sprintf("%d deliveries dropped", dropped), ErrCheckFailed).WithDetails(details)
	case pending > c.threshold:
		return Degraded(fmt.Sprintf("%d deliveries pending", pending)).WithDetails(details)
	default:
		return Healthy("delivery queue ok").WithDetails(details)
	}
}
