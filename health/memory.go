package health

import (
	"context"
	"fmt"
	"runtime"
)

// Sizer reports how many entries a store holds. cache.MemoryStore
// implements it.
type Sizer interface {
	Len() int
}

// MemoryCheckerConfig configures the memory checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap usage ratio reported as degraded.
	// Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the heap usage ratio reported as unhealthy.
	// Default: 0.95
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes. Zero uses runtime Sys.
	MaxAlloc uint64

	// Store, when set, adds its entry count to the report.
	Store Sizer

	// MaxEntries degrades the check once Store holds more entries.
	// Zero disables the entry limit.
	MaxEntries int
}

// MemoryChecker reports heap usage and, for in-process stores that never
// evict, how many responses they retain.
type MemoryChecker struct {
	config  MemoryCheckerConfig
	readMem func(*runtime.MemStats)
	name    string
}

// NewMemoryChecker creates a memory checker named "memory".
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	return &MemoryChecker{config: config, readMem: runtime.ReadMemStats, name: "memory"}
}

// Name returns the checker name.
func (m *MemoryChecker) Name() string { return m.name }

// Check reads runtime memory statistics.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context canceled", err)
	}

	var stats runtime.MemStats
	m.readMem(&stats)

	limit := m.config.MaxAlloc
	if limit == 0 {
		limit = stats.Sys
	}
	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"heap_objects":     stats.HeapObjects,
		"sys_bytes":        stats.Sys,
		"num_gc":           stats.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}

	entries := -1
	if m.config.Store != nil {
		entries = m.config.Store.Len()
		details["store_entries"] = entries
	}

	if limit == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}
	ratio := float64(stats.HeapAlloc) / float64(limit)
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("heap usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("heap usage high: %.1f%%", ratio*100)).WithDetails(details)
	case m.config.MaxEntries > 0 && entries > m.config.MaxEntries:
		return Degraded(fmt.Sprintf("store holds %d entries (limit %d)", entries, m.config.MaxEntries)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("heap usage normal: %.1f%%", ratio*100)).WithDetails(details)
}
