// Package dispatch decouples the goroutine a network result arrives on from
// the goroutine that observes it.
//
// A Dispatcher runs callback work on a configured execution context. Inline
// runs work immediately on the caller's goroutine; Serial funnels all work
// through a single goroutine so callback code never needs its own locking,
// the way an application main loop would.
package dispatch
