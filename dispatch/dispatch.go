package dispatch

import "errors"

// ErrClosed is returned by operations on a closed Serial dispatcher.
var ErrClosed = errors.New("dispatch: dispatcher is closed")

// Dispatcher runs units of work on its execution context.
//
// Contract:
//   - Concurrency: Dispatch must be safe for concurrent use.
//   - Ordering: work dispatched from one goroutine must not be reordered
//     relative to other work dispatched from that goroutine.
//   - Errors: Dispatch must not panic; work that cannot run is dropped.
type Dispatcher interface {
	Dispatch(fn func())
}

// Func adapts a plain function to the Dispatcher interface.
type Func func(fn func())

// Dispatch calls f(fn).
func (f Func) Dispatch(fn func()) {
	f(fn)
}

// Inline runs work immediately on the calling goroutine.
type Inline struct{}

// Dispatch runs fn before returning.
func (Inline) Dispatch(fn func()) {
	if fn != nil {
		fn()
	}
}

var (
	_ Dispatcher = Inline{}
	_ Dispatcher = Func(nil)
)
