package call

import (
	"context"
	"net/http"
)

// Source tells where a delivered response came from.
type Source int

const (
	// SourceNetwork marks a response produced by the underlying call.
	SourceNetwork Source = iota
	// SourceCache marks a response read from the store.
	SourceCache
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Response is a successful call result.
type Response[T any] struct {
	// Value is the decoded response body.
	Value T

	// StatusCode and Header are zero for responses served from the store.
	StatusCode int
	Header     http.Header

	// Source reports whether Value came from the store or the network.
	Source Source
}

// Callback receives the outcome of an asynchronous call.
//
// Contract:
//   - OnResponse may be invoked twice for one cached call (cache, then
//     network). Every other combination is at most one invocation.
//   - The Call passed in is the call the callback was enqueued on.
type Callback[T any] interface {
	OnResponse(c Call[T], resp Response[T])
	OnFailure(c Call[T], err error)
}

// CallbackFuncs adapts a pair of functions to Callback. Nil fields are
// ignored.
type CallbackFuncs[T any] struct {
	Response func(c Call[T], resp Response[T])
	Failure  func(c Call[T], err error)
}

// OnResponse calls f.Response.
func (f CallbackFuncs[T]) OnResponse(c Call[T], resp Response[T]) {
	if f.Response != nil {
		f.Response(c, resp)
	}
}

// OnFailure calls f.Failure.
func (f CallbackFuncs[T]) OnFailure(c Call[T], err error) {
	if f.Failure != nil {
		f.Failure(c, err)
	}
}

// Call is a one-shot asynchronous request.
//
// Contract:
//   - Enqueue returns immediately; the outcome is reported to cb.
//   - Execute blocks until a result is available.
//   - A call may be enqueued or executed once; use Clone to repeat it.
//   - Cancel is idempotent and safe to call from any goroutine.
type Call[T any] interface {
	Enqueue(ctx context.Context, cb Callback[T]) error
	Execute(ctx context.Context) (Response[T], error)
	Cancel()
	IsCanceled() bool
	IsExecuted() bool
	Request() *http.Request
	Clone() Call[T]
}

// Caller creates underlying calls for requests. It is the transport side of
// an Adapter.
type Caller[T any] interface {
	NewCall(req *http.Request) Call[T]
}

// CallerFunc adapts a plain function to the Caller interface.
type CallerFunc[T any] func(req *http.Request) Call[T]

// NewCall calls f(req).
func (f CallerFunc[T]) NewCall(req *http.Request) Call[T] {
	return f(req)
}
