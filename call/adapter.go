package call

import (
	"net/http"

	"github.com/jonwraymond/callcache/codec"
)

// Adapter binds a Factory to a Caller so every call it creates is cached.
// It is the integration point for client code that builds calls by
// request.
type Adapter[T any] struct {
	factory *Factory
	caller  Caller[T]
	codec   codec.Codec[T]
}

// NewAdapter creates an Adapter producing cached calls of T.
func NewAdapter[T any](f *Factory, caller Caller[T], c codec.Codec[T]) (*Adapter[T], error) {
	switch {
	case f == nil:
		return nil, ErrNilFactory
	case caller == nil:
		return nil, ErrNilCaller
	case c == nil:
		return nil, ErrNilCodec
	}
	return &Adapter[T]{factory: f, caller: caller, codec: c}, nil
}

// Call creates a fresh cached call for req.
func (a *Adapter[T]) Call(req *http.Request) *CachedCall[T] {
	return newCachedCall(a.factory, a.caller.NewCall(req), a.codec)
}

// Wrap decorates an existing underlying call.
func (a *Adapter[T]) Wrap(inner Call[T]) *CachedCall[T] {
	return newCachedCall(a.factory, inner, a.codec)
}

// Factory returns the adapter's factory.
func (a *Adapter[T]) Factory() *Factory { return a.factory }
