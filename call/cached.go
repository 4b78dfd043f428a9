package call

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/callcache/codec"
	"github.com/jonwraymond/callcache/observe"
)

// CachedCall decorates a Call with read-through, write-behind caching.
//
// Contract:
//   - One-shot: Enqueue, Refresh and Execute may be used once in total.
//   - Deliveries run on the factory's dispatcher. A cache delivery always
//     completes before the network delivery of the same call starts.
//   - After Cancel returns, no further deliveries start.
//   - Store, key and codec failures are logged, never delivered.
type CachedCall[T any] struct {
	f     *Factory
	inner Call[T]
	codec codec.Codec[T]
	id    string

	// key is empty when keyErr is set; the call is then network-only.
	key    string
	keyErr error

	mu       sync.Mutex
	state    State
	executed bool
}

var _ Call[string] = (*CachedCall[string])(nil)

func newCachedCall[T any](f *Factory, inner Call[T], c codec.Codec[T]) *CachedCall[T] {
	cc := &CachedCall[T]{
		f:     f,
		inner: inner,
		codec: c,
		id:    uuid.NewString(),
	}
	cc.key, cc.keyErr = f.KeyFor(inner.Request())
	return cc
}

// ID returns the per-call identifier used in logs and spans.
func (c *CachedCall[T]) ID() string { return c.id }

// Key returns the cache key, or the reason the call is not cached.
func (c *CachedCall[T]) Key() (string, error) { return c.key, c.keyErr }

// State returns the current state.
func (c *CachedCall[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Request returns the underlying call's request.
func (c *CachedCall[T]) Request() *http.Request { return c.inner.Request() }

// IsExecuted reports whether the call was enqueued, refreshed or executed.
func (c *CachedCall[T]) IsExecuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executed
}

// IsCanceled reports whether Cancel was called before completion.
func (c *CachedCall[T]) IsCanceled() bool {
	return c.State() == StateCanceled
}

// Cancel stops pending deliveries and cancels the underlying call.
// It is a no-op once the call has completed.
func (c *CachedCall[T]) Cancel() {
	c.mu.Lock()
	if c.state.Done() {
		c.mu.Unlock()
		return
	}
	c.state = StateCanceled
	c.mu.Unlock()
	c.inner.Cancel()
}

// Clone returns a fresh, unexecuted cached call for the same request.
func (c *CachedCall[T]) Clone() Call[T] {
	return newCachedCall(c.f, c.inner.Clone(), c.codec)
}

// Enqueue delivers a stored response (if any), then the network outcome.
func (c *CachedCall[T]) Enqueue(ctx context.Context, cb Callback[T]) error {
	return c.start(ctx, cb, observe.OpEnqueue, true)
}

// Refresh behaves like Enqueue without reading the store: exactly one
// delivery, with a successful result written back.
func (c *CachedCall[T]) Refresh(ctx context.Context, cb Callback[T]) error {
	return c.start(ctx, cb, observe.OpRefresh, false)
}

// Execute returns the stored response when present. Otherwise it runs the
// underlying call synchronously and stores a successful result.
func (c *CachedCall[T]) Execute(ctx context.Context) (Response[T], error) {
	if err := c.claim(); err != nil {
		return Response[T]{}, err
	}
	meta := c.meta(observe.OpExecute)
	ctx, span := c.f.tracer.StartSpan(ctx, meta)
	log := c.f.logger.WithCall(meta)

	if resp, ok := c.lookup(ctx, log); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		if !c.transition(StateTerminal) {
			c.endCanceled(span)
			return Response[T]{}, ErrCanceled
		}
		c.f.metrics.RecordDelivery(ctx, meta, observe.SourceCache, nil)
		c.f.tracer.EndSpan(span, nil)
		return resp, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))
	if !c.transition(StateNetworkPending) {
		c.endCanceled(span)
		return Response[T]{}, ErrCanceled
	}

	resp, err := c.inner.Execute(ctx)
	if !c.transition(StateTerminal) {
		c.endCanceled(span)
		return Response[T]{}, ErrCanceled
	}
	if err == nil {
		resp.Source = SourceNetwork
		c.save(ctx, log, resp.Value)
	}
	c.f.metrics.RecordDelivery(ctx, meta, observe.SourceNetwork, err)
	c.f.tracer.EndSpan(span, err)
	return resp, err
}

// Remove deletes the stored response for this call's key. Failures are
// logged. It may be used before, during or after execution.
func (c *CachedCall[T]) Remove(ctx context.Context) {
	if c.keyErr != nil {
		return
	}
	meta := c.meta(observe.OpRemove)
	if err := c.f.store.Remove(ctx, c.key); err != nil {
		c.f.logger.WithCall(meta).Warn(ctx, "cache remove failed",
			observe.Field{Key: "error", Value: err.Error()})
	}
}

func (c *CachedCall[T]) start(ctx context.Context, cb Callback[T], op string, readCache bool) error {
	if cb == nil {
		return ErrNilCallback
	}
	if err := c.claim(); err != nil {
		return err
	}

	meta := c.meta(op)
	ctx, span := c.f.tracer.StartSpan(ctx, meta)
	r := &run[T]{
		c:    c,
		cb:   cb,
		ctx:  ctx,
		meta: meta,
		span: span,
		log:  c.f.logger.WithCall(meta),
	}

	if readCache {
		if resp, ok := c.lookup(ctx, r.log); ok && c.transition(StateDeliveringCache) {
			r.deliverCache(resp)
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", r.hadCache))

	if !c.transition(StateNetworkPending) {
		r.endCanceled()
		return nil
	}
	if err := c.inner.Enqueue(ctx, r); err != nil {
		r.OnFailure(c.inner, err)
	}
	return nil
}

// claim marks the call as used.
func (c *CachedCall[T]) claim() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCanceled {
		return ErrCanceled
	}
	if c.executed {
		return ErrAlreadyExecuted
	}
	c.executed = true
	return nil
}

func (c *CachedCall[T]) transition(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.Validate(next); err != nil {
		return false
	}
	c.state = next
	return true
}

func (c *CachedCall[T]) meta(op string) observe.CallMeta {
	m := observe.MetaFromRequest(op, c.inner.Request())
	m.ID = c.id
	m.Key = c.key
	return m
}

func (c *CachedCall[T]) lookup(ctx context.Context, log observe.Logger) (Response[T], bool) {
	if c.keyErr != nil {
		return Response[T]{}, false
	}
	data, ok := c.f.store.Get(ctx, c.key)
	if !ok {
		return Response[T]{}, false
	}
	v, err := c.codec.Decode(data)
	if err != nil {
		log.Warn(ctx, "discarding undecodable cache entry",
			observe.Field{Key: "error", Value: err.Error()})
		return Response[T]{}, false
	}
	return Response[T]{Value: v, Source: SourceCache}, true
}

func (c *CachedCall[T]) save(ctx context.Context, log observe.Logger, v T) {
	if c.keyErr != nil {
		return
	}
	data, err := c.codec.Encode(v)
	if err != nil {
		log.Warn(ctx, "response not cached: encode failed",
			observe.Field{Key: "error", Value: err.Error()})
		return
	}
	if err := c.f.store.Put(ctx, c.key, data); err != nil {
		log.Warn(ctx, "cache write failed",
			observe.Field{Key: "error", Value: err.Error()})
	}
}

func (c *CachedCall[T]) endCanceled(span trace.Span) {
	span.SetAttributes(attribute.Bool("call.canceled", true))
	c.f.tracer.EndSpan(span, nil)
}

// run is the state of one asynchronous invocation. It is the callback
// handed to the underlying call.
type run[T any] struct {
	c    *CachedCall[T]
	cb   Callback[T]
	ctx  context.Context
	meta observe.CallMeta
	span trace.Span
	log  observe.Logger

	// hadCache is written before the underlying call starts.
	hadCache bool
	seq      sequencer
	endOnce  sync.Once
}

func (r *run[T]) deliverCache(resp Response[T]) {
	r.hadCache = true
	r.seq.hold()
	r.c.f.dispatcher.Dispatch(func() {
		defer func() {
			if next := r.seq.release(); next != nil {
				next()
			}
		}()
		if r.c.IsCanceled() {
			return
		}
		r.c.f.metrics.RecordDelivery(r.ctx, r.meta, observe.SourceCache, nil)
		r.cb.OnResponse(r.c, resp)
	})
}

// deliverTerminal schedules fn, or parks it behind a pending cache delivery.
func (r *run[T]) deliverTerminal(fn func()) {
	if r.seq.park(fn) {
		return
	}
	r.c.f.dispatcher.Dispatch(fn)
}

// OnResponse receives the underlying call's success. The call stays
// NetworkPending until the delivery runs, so a Cancel before then still
// suppresses it.
func (r *run[T]) OnResponse(_ Call[T], resp Response[T]) {
	if r.c.IsCanceled() {
		r.endCanceled()
		return
	}
	resp.Source = SourceNetwork
	r.c.save(context.WithoutCancel(r.ctx), r.log, resp.Value)
	r.deliverTerminal(func() {
		if !r.c.transition(StateTerminal) {
			r.endCanceled()
			return
		}
		r.end(nil)
		r.c.f.metrics.RecordDelivery(r.ctx, r.meta, observe.SourceNetwork, nil)
		r.cb.OnResponse(r.c, resp)
	})
}

// OnFailure receives the underlying call's failure.
func (r *run[T]) OnFailure(_ Call[T], err error) {
	if r.c.IsCanceled() {
		r.endCanceled()
		return
	}
	if r.hadCache && r.c.f.failure == FailureSuppress {
		if !r.c.transition(StateTerminal) {
			r.endCanceled()
			return
		}
		r.end(err)
		r.c.f.metrics.RecordSuppressed(r.ctx, r.meta, err)
		r.log.Info(r.ctx, "network failure suppressed after cache delivery",
			observe.Field{Key: "error", Value: err.Error()})
		if h := r.c.f.onSuppressed; h != nil {
			h(r.ctx, r.c.Request(), err)
		}
		return
	}
	r.deliverTerminal(func() {
		if !r.c.transition(StateTerminal) {
			r.endCanceled()
			return
		}
		r.end(err)
		r.c.f.metrics.RecordDelivery(r.ctx, r.meta, observe.SourceNetwork, err)
		r.cb.OnFailure(r.c, err)
	})
}

func (r *run[T]) end(err error) {
	r.endOnce.Do(func() {
		r.c.f.tracer.EndSpan(r.span, err)
	})
}

func (r *run[T]) endCanceled() {
	r.endOnce.Do(func() {
		r.c.endCanceled(r.span)
	})
}

// sequencer orders the terminal delivery after an outstanding cache
// delivery without blocking either side.
type sequencer struct {
	mu      sync.Mutex
	holding bool
	parked  func()
}

func (s *sequencer) hold() {
	s.mu.Lock()
	s.holding = true
	s.mu.Unlock()
}

// park stores fn if a cache delivery is outstanding.
func (s *sequencer) park(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.holding {
		return false
	}
	s.parked = fn
	return true
}

// release ends the hold and returns any parked delivery.
func (s *sequencer) release() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holding = false
	fn := s.parked
	s.parked = nil
	return fn
}
