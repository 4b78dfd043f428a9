package cache

import (
	"context"
	"errors"

	"github.com/jonwraymond/callcache/observe"
)

// instrumentedStore records every store operation through observe.Metrics.
type instrumentedStore struct {
	next    Store
	metrics observe.Metrics
}

// Instrument wraps store so that each Get/Put/Remove is counted.
// A nil metrics returns store unchanged.
func Instrument(store Store, metrics observe.Metrics) Store {
	if store == nil || metrics == nil {
		return store
	}
	return &instrumentedStore{next: store, metrics: metrics}
}

// Get records a hit, a miss, or, for stores implementing Fetcher, an
// error when the backend failed. A failed Get still reads as a miss.
func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, bool) {
	f, ok := s.next.(Fetcher)
	if !ok {
		value, ok := s.next.Get(ctx, key)
		outcome := observe.OutcomeMiss
		if ok {
			outcome = observe.OutcomeHit
		}
		s.metrics.RecordStoreOp(ctx, observe.StoreOpGet, outcome)
		return value, ok
	}

	value, err := f.Fetch(ctx, key)
	switch {
	case err == nil:
		s.metrics.RecordStoreOp(ctx, observe.StoreOpGet, observe.OutcomeHit)
		return value, true
	case errors.Is(err, ErrMiss):
		s.metrics.RecordStoreOp(ctx, observe.StoreOpGet, observe.OutcomeMiss)
	default:
		s.metrics.RecordStoreOp(ctx, observe.StoreOpGet, observe.OutcomeError)
	}
	return nil, false
}

func (s *instrumentedStore) Put(ctx context.Context, key string, value []byte) error {
	err := s.next.Put(ctx, key, value)
	s.metrics.RecordStoreOp(ctx, observe.StoreOpPut, outcomeOf(err))
	return err
}

func (s *instrumentedStore) Remove(ctx context.Context, key string) error {
	err := s.next.Remove(ctx, key)
	s.metrics.RecordStoreOp(ctx, observe.StoreOpRemove, outcomeOf(err))
	return err
}

// Ping forwards to the underlying store when it supports pinging.
func (s *instrumentedStore) Ping(ctx context.Context) error {
	if p, ok := s.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Unwrap returns the underlying store.
func (s *instrumentedStore) Unwrap() Store {
	return s.next
}

func outcomeOf(err error) string {
	if err != nil {
		return observe.OutcomeError
	}
	return observe.OutcomeOK
}
