package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/callcache/observe"
)

type opRecorder struct {
	ops []string
}

func (r *opRecorder) RecordStoreOp(_ context.Context, op, outcome string) {
	r.ops = append(r.ops, op+"/"+outcome)
}
func (r *opRecorder) RecordDelivery(context.Context, observe.CallMeta, string, error)       {}
func (r *opRecorder) RecordSuppressed(context.Context, observe.CallMeta, error)             {}
func (r *opRecorder) RecordNetwork(context.Context, observe.CallMeta, time.Duration, error) {}

func TestInstrument_RecordsOutcomes(t *testing.T) {
	rec := &opRecorder{}
	s := Instrument(NewMemoryStore(), rec)
	ctx := context.Background()

	s.Get(ctx, "k")
	_ = s.Put(ctx, "k", []byte("v"))
	s.Get(ctx, "k")
	_ = s.Put(ctx, "bad key", nil)
	_ = s.Remove(ctx, "k")

	want := []string{"get/miss", "put/ok", "get/hit", "put/error", "remove/ok"}
	if len(rec.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", rec.ops, want)
	}
	for i := range want {
		if rec.ops[i] != want[i] {
			t.Errorf("ops[%d] = %s, want %s", i, rec.ops[i], want[i])
		}
	}
}

// flakyStore fails every Fetch with err, or misses when err is nil.
type flakyStore struct {
	*MemoryStore
	err error
}

func (s *flakyStore) Fetch(context.Context, string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, ErrMiss
}

func TestInstrument_BackendFailureIsNotAMiss(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"miss", nil, "get/miss"},
		{"backend down", errors.New("connection refused"), "get/error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &opRecorder{}
			s := Instrument(&flakyStore{MemoryStore: NewMemoryStore(), err: tt.err}, rec)
			if v, ok := s.Get(context.Background(), "k"); ok || v != nil {
				t.Errorf("Get() = %q, %v; want a miss", v, ok)
			}
			if len(rec.ops) != 1 || rec.ops[0] != tt.want {
				t.Errorf("ops = %v, want [%s]", rec.ops, tt.want)
			}
		})
	}
}

func TestInstrument_Passthrough(t *testing.T) {
	mem := NewMemoryStore()
	if Instrument(mem, nil) != Store(mem) {
		t.Error("nil metrics should return the store unchanged")
	}
	if Instrument(nil, observe.NopMetrics()) != nil {
		t.Error("nil store should stay nil")
	}
	wrapped := Instrument(mem, observe.NopMetrics())
	u, ok := wrapped.(interface{ Unwrap() Store })
	if !ok || u.Unwrap() != Store(mem) {
		t.Error("Unwrap() should return the inner store")
	}
	if err := wrapped.Put(context.Background(), "bad key", nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Put() error = %v, want passthrough ErrInvalidKey", err)
	}
}
