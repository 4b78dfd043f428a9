package call_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/callcache/cache"
	"github.com/jonwraymond/callcache/call"
	"github.com/jonwraymond/callcache/dispatch"
	"github.com/jonwraymond/callcache/observe"
)

// fakeCall is an underlying call completed by the test.
type fakeCall struct {
	req *http.Request

	mu        sync.Mutex
	cb        call.Callback[string]
	executed  bool
	canceled  bool
	execCalls int
	execResp  call.Response[string]
	execErr   error
}

func newFakeCall(method, url string) *fakeCall {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		panic(err)
	}
	return &fakeCall{req: req}
}

func (f *fakeCall) Enqueue(_ context.Context, cb call.Callback[string]) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.canceled {
		return call.ErrCanceled
	}
	if f.executed {
		return call.ErrAlreadyExecuted
	}
	f.executed = true
	f.cb = cb
	return nil
}

func (f *fakeCall) Execute(context.Context) (call.Response[string], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = true
	f.execCalls++
	return f.execResp, f.execErr
}

func (f *fakeCall) succeed(v string) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	cb.OnResponse(f, call.Response[string]{Value: v, StatusCode: http.StatusOK})
}

func (f *fakeCall) fail(err error) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	cb.OnFailure(f, err)
}

func (f *fakeCall) Cancel() {
	f.mu.Lock()
	f.canceled = true
	f.mu.Unlock()
}

func (f *fakeCall) IsCanceled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canceled
}

func (f *fakeCall) IsExecuted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executed
}

func (f *fakeCall) Request() *http.Request { return f.req }

func (f *fakeCall) Clone() call.Call[string] {
	return &fakeCall{req: f.req.Clone(f.req.Context()), execResp: f.execResp, execErr: f.execErr}
}

type event struct {
	value  string
	source call.Source
	err    error
}

// recorder collects deliveries and signals the terminal one.
type recorder struct {
	mu       sync.Mutex
	events   []event
	terminal chan struct{}
	once     sync.Once
}

func newRecorder() *recorder {
	return &recorder{terminal: make(chan struct{})}
}

func (r *recorder) OnResponse(_ call.Call[string], resp call.Response[string]) {
	r.add(event{value: resp.Value, source: resp.Source})
	if resp.Source == call.SourceNetwork {
		r.once.Do(func() { close(r.terminal) })
	}
}

func (r *recorder) OnFailure(_ call.Call[string], err error) {
	r.add(event{err: err, source: call.SourceNetwork})
	r.once.Do(func() { close(r.terminal) })
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) get() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) wait(t *testing.T) []event {
	t.Helper()
	select {
	case <-r.terminal:
	case <-time.After(5 * time.Second):
		t.Fatalf("no terminal delivery; got %v", r.get())
	}
	return r.get()
}

func newFactory(t *testing.T, store cache.Store, opts ...call.FactoryOption) *call.Factory {
	t.Helper()
	f, err := call.NewFactory(store, dispatch.Inline{}, opts...)
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}
	return f
}

// failingStore fails every operation.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (failingStore) Put(context.Context, string, []byte) error  { return errStoreDown }
func (failingStore) Remove(context.Context, string) error       { return errStoreDown }

// countingMetrics records deliveries and suppressions.
type countingMetrics struct {
	mu         sync.Mutex
	deliveries map[string]int
	suppressed int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{deliveries: map[string]int{}}
}

func (m *countingMetrics) RecordStoreOp(context.Context, string, string) {}

func (m *countingMetrics) RecordDelivery(_ context.Context, _ observe.CallMeta, source string, _ error) {
	m.mu.Lock()
	m.deliveries[source]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordSuppressed(context.Context, observe.CallMeta, error) {
	m.mu.Lock()
	m.suppressed++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordNetwork(context.Context, observe.CallMeta, time.Duration, error) {}

// countingStore counts reads against a MemoryStore.
type countingStore struct {
	*cache.MemoryStore
	gets atomic.Int32
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: cache.NewMemoryStore()}
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.gets.Add(1)
	return s.MemoryStore.Get(ctx, key)
}
