package call_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jonwraymond/callcache/cache"
	"github.com/jonwraymond/callcache/call"
	"github.com/jonwraymond/callcache/codec"
	"github.com/jonwraymond/callcache/dispatch"
)

func TestNewFactory_NilDispatcher(t *testing.T) {
	if _, err := call.NewFactory(cache.NewMemoryStore(), nil); !errors.Is(err, call.ErrNilDispatcher) {
		t.Errorf("NewFactory(nil dispatcher) error = %v", err)
	}
}

func TestFactory_Defaults(t *testing.T) {
	store := cache.NewMemoryStore()
	f, err := call.NewFactory(store, dispatch.Inline{})
	if err != nil {
		t.Fatal(err)
	}
	if f.Store() != store {
		t.Error("Store() mismatch")
	}
	if _, ok := f.Dispatcher().(dispatch.Inline); !ok {
		t.Errorf("Dispatcher() = %T", f.Dispatcher())
	}
	if f.FailurePolicy() != call.FailureSuppress {
		t.Errorf("FailurePolicy() = %v, want suppress", f.FailurePolicy())
	}
}

func TestFactory_KeyFor(t *testing.T) {
	custom := cache.KeyFunc(func(req *http.Request) (string, error) {
		return "custom:" + req.URL.Path, nil
	})
	bad := cache.KeyFunc(func(*http.Request) (string, error) {
		return "has space", nil
	})

	tests := []struct {
		name    string
		opts    []call.FactoryOption
		method  string
		url     string
		want    string
		wantErr error
	}{
		{"default get", nil, http.MethodGet, testURL, "cache:GET:", nil},
		{"post skipped", nil, http.MethodPost, testURL, "", cache.ErrNotCacheable},
		{"post allowed", []call.FactoryOption{call.WithCachePolicy(cache.AllowAllPolicy())}, http.MethodPost, testURL, "cache:POST:", nil},
		{"custom keyer", []call.FactoryOption{call.WithKeyer(custom)}, http.MethodGet, testURL, "custom:/items", nil},
		{"invalid key", []call.FactoryOption{call.WithKeyer(bad)}, http.MethodGet, testURL, "", cache.ErrInvalidKey},
		{"relative url", nil, http.MethodGet, "/relative", "", cache.ErrUnsupportedRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFactory(t, cache.NewMemoryStore(), tt.opts...)
			key, err := f.KeyFor(newFakeCall(tt.method, tt.url).Request())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("KeyFor() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("KeyFor() error = %v", err)
			}
			if !strings.HasPrefix(key, tt.want) {
				t.Errorf("KeyFor() = %q, want prefix %q", key, tt.want)
			}
		})
	}
}

func TestParseFailurePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    call.FailurePolicy
		wantErr bool
	}{
		{"", call.FailureSuppress, false},
		{"suppress", call.FailureSuppress, false},
		{" Report ", call.FailureReport, false},
		{"explode", call.FailureSuppress, true},
	}
	for _, tt := range tests {
		got, err := call.ParseFailurePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFailurePolicy(%q) = %v, %v", tt.in, got, err)
		}
		if err == nil && got.String() != strings.ToLower(strings.TrimSpace(tt.in)) && tt.in != "" {
			t.Errorf("String() = %q", got.String())
		}
	}
}

func TestNewAdapter_Validation(t *testing.T) {
	f := newFactory(t, cache.NewMemoryStore())
	caller := call.CallerFunc[string](func(req *http.Request) call.Call[string] {
		return &fakeCall{req: req}
	})

	if _, err := call.NewAdapter[string](nil, caller, codec.String{}); !errors.Is(err, call.ErrNilFactory) {
		t.Errorf("nil factory error = %v", err)
	}
	if _, err := call.NewAdapter[string](f, nil, codec.String{}); !errors.Is(err, call.ErrNilCaller) {
		t.Errorf("nil caller error = %v", err)
	}
	if _, err := call.NewAdapter[string](f, caller, nil); !errors.Is(err, call.ErrNilCodec) {
		t.Errorf("nil codec error = %v", err)
	}

	a, err := call.NewAdapter[string](f, caller, codec.String{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Factory() != f {
		t.Error("Factory() mismatch")
	}
	inner := newFakeCall(http.MethodGet, testURL)
	if c := a.Wrap(inner); c.Request() != inner.Request() {
		t.Error("Wrap() lost the request")
	}
	if c := a.Call(inner.Request()); c.IsExecuted() {
		t.Error("Call() returned an executed call")
	}
}
