package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/callcache/config"
	"github.com/jonwraymond/callcache/observe"
	"github.com/jonwraymond/callcache/secret"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != config.BackendMemory {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, config.BackendMemory)
	}
	if cfg.Dispatcher.Mode != config.ModeInline {
		t.Errorf("Dispatcher.Mode = %q, want %q", cfg.Dispatcher.Mode, config.ModeInline)
	}
	if cfg.Failure.Policy != "suppress" {
		t.Errorf("Failure.Policy = %q, want suppress", cfg.Failure.Policy)
	}
	if cfg.Observe.ServiceName != "callcache" {
		t.Errorf("Observe.ServiceName = %q", cfg.Observe.ServiceName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_OverridesKeepUnsetFields(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(`{
		"http": {"timeout": "2s", "breaker_reset": 1000000000, "max_attempts": 4},
		"observe": {"logging": {"enabled": true, "level": "warn"}}
	}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.HTTP.Timeout.Std(); got != 2*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 2s", got)
	}
	if got := cfg.HTTP.BreakerReset.Std(); got != time.Second {
		t.Errorf("HTTP.BreakerReset = %v, want 1s", got)
	}
	if cfg.HTTP.MaxAttempts != 4 {
		t.Errorf("HTTP.MaxAttempts = %d, want 4", cfg.HTTP.MaxAttempts)
	}
	if cfg.Observe.ServiceName != "callcache" {
		t.Errorf("Observe.ServiceName = %q, want default kept", cfg.Observe.ServiceName)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "unknown field", in: `{"stroe": {}}`},
		{name: "bad duration", in: `{"http": {"timeout": "soon"}}`},
		{name: "duration type", in: `{"http": {"timeout": true}}`},
		{name: "malformed", in: `{"store":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.Load(strings.NewReader(tt.in)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "callcache.json")
	if err := os.WriteFile(path, []byte(`{"dispatcher": {"mode": "serial"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Dispatcher.Mode != config.ModeSerial {
		t.Errorf("Dispatcher.Mode = %q, want serial", cfg.Dispatcher.Mode)
	}

	if _, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFile(missing) error = nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{
			name:   "unknown backend",
			mutate: func(c *config.Config) { c.Store.Backend = "disk" },
			field:  "store.backend",
		},
		{
			name:   "redis without addr",
			mutate: func(c *config.Config) { c.Store.Backend = config.BackendRedis },
			field:  "store.addr",
		},
		{
			name: "redis db out of range",
			mutate: func(c *config.Config) {
				c.Store.Backend = config.BackendRedis
				c.Store.Addr = "localhost:6379"
				c.Store.DB = 16
			},
			field: "store.db",
		},
		{
			name:   "memcache without servers",
			mutate: func(c *config.Config) { c.Store.Backend = config.BackendMemcache },
			field:  "store.servers",
		},
		{
			name: "memcache bad server",
			mutate: func(c *config.Config) {
				c.Store.Backend = config.BackendMemcache
				c.Store.Servers = []string{"localhost:11211", "no-port"}
			},
			field: "store.servers[1]",
		},
		{
			name:   "dispatcher mode",
			mutate: func(c *config.Config) { c.Dispatcher.Mode = "pool" },
			field:  "dispatcher.mode",
		},
		{
			name:   "failure policy",
			mutate: func(c *config.Config) { c.Failure.Policy = "ignore" },
			field:  "failure.policy",
		},
		{
			name:   "identity",
			mutate: func(c *config.Config) { c.Keying.Identity = "cookie" },
			field:  "keying.identity",
		},
		{
			name:   "jwt without secret",
			mutate: func(c *config.Config) { c.Keying.Identity = "jwt" },
			field:  "keying.jwt_secret",
		},
		{
			name:   "negative rate",
			mutate: func(c *config.Config) { c.HTTP.Rate = -1 },
			field:  "http.rate",
		},
		{
			name:   "negative max concurrent",
			mutate: func(c *config.Config) { c.HTTP.MaxConcurrent = -1 },
			field:  "http.max_concurrent",
		},
		{
			name:   "empty vary header",
			mutate: func(c *config.Config) { c.Keying.VaryHeaders = []string{"Accept", ""} },
			field:  "keying.vary_headers[1]",
		},
		{
			name:   "too many attempts",
			mutate: func(c *config.Config) { c.HTTP.MaxAttempts = 11 },
			field:  "http.max_attempts",
		},
		{
			name:   "negative timeout",
			mutate: func(c *config.Config) { c.HTTP.Timeout = config.Duration(-time.Second) },
			field:  "http.timeout",
		},
		{
			name: "observe log level",
			mutate: func(c *config.Config) {
				c.Observe.Logging = observe.LoggingConfig{Enabled: true, Level: "loud"}
			},
			field: "observe",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.field)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "redis-password"), []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CALLCACHE_TEST_REDIS_HOST", "10.0.0.7")
	t.Setenv("CALLCACHE_TEST_TENANT", "acme")

	cfg := config.Default()
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Addr = "${CALLCACHE_TEST_REDIS_HOST}:6379"
	cfg.Store.Password = "secretref:file:redis-password"
	cfg.Store.Prefix = "secretref:env:CALLCACHE_TEST_TENANT"

	if err := cfg.Resolve(context.Background(), secret.DefaultResolver(dir)); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Store.Addr != "10.0.0.7:6379" {
		t.Errorf("Store.Addr = %q", cfg.Store.Addr)
	}
	if cfg.Store.Password != "s3cret" {
		t.Errorf("Store.Password not resolved from file")
	}
	if cfg.Store.Prefix != "acme" {
		t.Errorf("Store.Prefix = %q, want acme", cfg.Store.Prefix)
	}
}

func TestResolve_Servers(t *testing.T) {
	t.Setenv("CALLCACHE_TEST_MC", "mc-1.internal")

	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemcache
	cfg.Store.Servers = []string{"${CALLCACHE_TEST_MC}:11211", "mc-2.internal:11211"}
	if err := cfg.Resolve(context.Background(), secret.DefaultResolver(t.TempDir())); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Store.Servers[0] != "mc-1.internal:11211" {
		t.Errorf("Servers[0] = %q", cfg.Store.Servers[0])
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestResolve_MissingEnv(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Addr = "${CALLCACHE_TEST_UNSET_VARIABLE}"
	err := cfg.Resolve(context.Background(), secret.DefaultResolver(t.TempDir()))
	if !errors.Is(err, secret.ErrMissingEnv) {
		t.Fatalf("Resolve() error = %v, want ErrMissingEnv", err)
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := config.Duration(1500 * time.Millisecond).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"1.5s"` {
		t.Errorf("MarshalJSON() = %s, want \"1.5s\"", b)
	}
}
