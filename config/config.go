package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonwraymond/callcache/observe"
	"github.com/jonwraymond/callcache/secret"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMemcache = "memcache"
)

// Dispatcher modes.
const (
	ModeInline = "inline"
	ModeSerial = "serial"
)

// Config is the complete callcache configuration.
type Config struct {
	Store      StoreConfig      `json:"store"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
	Failure    FailureConfig    `json:"failure"`
	Keying     KeyingConfig     `json:"keying"`
	HTTP       HTTPConfig       `json:"http"`
	Observe    observe.Config   `json:"observe"`
}

// StoreConfig selects and configures the response store.
type StoreConfig struct {
	Backend     string   `json:"backend" validate:"required,oneof=memory redis memcache"`
	Addr        string   `json:"addr,omitempty" validate:"required_if=Backend redis"`
	Password    string   `json:"password,omitempty"`
	DB          int      `json:"db,omitempty" validate:"gte=0,lte=15"`
	Prefix      string   `json:"prefix,omitempty" validate:"max=64"`
	Servers     []string `json:"servers,omitempty" validate:"required_if=Backend memcache,dive,hostname_port"`
	DialTimeout Duration `json:"dial_timeout,omitempty" validate:"gte=0"`
	// MaxEntries degrades the memory health check once the memory store
	// holds more entries. Zero disables the limit.
	MaxEntries int `json:"max_entries,omitempty" validate:"gte=0"`
}

// DispatcherConfig selects where callbacks run.
type DispatcherConfig struct {
	Mode string `json:"mode" validate:"oneof=inline serial"`
}

// FailureConfig controls failures that follow a cache delivery.
type FailureConfig struct {
	Policy string `json:"policy" validate:"oneof=suppress report"`
}

// KeyingConfig controls cache key derivation.
type KeyingConfig struct {
	// Identity partitions keys by caller: "none", "bearer" (hash of the
	// raw token) or "jwt" (subject of an HMAC-verified token).
	Identity    string   `json:"identity" validate:"oneof=none bearer jwt"`
	JWTSecret   string   `json:"jwt_secret,omitempty" validate:"required_if=Identity jwt"`
	JWTIssuer   string   `json:"jwt_issuer,omitempty"`
	VaryHeaders []string `json:"vary_headers,omitempty" validate:"dive,required"`
	// AllowUnsafe caches unsafe methods. Keys ignore request bodies, so
	// enable it only for endpoints whose response depends on method and URL.
	AllowUnsafe bool `json:"allow_unsafe,omitempty"`
}

// HTTPConfig configures the network side of cached calls.
type HTTPConfig struct {
	Timeout         Duration `json:"timeout,omitempty" validate:"gte=0"`
	MaxAttempts     int      `json:"max_attempts,omitempty" validate:"gte=0,lte=10"`
	BreakerFailures int      `json:"breaker_failures,omitempty" validate:"gte=0"`
	BreakerReset    Duration `json:"breaker_reset,omitempty" validate:"gte=0"`
	MaxBodyBytes    int64    `json:"max_body_bytes,omitempty" validate:"gte=0"`
	Instrument      bool     `json:"instrument,omitempty"`
	// MaxConcurrent caps in-flight network calls; QueueWait is how long a
	// call waits for a slot. Zero MaxConcurrent disables the bulkhead.
	MaxConcurrent int      `json:"max_concurrent,omitempty" validate:"gte=0"`
	QueueWait     Duration `json:"queue_wait,omitempty" validate:"gte=0"`
	// Rate caps network attempts per second, retries included; Burst is
	// the bucket size. Zero Rate disables the limiter.
	Rate  float64 `json:"rate,omitempty" validate:"gte=0"`
	Burst int     `json:"burst,omitempty" validate:"gte=0"`
}

// Default returns a configuration for an in-process memory cache with
// inline delivery.
func Default() Config {
	return Config{
		Store:      StoreConfig{Backend: BackendMemory, DialTimeout: Duration(time.Second)},
		Dispatcher: DispatcherConfig{Mode: ModeInline},
		Failure:    FailureConfig{Policy: "suppress"},
		Keying:     KeyingConfig{Identity: "none"},
		HTTP:       HTTPConfig{Timeout: Duration(30 * time.Second), MaxAttempts: 1},
		Observe:    observe.Config{ServiceName: "callcache"},
	}
}

// Load decodes JSON from r over Default. Unknown fields are rejected.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// LoadFile loads the JSON file at path.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Resolve expands environment and secret references in the string fields
// that may carry them.
func (c *Config) Resolve(ctx context.Context, r *secret.Resolver) error {
	if r == nil {
		r = secret.DefaultResolver("/run/secrets")
	}
	fields := []*string{&c.Store.Addr, &c.Store.Password, &c.Store.Prefix, &c.Keying.JWTSecret}
	for i := range c.Store.Servers {
		fields = append(fields, &c.Store.Servers[i])
	}
	if err := r.ResolveInPlace(ctx, fields...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the observe section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				ns := strings.TrimPrefix(fe.Namespace(), "Config.")
				msgs = append(msgs, fmt.Sprintf("%s failed %q", ns, fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %w", ErrInvalidConfig, err)
	}
	return nil
}
