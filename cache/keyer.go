package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// Keyer derives deterministic cache keys from outgoing requests.
//
// Contract:
// - Determinism: logically identical requests must produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a non-nil error disables caching for that request only.
type Keyer interface {
	// Key derives the cache key for req.
	Key(req *http.Request) (string, error)
}

// KeyFunc adapts a plain function to the Keyer interface.
type KeyFunc func(req *http.Request) (string, error)

// Key calls f(req).
func (f KeyFunc) Key(req *http.Request) (string, error) {
	return f(req)
}

// IdentityFunc returns the part of a request's identity that is not visible
// in its method and URL, such as the authenticated principal. An empty
// result adds nothing to the key.
type IdentityFunc func(req *http.Request) string

// DefaultNormalization is the purell flag set applied to request URLs.
const DefaultNormalization = purell.FlagsSafe |
	purell.FlagRemoveDotSegments |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveFragment |
	purell.FlagSortQuery

// KeyerOption configures a DefaultKeyer.
type KeyerOption func(*DefaultKeyer)

// WithIdentity partitions keys by the value returned from fn.
func WithIdentity(fn IdentityFunc) KeyerOption {
	return func(k *DefaultKeyer) {
		k.identity = fn
	}
}

// WithNormalization overrides the URL normalization flags.
func WithNormalization(flags purell.NormalizationFlags) KeyerOption {
	return func(k *DefaultKeyer) {
		k.flags = flags
	}
}

// DefaultKeyer generates SHA-256 based keys from method and normalized URL.
type DefaultKeyer struct {
	flags    purell.NormalizationFlags
	identity IdentityFunc
}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer(opts ...KeyerOption) *DefaultKeyer {
	k := &DefaultKeyer{flags: DefaultNormalization}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Key generates a deterministic cache key.
// Format: cache:<METHOD>:<hash>
// where hash is the first 32 hex characters of
// SHA-256(METHOD "\n" normalized-URL ["\n" identity] ["\nbody:" digest]).
// A request body is read through GetBody; a body that cannot be replayed
// fails with ErrUnsupportedRequest.
func (k *DefaultKeyer) Key(req *http.Request) (string, error) {
	canonical, method, err := k.canonical(req)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256([]byte(canonical))
	key := fmt.Sprintf("cache:%s:%s", method, hex.EncodeToString(hash[:16]))
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

func (k *DefaultKeyer) canonical(req *http.Request) (string, string, error) {
	if req == nil || req.URL == nil {
		return "", "", ErrUnsupportedRequest
	}
	if req.URL.Opaque != "" || req.URL.Host == "" {
		return "", "", fmt.Errorf("%w: %q is not an absolute hierarchical URL", ErrUnsupportedRequest, req.URL.String())
	}

	method := requestMethod(req)
	if strings.ContainsAny(method, " \t\r\n:") {
		return "", "", fmt.Errorf("%w: invalid method %q", ErrUnsupportedRequest, method)
	}

	var b strings.Builder
	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(NormalizeURL(req.URL, k.flags))
	if k.identity != nil {
		if id := k.identity(req); id != "" {
			b.WriteByte('\n')
			b.WriteString(id)
		}
	}
	digest, err := bodyDigest(req)
	if err != nil {
		return "", "", err
	}
	if digest != "" {
		b.WriteString("\nbody:")
		b.WriteString(digest)
	}
	return b.String(), method, nil
}

func bodyDigest(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return "", nil
	}
	if req.GetBody == nil {
		return "", fmt.Errorf("%w: body cannot be replayed", ErrUnsupportedRequest)
	}
	body, err := req.GetBody()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupportedRequest, err)
	}
	defer body.Close()
	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupportedRequest, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NormalizeURL returns the canonical string form of u without modifying it.
func NormalizeURL(u *url.URL, flags purell.NormalizationFlags) string {
	cp := *u
	if u.User != nil {
		// credentials never take part in the identity of a resource
		cp.User = nil
	}
	return purell.NormalizeURL(&cp, flags)
}

func requestMethod(req *http.Request) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(req.Method)
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
