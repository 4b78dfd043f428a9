package cache

import (
	"net/http"
	"strings"
)

// SkipRule determines whether to skip caching for a given request.
// Returns true if caching should be skipped.
type SkipRule func(req *http.Request) bool

// UnsafeMethods are HTTP methods whose responses should not be replayed.
var UnsafeMethods = []string{
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodConnect,
}

// DefaultSkipRule skips caching for requests with unsafe methods.
// Method matching is case-insensitive.
func DefaultSkipRule(req *http.Request) bool {
	if req == nil {
		return true
	}
	method := strings.ToUpper(req.Method)
	for _, unsafe := range UnsafeMethods {
		if method == unsafe {
			return true
		}
	}
	return false
}

// Policy decides which requests take part in caching.
//
// A custom SkipRule always applies. When SkipRule is nil, DefaultSkipRule
// applies unless AllowUnsafe is set. Requests that carry a body are keyed
// on a digest of it, so unsafe methods with distinct payloads never share
// an entry.
type Policy struct {
	// AllowUnsafe lifts the default method check. It does not bypass a
	// custom SkipRule.
	AllowUnsafe bool

	// SkipRule replaces DefaultSkipRule when set.
	SkipRule SkipRule
}

// DefaultPolicy returns the default caching policy: unsafe methods skip
// the store.
func DefaultPolicy() Policy {
	return Policy{}
}

// AllowAllPolicy returns a policy that caches every keyable request.
func AllowAllPolicy() Policy {
	return Policy{AllowUnsafe: true}
}

// Check returns ErrNotCacheable if req should bypass the store.
func (p Policy) Check(req *http.Request) error {
	rule := p.SkipRule
	if rule == nil {
		if p.AllowUnsafe {
			return nil
		}
		rule = DefaultSkipRule
	}
	if rule(req) {
		return ErrNotCacheable
	}
	return nil
}
