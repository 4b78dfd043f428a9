package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// BearerSubject partitions keys by a hash of the whole bearer token.
//
// Claims are not trusted without verification: anyone can mint a token
// carrying another principal's subject, and a cached body served to that
// token is an access decision. Two tokens therefore share a partition only
// when they are byte-identical. Use VerifiedBearerSubject to partition by
// subject across token renewals.
func BearerSubject(req *http.Request) string {
	if req == nil {
		return ""
	}
	raw, ok := bearerToken(req.Header.Get("Authorization"))
	if !ok {
		return ""
	}
	return tokenHash(raw)
}

// VerifiedBearerSubject partitions keys by the subject of a bearer JWT
// whose signature verifies with keyFunc. Tokens that fail verification or
// carry no subject fall back to BearerSubject.
func VerifiedBearerSubject(keyFunc jwt.Keyfunc, opts ...jwt.ParserOption) IdentityFunc {
	parser := jwt.NewParser(opts...)
	return func(req *http.Request) string {
		if req == nil {
			return ""
		}
		raw, ok := bearerToken(req.Header.Get("Authorization"))
		if !ok {
			return ""
		}
		var claims jwt.RegisteredClaims
		tok, err := parser.ParseWithClaims(raw, &claims, keyFunc)
		if err != nil || !tok.Valid || claims.Subject == "" {
			return tokenHash(raw)
		}
		if claims.Issuer != "" {
			return "sub:" + claims.Issuer + "/" + claims.Subject
		}
		return "sub:" + claims.Subject
	}
}

// HMACKeyfunc verifies HS256/HS384/HS512 tokens against secret.
func HMACKeyfunc(secret []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("cache: unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}
}

func tokenHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "tok:" + hex.EncodeToString(sum[:8])
}

// HeaderIdentity partitions keys by the values of the named headers, for
// responses that vary on them (Accept-Language, Accept, ...).
func HeaderIdentity(names ...string) IdentityFunc {
	canonical := make([]string, 0, len(names))
	for _, n := range names {
		canonical = append(canonical, http.CanonicalHeaderKey(n))
	}
	sort.Strings(canonical)

	return func(req *http.Request) string {
		if req == nil {
			return ""
		}
		var b strings.Builder
		for _, name := range canonical {
			values := req.Header.Values(name)
			if len(values) == 0 {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(';')
			}
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(strings.Join(values, ","))
		}
		return b.String()
	}
}

// CombineIdentity joins the non-empty results of fns.
func CombineIdentity(fns ...IdentityFunc) IdentityFunc {
	return func(req *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if id := fn(req); id != "" {
				parts = append(parts, id)
			}
		}
		return strings.Join(parts, "|")
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
