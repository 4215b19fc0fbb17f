// Package httpkit provides tiny HTTP helpers and adapters
package httpkit

import (
	"net/http"
	"strings"

	perrs "ghfinder/internal/platform/errors"
)

// TokenFunc checks a bearer token and returns the caller it identifies
type TokenFunc func(token string) (caller string, err error)

// Port implements middleware.AuthPort by reading Authorization and delegating to a TokenFunc
type Port struct {
	parse TokenFunc
}

// NewPortFunc builds a Port from a simple parser function
func NewPortFunc(fn TokenFunc) *Port {
	return &Port{parse: fn}
}

// Parse extracts the caller from an Authorization Bearer token
// returns unauthorized when the header is missing, malformed, or the parser returns an error
func (p *Port) Parse(r *http.Request) (string, error) {
	raw, err := bearer(r)
	if err != nil {
		return "", err
	}
	if p.parse == nil {
		return "", perrs.Unauthorizedf("invalid bearer token")
	}
	caller, err := p.parse(raw)
	if err != nil {
		return "", perrs.Unauthorizedf("invalid bearer token")
	}
	return caller, nil
}

// bearer returns the raw token of a case-insensitive "Bearer" header
func bearer(r *http.Request) (string, error) {
	s := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer"
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	raw := strings.TrimSpace(s[len(prefix):])
	if raw == "" {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	return raw, nil
}
