package middleware

import (
	"net/http"

	pnet "ghfinder/internal/platform/net"
)

// AuthPort authenticates a request
type AuthPort interface {
	// Parse returns the caller identity or an error
	Parse(r *http.Request) (caller string, err error)
}

// Auth rejects requests the port refuses. A nil port lets everything through
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			caller, err := p.Parse(r)
			if err != nil {
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithCaller(r.Context(), caller)))
		})
	}
}
