package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	phttp "ghfinder/internal/platform/net/http"
	"ghfinder/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	CORSOrigins []string      // allowed origins, none means same-origin only
	Slow        time.Duration // access log warns at or above this latency, 0 disables
	Timeout     time.Duration // request timeout, 30s when zero
	MaxInFlight int           // concurrent request cap, 0 disables
}

// CommonStack returns the root middleware slice for the dashboard server
func CommonStack(opts ...StackOptions) []func(http.Handler) http.Handler {
	var o StackOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	stack := []func(http.Handler) http.Handler{
		// tracing / correlation
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RealIP(),

		// safety
		middleware.RecoverJSON,

		// cache / freshness
		middleware.NoCache(),

		// observability
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: o.Slow}),

		// cross-origin, read-only surface
		middleware.CORS(middleware.CORSOptions{
			AllowedOrigins: o.CORSOrigins,
			AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		}),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat("/health"),
		middleware.StripSlashes(),
		middleware.Timeout(o.Timeout),
	}
	if o.MaxInFlight > 0 {
		stack = append(stack, middleware.Throttle(o.MaxInFlight))
	}
	return stack
}

// Auth wires the auth middleware to the platform JSON writer
func Auth(p middleware.AuthPort) func(http.Handler) http.Handler {
	// middleware expects write func(w http.ResponseWriter, status int, body any)
	// use phttp.JSON which matches that signature
	return middleware.Auth(p, phttp.JSON)
}
