// Package middleware holds chi adapters and the dashboard's own middlewares
package middleware

import (
	"net/http"
	"time"

	"ghfinder/internal/platform/logger"
	pnet "ghfinder/internal/platform/net"
)

// AccessLogOptions configures the access log
type AccessLogOptions struct {
	// Slow logs requests at warn level once they take this long, 0 disables
	Slow time.Duration
}

type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += max(n, 0)
	return n, err
}

// RequestLogger scopes logger.C to the request id set by RequestID. The run
// id already on the server's base context carries through
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithRequest(r.Context(), pnet.RequestID(r.Context()), "")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLogZerolog writes one line per request on the request scoped logger
func AccessLogZerolog(opt AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(cw, r)

			elapsed := time.Since(start)
			log := logger.C(r.Context())
			evt := log.Debug()
			switch {
			case cw.status >= http.StatusInternalServerError:
				evt = log.Error()
			case opt.Slow > 0 && elapsed >= opt.Slow:
				evt = log.Warn()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", cw.status).
				Int("bytes", cw.bytes).
				Dur("elapsed", elapsed).
				Msg("request")
		})
	}
}
