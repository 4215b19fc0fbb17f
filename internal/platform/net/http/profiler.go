package http

import (
	stdhttp "net/http"

	mw "github.com/go-chi/chi/v5/middleware"
)

// MountProfiler exposes the pprof index under prefix (the dashboard uses
// "/debug"). Nothing is registered when enabled is false
func MountProfiler(r Router, prefix string, enabled bool) {
	if !enabled {
		return
	}
	prof := stdhttp.StripPrefix(prefix, mw.Profiler()).ServeHTTP
	for _, pattern := range []string{prefix, prefix + "/*"} {
		r.Get(pattern, prof)
	}
}
