package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Param returns the named path parameter
func Param(r *stdhttp.Request, name string) string { return chi.URLParam(r, name) }

// QueryInt parses a query parameter as an int, returning def when absent or malformed
func QueryInt(r *stdhttp.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
