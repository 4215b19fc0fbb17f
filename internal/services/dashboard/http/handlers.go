// Package http provides the dashboard transport
package http

import (
	stdhttp "net/http"

	"ghfinder/internal/modkit/httpkit"
	phttp "ghfinder/internal/platform/net/http"
	"ghfinder/internal/services/dashboard/domain"
	svc "ghfinder/internal/services/dashboard/service"
)

// Register mounts the dashboard API routes on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// credential pool snapshot
	httpkit.Get(r, "/tokens", h.tokens)

	// runs and their checkpoints
	httpkit.Get(r, "/runs", h.runs)
	httpkit.Get(r, "/runs/{run}/checkpoints", h.checkpoints)

	// ranked profiles from the newest checkpoint of a run
	httpkit.Get(r, "/runs/{run}/profiles", h.profiles)
}

type handlers struct{ svc svc.Service }

// GET /api/tokens
func (h *handlers) tokens(r *stdhttp.Request) (any, error) {
	return h.svc.Tokens(r.Context())
}

// GET /api/runs
func (h *handlers) runs(r *stdhttp.Request) (any, error) {
	return h.svc.Runs(r.Context())
}

// GET /api/runs/{run}/checkpoints
func (h *handlers) checkpoints(r *stdhttp.Request) (any, error) {
	return h.svc.Checkpoints(r.Context(), phttp.Param(r, "run"))
}

// GET /api/runs/{run}/profiles?limit=
func (h *handlers) profiles(r *stdhttp.Request) (any, error) {
	return h.svc.Profiles(r.Context(), domain.ProfilesInput{
		Run:   phttp.Param(r, "run"),
		Limit: phttp.QueryInt(r, "limit", 0),
	})
}
