package http

import (
	stdhttp "net/http"
	"time"

	"ghfinder/internal/core/version"
	"ghfinder/internal/modkit/httpkit"
)

// MetaDeps are the meta handler dependencies
type MetaDeps struct {
	ServiceName string
	StartedAt   time.Time
	Now         func() time.Time
}

// HealthResponse is the health payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	Now     string `json:"now"`
}

// ServiceResponse describes service info
type ServiceResponse struct {
	Name    string `json:"name"`
	Started string `json:"started"`
	Uptime  int64  `json:"uptime"`
}

type meta struct{ deps MetaDeps }

// RegisterMeta mounts health, version and service info routes
func RegisterMeta(r httpkit.Router, d MetaDeps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &meta{deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

// GET /meta/health
func (h *meta) health(_ *stdhttp.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     h.deps.Now().UTC().Format(time.RFC3339),
	}, nil
}

// GET /meta/version
func (h *meta) version(_ *stdhttp.Request) (any, error) {
	return version.Info(), nil
}

// GET /meta/service
func (h *meta) service(_ *stdhttp.Request) (any, error) {
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(h.deps.Now().Sub(h.deps.StartedAt) / time.Second),
	}, nil
}
