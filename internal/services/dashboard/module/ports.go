package module

import (
	"github.com/prometheus/client_golang/prometheus"

	"ghfinder/internal/services/dashboard/domain"
)

// Ports are the read-only inputs the dashboard serves from
type Ports struct {
	Tokens  domain.TokenSource // optional
	Runs    domain.RunStore
	Metrics prometheus.Gatherer // optional, /metrics is skipped when nil
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
