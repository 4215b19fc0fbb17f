package github

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests  *prometheus.CounterVec
	rotations prometheus.Counter
	skips     prometheus.Counter
	backoffs  *prometheus.CounterVec
	remaining *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghfinder",
			Subsystem: "github",
			Name:      "requests_total",
			Help:      "GitHub API attempts by outcome class.",
		}, []string{"class"}),
		rotations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ghfinder",
			Subsystem: "github",
			Name:      "rotations_total",
			Help:      "Token rotations performed by the gateway.",
		}),
		skips: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ghfinder",
			Subsystem: "github",
			Name:      "skipped_total",
			Help:      "Requests abandoned after the endpoint breaker tripped.",
		}),
		backoffs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghfinder",
			Subsystem: "github",
			Name:      "backoffs_total",
			Help:      "Backoff sleeps by outcome class.",
		}, []string{"class"}),
		remaining: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ghfinder",
			Subsystem: "github",
			Name:      "token_remaining",
			Help:      "Last observed core quota remaining per masked token.",
		}, []string{"token"}),
	}
}
