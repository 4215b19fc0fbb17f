// Package module wires the read-only dashboard: meta routes, the /api views
// over the token pool and checkpoints, and Prometheus metrics
package module

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	modkit "ghfinder/internal/modkit"
	"ghfinder/internal/modkit/httpkit"
	perr "ghfinder/internal/platform/errors"
	phttp "ghfinder/internal/platform/net/http"
	"ghfinder/internal/platform/net/middleware"
	str "ghfinder/internal/platform/strings"
	dashhttp "ghfinder/internal/services/dashboard/http"
	dashsvc "ghfinder/internal/services/dashboard/service"
)

var _ modkit.Module = (*Module)(nil)

// Module implements the dashboard module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	opts   Options

	ports    Ports
	register func(httpkit.Router)

	svc       dashsvc.Service
	startedAt time.Time
}

// New constructs the dashboard module. Inputs arrive through
// modkit.WithPorts(Ports{...}); modkit.WithRegister adds routes under /api
func New(deps modkit.Deps, opts Options, mopts ...modkit.Option) (*Module, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b := modkit.Build(append([]modkit.Option{modkit.WithName("dashboard"), modkit.WithPrefix("/api")}, mopts...)...)
	ports, _ := b.Ports.(Ports)
	if ports.Runs == nil {
		return nil, perr.InvalidArgf("dashboard requires a checkpoint store")
	}

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		opts:      opts,
		ports:     ports,
		svc:       dashsvc.New(ports.Tokens, ports.Runs),
		startedAt: time.Now(),
	}

	var auth middleware.AuthPort
	if opts.Token != "" {
		auth = tokenPort(opts.Token)
	}
	external := b.Register
	m.register = func(r httpkit.Router) {
		httpkit.Protected(r, auth, func(pr httpkit.Router) {
			dashhttp.Register(pr, m.svc)
			external(pr)
		})
	}
	return m, nil
}

// Stack is the middleware applied at the server root
func (m *Module) Stack() []func(http.Handler) http.Handler {
	return httpkit.CommonStack(httpkit.StackOptions{
		CORSOrigins: m.opts.CORSOrigins,
		Slow:        m.opts.Slow,
		Timeout:     m.opts.Timeout,
		MaxInFlight: m.opts.MaxInFlight,
	})
}

// Server builds an HTTP server on the configured address with the stack and
// every route mounted
func (m *Module) Server() *phttp.Server {
	srv := phttp.NewServerAt(m.opts.Addr)
	r := srv.Router()
	r.Use(m.Stack()...)
	m.MountRoutes(r)
	return srv
}

// MountRoutes mounts /meta, the module prefix, /metrics and, when enabled,
// pprof under /debug
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route("/meta", func(rr httpkit.Router) {
		dashhttp.RegisterMeta(rr, dashhttp.MetaDeps{ServiceName: "ghfinder", StartedAt: m.startedAt})
	})
	r.Route(m.prefix, func(rr httpkit.Router) {
		if m.register != nil {
			m.register(rr)
		}
	})
	if m.opts.Metrics && m.ports.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.ports.Metrics, promhttp.HandlerOpts{}))
	}
	phttp.MountProfiler(r, "/debug", m.opts.Pprof)
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "dashboard") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Options returns the effective options
func (m *Module) Options() Options { return m.opts }
