// Package module wires the crawl service, its gateway and its checkpoint
// store and exposes their ports
package module

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"ghfinder/internal/adapters/github"
	"ghfinder/internal/adapters/github/tokens"
	"ghfinder/internal/modkit"
	"ghfinder/internal/modkit/httpkit"
	"ghfinder/internal/services/crawl/repo"
	"ghfinder/internal/services/crawl/service"
	profiler "ghfinder/internal/services/profiler/service"
)

var _ modkit.Module = (*Module)(nil)

// Module defines the crawl module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports

	gh    *github.Client
	svc   *service.Svc
	store *repo.Checkpoints
}

// New constructs the crawl module over pool. Metrics go to reg when set
func New(deps modkit.Deps, pool *tokens.Pool, reg prometheus.Registerer, overrides Options) (*Module, error) {
	// Load defaults from config then apply overrides from CLI
	opts := FromConfig(deps.Cfg).merge(overrides)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ghOpts := github.OptionsFromConfig(deps.Cfg.Prefix("GHFINDER_"))
	if opts.Concurrency > 0 {
		ghOpts.Concurrency = opts.Concurrency
	}
	ghOpts.Registerer = reg
	gh := github.NewClient(pool, ghOpts)

	store := repo.New(repo.Options{BaseDir: opts.RunsDir, Run: opts.Run, Compress: opts.Compress})
	svc := service.New(deps, opts.serviceConfig(), service.Collaborators{
		Gateway:     gh,
		Quota:       gh.Pool(),
		Analyzer:    profiler.NewAnalyzer(gh, profiler.AnalyzerConfig{}),
		Evaluator:   profiler.NewEvaluator(),
		Checkpoints: store,
	})

	m := &Module{deps: deps, opts: opts, gh: gh, svc: svc, store: store}
	m.ports = Ports{Run: svc, Checkpoints: store}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "crawl" }

// Ports returns the module ports (Run, Checkpoints)
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts nothing; the dashboard reads crawl state through ports
func (m *Module) MountRoutes(_ httpkit.Router) {}

// Options returns the effective options
func (m *Module) Options() Options { return m.opts }

// Client exposes the gateway for token checks
func (m *Module) Client() *github.Client { return m.gh }

// Checkpoints exposes the checkpoint store
func (m *Module) Checkpoints() *repo.Checkpoints { return m.store }

// Service exposes the crawl service
func (m *Module) Service() *service.Svc { return m.svc }

// Resume loads the checkpoint ref points at into the service. A checkpoint
// that cannot be loaded leaves a fresh state and returns the error
func (m *Module) Resume(ctx context.Context, ref string) (string, error) {
	path, err := m.store.Resolve(ref)
	if err != nil {
		return "", err
	}
	st, err := m.store.Load(ctx, path)
	m.svc.Restore(st)
	if err != nil {
		return path, err
	}
	return path, nil
}
