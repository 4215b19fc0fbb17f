// Package module wires the export service and exposes its ports
package module

import (
	"context"

	"ghfinder/internal/modkit"
	"ghfinder/internal/modkit/httpkit"
	"ghfinder/internal/modkit/repokit"
	"ghfinder/internal/platform/store"
	"ghfinder/internal/services/export/domain"
	"ghfinder/internal/services/export/repo"
	"ghfinder/internal/services/export/service"
)

var _ modkit.Module = (*Module)(nil)

// Module defines the export module
type Module struct {
	deps  modkit.Deps
	opts  Options
	svc   *service.Svc
	ports Ports
}

// New constructs the export module. The database sink is enabled when deps
// carries a Postgres runner
func New(deps modkit.Deps, overrides Options) *Module {
	opts := FromConfig(deps.Cfg)
	if overrides.SummaryPerCategory != 0 {
		opts.SummaryPerCategory = overrides.SummaryPerCategory
	}
	if overrides.PromptPerCategory != 0 {
		opts.PromptPerCategory = overrides.PromptPerCategory
	}

	var binder repokit.Binder[domain.Repo]
	if deps.PG != nil {
		binder = repo.NewPG()
	}
	svc := service.New(deps.PG, binder, service.Config{
		SummaryPerCategory: opts.SummaryPerCategory,
		PromptPerCategory:  opts.PromptPerCategory,
		StatementTimeout:   opts.StatementTimeout,
		SinkAttempts:       opts.SinkAttempts,
	})

	m := &Module{deps: deps, opts: opts, svc: svc}
	m.ports = Ports{Report: svc, Sink: svc}
	return m
}

// Start checks the database and applies the export schema when the sink is
// enabled
func (m *Module) Start(ctx context.Context) error {
	if m.deps.PG == nil {
		return nil
	}
	if p, ok := m.deps.PG.(store.Pinger); ok {
		if err := repokit.Ping(ctx, "pg", p); err != nil {
			return err
		}
	}
	if !m.opts.Migrate {
		return nil
	}
	return repo.Migrate(ctx, m.deps.PG, repo.Migrations)
}

// Service exposes the export service
func (m *Module) Service() *service.Svc { return m.svc }

// Name returns the module name
func (m *Module) Name() string { return "export" }

// Ports returns the module ports (Report, Sink)
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts nothing
func (m *Module) MountRoutes(_ httpkit.Router) {}
