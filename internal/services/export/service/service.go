// Package service renders crawl results: the profiles.json snapshot, the
// markdown analysis and prompt, the console summary and the optional
// Postgres sink
package service

import (
	"context"
	"time"

	"ghfinder/internal/modkit/repokit"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/logger"
	"ghfinder/internal/services/export/domain"
	pdomain "ghfinder/internal/services/profiler/domain"
)

// Config for the export service
type Config struct {
	SummaryPerCategory int           // rows per category in the console summary
	PromptPerCategory  int           // profiles per category in ai_prompt.md
	StatementTimeout   time.Duration // per statement limit inside the sink tx, 0 for none
	SinkAttempts       int           // tx attempts on serialization failures and deadlocks
	Now                func() time.Time
}

// Svc implements domain.ReportPort and domain.SinkPort
type Svc struct {
	cfg    Config
	db     repokit.TxRunner
	binder repokit.Binder[domain.Repo]
	log    logger.Logger
}

var (
	_ domain.ReportPort = (*Svc)(nil)
	_ domain.SinkPort   = (*Svc)(nil)
)

// New constructs the export service. db may be nil, which disables the sink
func New(db repokit.TxRunner, binder repokit.Binder[domain.Repo], cfg Config) *Svc {
	if cfg.SummaryPerCategory <= 0 {
		cfg.SummaryPerCategory = 10
	}
	if cfg.PromptPerCategory <= 0 {
		cfg.PromptPerCategory = 5
	}
	if cfg.SinkAttempts <= 0 {
		cfg.SinkAttempts = 3
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if db != nil && cfg.StatementTimeout > 0 {
		db = repokit.WithBeginHooks(db, repokit.StatementTimeout(cfg.StatementTimeout))
	}
	return &Svc{cfg: cfg, db: db, binder: binder, log: *logger.Named("export")}
}

// SinkEnabled reports a configured database
func (s *Svc) SinkEnabled() bool { return s.db != nil && s.binder != nil }

// Sink upserts ps in one transaction and returns the number written. The
// transaction is replayed while Postgres reports a transient conflict
func (s *Svc) Sink(ctx context.Context, runID string, ps []*pdomain.Profile) (int, error) {
	if !s.SinkEnabled() || len(ps) == 0 {
		return 0, nil
	}
	var (
		n, total int
		err      error
	)
	for attempt := 1; ; attempt++ {
		err = repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
			r := repokit.MustBind(s.binder, q)
			var err error
			if n, err = r.UpsertProfiles(ctx, runID, ps); err != nil {
				return err
			}
			total, err = r.Count(ctx)
			return err
		})
		if err == nil || attempt >= s.cfg.SinkAttempts || !perr.Retryable(err) || ctx.Err() != nil {
			break
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("sink tx conflict, retrying")
	}
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("profiles", n).Int("stored_total", total).Str("run_id", runID).Msg("profiles stored")
	return n, nil
}

// TopProfiles lists stored profiles; nil when the sink is disabled
func (s *Svc) TopProfiles(ctx context.Context, limit int) ([]domain.ProfileRow, error) {
	if !s.SinkEnabled() {
		return nil, nil
	}
	return s.binder.Bind(s.db).TopProfiles(ctx, limit)
}
