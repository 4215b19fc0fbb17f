package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"ghfinder/internal/adapters/github"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/services/crawl/domain"
	pdomain "ghfinder/internal/services/profiler/domain"
)

// run tracks one Run call
type run struct {
	report  domain.RunReport
	started int
	done    int
	failed  int
}

func (r *run) set(t domain.Target, st domain.TargetStatus) { r.report.Statuses[t.FullName] = st.String() }

// Run crawls targets in order. It returns the report together with the error
// that ended the run early, if any. A run that finds every credential
// exhausted up front makes no gateway calls and reports the stored profiles
func (s *Svc) Run(ctx context.Context, targets []domain.Target, opts domain.RunOptions) (domain.RunReport, error) {
	r := &run{report: domain.RunReport{Statuses: make(map[string]string, len(targets))}}
	for _, t := range targets {
		r.set(t, domain.StatusPending)
	}

	if s.c.Quota.AllExhausted() {
		r.report.Exhausted = true
		r.report.ResetAt = s.c.Quota.EarliestReset()
		r.report.Profiles = s.state.Profiles()
		s.log.Warn().Time("reset_at", r.report.ResetAt).Msg("all tokens exhausted, nothing to do")
		return r.report, nil
	}

	n := s.state.Counts()
	s.log.Info().
		Int("targets", len(targets)).
		Int("max_repos", opts.MaxRepos).
		Bool("force", opts.ForceReanalyze).
		Int("analyzed_repos", n.Repos).
		Int("profiles", n.Profiles).
		Msg("crawl starting")

	var terminal error
loop:
	for _, t := range targets {
		if (opts.Interrupted != nil && opts.Interrupted()) || ctx.Err() != nil {
			r.report.Interrupted = true
			s.log.Warn().Msg("interrupt received, stopping")
			break
		}
		if opts.MaxRepos > 0 && r.started >= opts.MaxRepos {
			break
		}
		if !domain.ValidFullName(t.FullName) {
			r.set(t, domain.StatusSkipped)
			r.report.Skipped++
			s.log.Warn().Str("repo", t.FullName).Msg("invalid repository name")
			continue
		}
		if !opts.ForceReanalyze && s.state.RepoAnalyzed(t.FullName) {
			r.set(t, domain.StatusSkipped)
			r.report.Skipped++
			s.log.Debug().Str("repo", t.FullName).Msg("already analyzed")
			continue
		}

		r.started++
		r.set(t, domain.StatusInProgress)
		s.log.Info().Str("target", t.String()).Msg("analyzing repository")

		err := s.processRepo(ctx, t)
		switch {
		case err == nil:
			s.state.MarkRepoAnalyzed(t.FullName)
			r.set(t, domain.StatusCompleted)
			r.report.Completed++
			r.done++
			s.checkpoint(ctx, r, "repo")
			if r.done%s.cfg.CheckpointEvery == 0 {
				s.checkpoint(ctx, r, "periodic")
			}

		case github.IsQuotaExhausted(err):
			r.set(t, domain.StatusAborted)
			r.report.Aborted++
			r.report.Exhausted = true
			r.report.ResetAt, _ = github.ResetAt(err)
			if r.report.ResetAt.IsZero() {
				r.report.ResetAt = s.c.Quota.EarliestReset()
			}
			s.log.Error().Str("repo", t.FullName).Time("reset_at", r.report.ResetAt).Msg("all tokens exhausted, saving emergency checkpoint")
			s.checkpoint(ctx, r, "emergency")
			terminal = err
			break loop

		case github.IsQuotaExceeded(err):
			r.set(t, domain.StatusAborted)
			r.report.Aborted++
			s.log.Warn().Err(err).Str("repo", t.FullName).Msg("token quota exceeded, repository aborted")

		case github.IsAuth(err):
			r.set(t, domain.StatusAborted)
			r.report.Aborted++
			s.log.Error().Err(err).Str("repo", t.FullName).Msg("credential rejected, aborting run")
			terminal = err
			break loop

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			r.set(t, domain.StatusAborted)
			r.report.Aborted++
			r.report.Interrupted = true
			terminal = err
			break loop

		default:
			r.set(t, domain.StatusAborted)
			r.report.Aborted++
			r.failed++
			s.log.Error().Err(err).Str("repo", t.FullName).Int("failures", r.failed).Msg("repository failed")
			if r.failed >= s.cfg.MaxRepoErrors {
				s.log.Error().Msg("too many repository failures, stopping")
				break loop
			}
		}
	}

	if r.started > 0 {
		s.checkpoint(ctx, r, "final")
	}
	r.report.Processed = r.started
	r.report.Profiles = s.state.Profiles()
	s.log.Info().
		Int("processed", r.report.Processed).
		Int("completed", r.report.Completed).
		Int("skipped", r.report.Skipped).
		Int("aborted", r.report.Aborted).
		Int("profiles", len(r.report.Profiles)).
		Msg("crawl finished")
	return r.report, terminal
}

// processRepo discovers candidates for t and profiles them concurrently.
// Every user is attempted; afterwards the first quota or auth failure in
// candidate order is returned
func (s *Svc) processRepo(ctx context.Context, t domain.Target) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = perr.PanicErrf("repository %s: %v", t.FullName, rec)
		}
	}()

	users, err := s.crawler.Discover(ctx, t, DiscoverOptions{AnalyzePRs: s.cfg.AnalyzePRs})
	if err != nil {
		return err
	}
	s.state.AddUsers(users...)
	if len(users) == 0 {
		return nil
	}

	errs := make([]error, len(users))
	profiled := make([]bool, len(users))
	var g errgroup.Group
	g.SetLimit(s.cfg.ProfileWorkers)
	for i, u := range users {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					errs[i] = perr.PanicErrf("user %s: %v", u, rec)
				}
			}()
			p, err := s.analyzeUser(ctx, u, t.FullName)
			errs[i], profiled[i] = err, p != nil
			return nil
		})
	}
	_ = g.Wait()

	count := 0
	for _, ok := range profiled {
		if ok {
			count++
		}
	}
	s.log.Info().Str("repo", t.FullName).Int("users", len(users)).Int("profiles", count).Msg("user batch finished")

	for _, err := range errs {
		if github.IsFatal(err) {
			return err
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// analyzeUser records username's appearance in repo, profiling the user the
// first time they are seen. Only quota, auth and context errors are returned
func (s *Svc) analyzeUser(ctx context.Context, username, repo string) (*pdomain.Profile, error) {
	tier := s.state.TierFor(username, repo)
	if s.state.AddAppearance(username, repo, tier) {
		s.state.MarkUserAnalyzed(username)
		p, _ := s.state.Profile(username)
		return p, nil
	}
	if s.state.UserAnalyzed(username) {
		return nil, nil
	}

	p, err := s.c.Analyzer.Analyze(ctx, username)
	if err != nil {
		if github.IsFatal(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn().Err(err).Str("user", username).Msg("profile failed")
		s.state.MarkUserAnalyzed(username)
		return nil, nil
	}
	if p == nil || p.IsMinimal() {
		s.log.Debug().Str("user", username).Msg("no usable profile")
		s.state.MarkUserAnalyzed(username)
		return nil, nil
	}

	p.AttachMerges(s.state.MergeCount(username), s.state.MergeDetails(username))
	p.AddAppearance(repo, tier)
	s.c.Evaluator.Evaluate(p)
	s.state.PutProfile(p)
	s.state.MarkUserAnalyzed(username)
	return p, nil
}

// checkpoint saves the state. Failures are logged and never end the run
func (s *Svc) checkpoint(ctx context.Context, r *run, reason string) {
	if s.c.Checkpoints == nil {
		return
	}
	id, err := s.Checkpoint(ctx, reason)
	if err != nil {
		return
	}
	r.report.LastCheckpoint = id
}

// Checkpoint saves the live state outside the run loop. Signal handlers call
// it before a forced exit; it is safe while workers are still running
func (s *Svc) Checkpoint(ctx context.Context, reason string) (string, error) {
	if s.c.Checkpoints == nil {
		return "", nil
	}
	id, err := s.c.Checkpoints.Save(context.WithoutCancel(ctx), s.state, domain.Extras{
		RunID:          s.cfg.RunID,
		RemainingUsers: s.state.Remaining(),
		RateLimit:      s.c.Quota.Snapshot(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("reason", reason).Msg("checkpoint failed")
		return "", err
	}
	s.log.Debug().Str("reason", reason).Str("id", id).Msg("checkpoint written")
	return id, nil
}
