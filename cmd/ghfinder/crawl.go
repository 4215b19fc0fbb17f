package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"ghfinder/internal/adapters/github"
	"ghfinder/internal/adapters/github/tokens"
	"ghfinder/internal/core/targets"
	"ghfinder/internal/modkit"
	"ghfinder/internal/modkit/httpkit"
	"ghfinder/internal/platform/config"
	"ghfinder/internal/platform/logger"
	"ghfinder/internal/platform/rundir"
	"ghfinder/internal/services/crawl/domain"
	crawlmod "ghfinder/internal/services/crawl/module"
	crepo "ghfinder/internal/services/crawl/repo"
	dashmod "ghfinder/internal/services/dashboard/module"
	exportmod "ghfinder/internal/services/export/module"
	pdomain "ghfinder/internal/services/profiler/domain"
)

var (
	warn = color.New(color.FgYellow, color.Bold)
	fail = color.New(color.FgRed, color.Bold)
	good = color.New(color.FgGreen, color.Bold)
)

// errNoTokens is returned when no credential could be found anywhere
var errNoTokens = errors.New("no GitHub token: set GITHUB_TOKEN or GITHUB_TOKENS, or pass --token or --tokens-file")

func runRoot(ctx context.Context, f *crawlFlags, stdout, stderr io.Writer) error {
	cfg := config.New()

	if f.listCheckpoints {
		initLogger(cfg, f.verbose, nil, "")
		return listCheckpoints(stdout, crepo.New(crepo.Options{BaseDir: runsDir(cfg)}))
	}

	toks, err := loadTokens(cfg, f)
	if err != nil {
		return exitWith(exitError, err)
	}

	if f.checkTokens {
		initLogger(cfg, f.verbose, nil, "")
		if len(toks) == 0 {
			return exitWith(exitError, errNoTokens)
		}
		return checkTokens(ctx, stdout, github.NewClient(tokens.New(toks), github.OptionsFromConfig(cfg.Prefix("GHFINDER_"))))
	}

	created, err := targets.WriteSample(f.config)
	if err != nil {
		return exitWith(exitError, err)
	}
	if created {
		fmt.Fprintf(stdout, "Created sample targets file %s. Edit it and run ghfinder again.\n", f.config)
		return nil
	}
	if len(toks) == 0 {
		return exitWith(exitError, errNoTokens)
	}

	return crawl(ctx, cfg, f, toks, stdout, stderr)
}

func crawl(ctx context.Context, cfg config.Conf, f *crawlFlags, toks []string, stdout, _ io.Writer) error {
	rd, err := rundir.New(runsDir(cfg), time.Now())
	if err != nil {
		return exitWith(exitError, err)
	}
	defer rd.Close()
	tee, err := rd.LogWriter()
	if err != nil {
		return exitWith(exitError, err)
	}
	initLogger(cfg, f.verbose, tee, rd.ID)
	log := logger.Named("cli")
	ctx = logger.WithRun(ctx, rd.ID)

	ts, err := targets.Load(f.config)
	if err != nil {
		return exitWith(exitError, err)
	}
	if _, err := rd.CopyIn(f.config); err != nil {
		log.Warn().Err(err).Msg("could not copy targets file into run directory")
	}
	log.Info().
		Str("run", rd.Root()).
		Int("targets", len(ts)).
		Int("tiers", targets.CountTiers(ts)).
		Int("tokens", len(toks)).
		Msg("run starting")

	pool := tokens.New(toks)
	reg := newRegistry()
	deps := modkit.Deps{Log: *logger.Get(), Cfg: cfg}
	cm, err := crawlmod.New(deps, pool, reg, crawlmod.Options{
		AnalyzePRs:  f.analyzePRs,
		Concurrency: f.concurrency,
		RunsDir:     rd.Base,
		Run:         rd.Name,
		RunID:       rd.ID,
	})
	if err != nil {
		return exitWith(exitError, err)
	}

	if f.resume != "" {
		path, err := cm.Resume(ctx, f.resume)
		if err != nil {
			log.Warn().Err(err).Str("resume", f.resume).Msg("could not resume, starting fresh")
		} else {
			n := cm.Service().State().Counts()
			log.Info().Str("checkpoint", path).Int("profiles", n.Profiles).Int("repos", n.Repos).Msg("resumed")
		}
	}

	checks, err := cm.Client().CheckTokens(ctx)
	if err != nil {
		return exitWith(exitError, err)
	}
	if !anyValid(checks) {
		return exitWith(exitError, errors.New("every GitHub token was rejected, the credential is invalid or revoked"))
	}

	if f.httpAddr != "" {
		ports := dashmod.Ports{Tokens: pool, Runs: cm.Checkpoints(), Metrics: reg}
		stopHTTP, err := startDashboard(ctx, deps, f.httpAddr, ports, liveRoutes(rd.Name, cm.Service().State))
		if err != nil {
			return exitWith(exitError, err)
		}
		defer stopHTTP()
	}

	emergency := func() {
		if id, err := cm.Service().Checkpoint(ctx, "forced exit"); err == nil && id != "" {
			log.Warn().Str("checkpoint", id).Msg("state saved before forced exit")
		}
	}
	intr := newInterrupter(cfg.Prefix("GHFINDER_").MayDuration("SHUTDOWN_GRACE", 30*time.Second), emergency, nil)
	stopSignals := intr.watch(ctx)
	defer stopSignals()

	report, runErr := cm.Service().Run(ctx, ts, domain.RunOptions{
		MaxRepos:       f.limit,
		ForceReanalyze: f.force,
		Interrupted:    intr.Interrupted,
	})

	if err := export(ctx, deps, rd, f.llmOutput, report.Profiles, stdout); err != nil {
		log.Error().Err(err).Msg("export failed")
		if runErr == nil {
			runErr = err
		}
	}
	return outcome(stdout, report, runErr, f.config, rd)
}

// export writes every report for ps, then feeds the database sink when
// GHFINDER_PG_URL is set
func export(ctx context.Context, deps modkit.Deps, rd *rundir.Dir, llmOutput string, ps []*pdomain.Profile, stdout io.Writer) error {
	svc := exportmod.New(deps, exportmod.Options{}).Service()

	var errs []error
	if err := svc.WriteProfiles(rd.Path(rundir.ProfilesFile), ps); err != nil {
		errs = append(errs, err)
	}
	if err := svc.WritePrompt(rd.Path(rundir.PromptFile), ps); err != nil {
		errs = append(errs, err)
	}
	svc.Summary(stdout, ps)
	if llmOutput != "" {
		path, err := svc.WriteAnalysis(llmOutput, ps, stdout)
		if err != nil {
			errs = append(errs, err)
		} else if path != "" {
			fmt.Fprintf(stdout, "LLM analysis written to %s\n", path)
		}
	}
	if err := sink(ctx, deps, rd.ID, ps); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// sink upserts ps into Postgres. A missing GHFINDER_PG_URL disables it
func sink(ctx context.Context, deps modkit.Deps, runID string, ps []*pdomain.Profile) error {
	log := logger.Named("cli")
	st, err := openStore(ctx, deps.Cfg)
	if err != nil || st == nil {
		return err
	}
	defer func() {
		if err := st.Close(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()
	deps.PG = st.PG

	em := exportmod.New(deps, exportmod.Options{})
	if err := em.Start(ctx); err != nil {
		return err
	}
	n, err := em.Service().Sink(ctx, runID, ps)
	if err != nil {
		return err
	}
	log.Info().Int("profiles", n).Msg("profiles stored in postgres")
	return nil
}

// outcome prints the run result and maps it to an exit code
func outcome(w io.Writer, r domain.RunReport, runErr error, configPath string, rd *rundir.Dir) error {
	resume := fmt.Sprintf("ghfinder --resume latest --config %s", configPath)
	fmt.Fprintf(w, "\nRun directory: %s\n", rd.Root())
	fmt.Fprintf(w, "Repositories: %d processed, %d completed, %d skipped, %d aborted. Profiles: %s\n",
		r.Processed, r.Completed, r.Skipped, r.Aborted, humanize.Comma(int64(len(r.Profiles))))

	switch {
	case github.IsAuth(runErr):
		fail.Fprintln(w, "GitHub rejected the credential: the token is invalid or revoked.")
		return exitWith(exitError, runErr)

	case r.Exhausted:
		fail.Fprintln(w, "All GitHub tokens are out of quota.")
		if !r.ResetAt.IsZero() {
			fmt.Fprintf(w, "Earliest reset: %s (%s)\n", r.ResetAt.Local().Format(time.DateTime), humanize.Time(r.ResetAt))
		}
		fmt.Fprintf(w, "Resume with: %s\n", resume)
		return exitWith(exitError, nil)

	case r.Interrupted:
		warn.Fprintln(w, "Interrupted. Progress was checkpointed.")
		fmt.Fprintf(w, "Resume with: %s\n", resume)
		return exitWith(exitInterrupted, nil)

	case runErr != nil:
		return exitWith(exitError, runErr)
	}
	good.Fprintln(w, "Done.")
	return nil
}

// anyValid reports a token GitHub accepted, with or without quota left
func anyValid(checks []github.TokenCheck) bool {
	for _, c := range checks {
		if c.Valid {
			return true
		}
	}
	return false
}

// startDashboard serves the dashboard in the background until the returned
// stop func runs
func startDashboard(ctx context.Context, deps modkit.Deps, addr string, ports dashmod.Ports, mopts ...modkit.Option) (func(), error) {
	dm, err := dashmod.New(deps, dashmod.FromConfig(deps.Cfg).WithAddr(addr), append([]modkit.Option{modkit.WithPorts(ports)}, mopts...)...)
	if err != nil {
		return nil, err
	}
	srv := dm.Server()
	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Named("http").Error().Err(err).Msg("dashboard stopped")
		}
	}()
	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}, nil
}

// liveView is the in-flight crawl progress served at /api/live
type liveView struct {
	Run       string        `json:"run"`
	Counts    domain.Counts `json:"counts"`
	Remaining int           `json:"remaining_users"`
}

// liveRoutes exposes the running crawl's state next to the dashboard API
func liveRoutes(run string, state func() *domain.State) modkit.Option {
	return modkit.WithRegister(func(r httpkit.Router) {
		httpkit.Get(r, "/live", func(*http.Request) (any, error) {
			st := state()
			return liveView{Run: run, Counts: st.Counts(), Remaining: len(st.Remaining())}, nil
		})
	})
}
