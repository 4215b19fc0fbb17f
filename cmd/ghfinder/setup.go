package main

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ghfinder/internal/adapters/github/tokens"
	"ghfinder/internal/platform/config"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/logger"
	"ghfinder/internal/platform/store"
)

// crawlFlags are the root command flags
type crawlFlags struct {
	config          string
	token           string
	tokensFile      string
	limit           int
	analyzePRs      bool
	resume          string
	force           bool
	concurrency     int
	llmOutput       string
	checkTokens     bool
	listCheckpoints bool
	httpAddr        string
	verbose         bool
}

// initLogger configures the root logger once. tee receives JSON lines for
// the run's output.log
func initLogger(cfg config.Conf, verbose bool, tee io.Writer, runID string) {
	opts := logger.FromEnv()
	opts.Service = "ghfinder"
	opts.Level = cfg.MayString("LOG_LEVEL", "info")
	if verbose {
		opts.Level = "debug"
	}
	opts.Tee = tee
	if runID != "" {
		opts.StaticFields = map[string]string{"run_id": runID}
	}
	logger.Init(opts)
}

// loadTokens merges the flag token, the environment and the tokens file
func loadTokens(cfg config.Conf, f *crawlFlags) ([]string, error) {
	all := []string{f.token}
	all = append(all, tokens.FromEnv(cfg)...)
	if f.tokensFile != "" {
		fromFile, err := tokens.ReadFile(f.tokensFile)
		if err != nil {
			return nil, err
		}
		all = append(all, fromFile...)
	}
	return tokens.Clean(all), nil
}

// runsDir is the parent of every run directory
func runsDir(cfg config.Conf) string {
	return cfg.Prefix("GHFINDER_").MayString("RUNS_DIR", "runs")
}

// newRegistry returns a registry carrying the Go and process collectors
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// openStore connects Postgres when GHFINDER_PG_URL is set. A nil store
// means the database sink is disabled
func openStore(ctx context.Context, cfg config.Conf) (*store.Store, error) {
	pg := cfg.Prefix("GHFINDER_PG_")
	url := pg.MayString("URL", "")
	if url == "" {
		return nil, nil
	}
	st, err := store.Open(ctx, store.Config{
		AppName: "ghfinder",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         url,
			MaxConns:    int32(pg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pg.MayInt("SLOW_MS", 500),
			LogSQL:      pg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*logger.Get()))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "open postgres")
	}
	return st, nil
}
