// Package service discovers contributors of target repositories and turns
// them into scored profiles, checkpointing as it goes
package service

import (
	"context"
	"time"

	"ghfinder/internal/adapters/github"
	"ghfinder/internal/adapters/github/tokens"
	"ghfinder/internal/modkit"
	"ghfinder/internal/platform/logger"
	"ghfinder/internal/services/crawl/domain"
	pdomain "ghfinder/internal/services/profiler/domain"
)

// Gateway is the slice of the GitHub client the crawler pages through
type Gateway interface {
	RepoPulls(ctx context.Context, fullName string, pq github.PullsQuery) ([]github.Pull, github.Result, error)
	RepoForks(ctx context.Context, fullName string, page, perPage int) ([]github.Repo, github.Result, error)
}

// Quota reports credential pool health
type Quota interface {
	AllExhausted() bool
	EarliestReset() time.Time
	Snapshot() []tokens.Status
}

var (
	_ Gateway = (*github.Client)(nil)
	_ Quota   = (*tokens.Pool)(nil)
)

// Config carries crawl knobs
type Config struct {
	AnalyzePRs          bool
	PRLimit             int     // default merged PR scan cap per repo
	PerPage             int     // page size for pulls and forks
	EarlyStopPages      int     // PR pages scanned before the merger check
	EarlyStopMinMergers int     // distinct mergers needed to keep paging
	StaleRatio          float64 // stale forks per page that end the scan
	PopularRepos        []string
	ProfileWorkers      int // goroutines profiling one repo's users
	CheckpointEvery     int // completed repos between periodic checkpoints
	MaxRepoErrors       int // generic repo failures before the run stops
	RunID               string
	Now                 func() time.Time
}

// DefaultPopularRepos get stricter fork filters
var DefaultPopularRepos = []string{"foundry", "reth", "revm", "alloy"}

func (c Config) withDefaults() Config {
	if c.PRLimit <= 0 {
		c.PRLimit = 500
	}
	if c.PerPage <= 0 {
		c.PerPage = 100
	}
	if c.EarlyStopPages <= 0 {
		c.EarlyStopPages = 3
	}
	if c.EarlyStopMinMergers <= 0 {
		c.EarlyStopMinMergers = 5
	}
	if c.StaleRatio <= 0 {
		c.StaleRatio = 0.8
	}
	if c.PopularRepos == nil {
		c.PopularRepos = DefaultPopularRepos
	}
	if c.ProfileWorkers <= 0 {
		c.ProfileWorkers = 5
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = 5
	}
	if c.MaxRepoErrors <= 0 {
		c.MaxRepoErrors = 5
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Collaborators are the ports the service drives. Checkpoints may be nil
type Collaborators struct {
	Gateway     Gateway
	Quota       Quota
	Analyzer    pdomain.Analyzer
	Evaluator   pdomain.Evaluator
	Checkpoints domain.CheckpointPort
}

// Svc implements domain.RunPort
type Svc struct {
	cfg     Config
	c       Collaborators
	state   *domain.State
	crawler *Crawler
	log     logger.Logger
}

var _ domain.RunPort = (*Svc)(nil)

// New constructs the crawl service over a fresh state
func New(deps modkit.Deps, cfg Config, c Collaborators) *Svc {
	if c.Gateway == nil || c.Quota == nil || c.Analyzer == nil || c.Evaluator == nil {
		panic("crawl.Service requires a gateway, quota, analyzer and evaluator")
	}
	cfg = cfg.withDefaults()
	s := &Svc{
		cfg: cfg,
		c:   c,
		log: deps.Log.With().Str("component", "crawl").Logger(),
	}
	s.Restore(domain.NewState())
	return s
}

// Restore replaces the crawl state, typically with a loaded checkpoint
func (s *Svc) Restore(st *domain.State) {
	if st == nil {
		st = domain.NewState()
	}
	s.state = st
	s.crawler = NewCrawler(s.c.Gateway, st, s.cfg)
}

// State exposes the live crawl state
func (s *Svc) State() *domain.State { return s.state }
