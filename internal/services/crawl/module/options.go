package module

import (
	"ghfinder/internal/platform/config"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/net/http/bind"
	"ghfinder/internal/services/crawl/service"
)

// Options controls the crawl. Values may also be read from env
type Options struct {
	AnalyzePRs      bool
	PRLimit         int      `json:"pr_limit" validate:"gte=0"`
	Concurrency     int      `json:"concurrency" validate:"gte=0,lte=64"`
	ProfileWorkers  int      `json:"profile_workers" validate:"gte=0,lte=256"`
	CheckpointEvery int      `json:"checkpoint_every" validate:"gte=0"`
	MaxRepoErrors   int      `json:"max_repo_errors" validate:"gte=0"`
	PopularRepos    []string `json:"popular_repos" validate:"dive,required"`

	// Checkpoint storage
	RunsDir  string `json:"runs_dir" validate:"required"`
	Run      string `json:"run"`
	RunID    string `json:"run_id"`
	Compress bool
}

// FromConfig reads options using the GHFINDER_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("GHFINDER_")
	return Options{
		AnalyzePRs:      c.MayBool("ANALYZE_PRS", false),
		PRLimit:         c.MayInt("PR_LIMIT", 500),
		Concurrency:     c.MayInt("CONCURRENCY", 0),
		ProfileWorkers:  c.MayInt("PROFILE_WORKERS", 0),
		CheckpointEvery: c.MayInt("CHECKPOINT_EVERY", 5),
		MaxRepoErrors:   c.MayInt("MAX_REPO_ERRORS", 5),
		PopularRepos:    c.MayCSV("POPULAR_REPOS", service.DefaultPopularRepos),
		RunsDir:         c.MayString("RUNS_DIR", "runs"),
		Compress:        c.MayBool("CHECKPOINT_COMPRESS", false),
	}
}

// merge applies non zero overrides over o
func (o Options) merge(over Options) Options {
	if over.AnalyzePRs {
		o.AnalyzePRs = true
	}
	if over.PRLimit != 0 {
		o.PRLimit = over.PRLimit
	}
	if over.Concurrency != 0 {
		o.Concurrency = over.Concurrency
	}
	if over.ProfileWorkers != 0 {
		o.ProfileWorkers = over.ProfileWorkers
	}
	if over.CheckpointEvery != 0 {
		o.CheckpointEvery = over.CheckpointEvery
	}
	if over.MaxRepoErrors != 0 {
		o.MaxRepoErrors = over.MaxRepoErrors
	}
	if len(over.PopularRepos) > 0 {
		o.PopularRepos = over.PopularRepos
	}
	if over.RunsDir != "" {
		o.RunsDir = over.RunsDir
	}
	if over.Run != "" {
		o.Run = over.Run
	}
	if over.RunID != "" {
		o.RunID = over.RunID
	}
	if over.Compress {
		o.Compress = true
	}
	return o
}

// Validate checks option bounds
func (o Options) Validate() error {
	if err := bind.Get().Validator.Struct(o); err != nil {
		field, msg := bind.ValidationFieldAndMessage(err)
		return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "crawl options: %s", msg), field)
	}
	return nil
}

func (o Options) serviceConfig() service.Config {
	workers := o.ProfileWorkers
	if workers == 0 {
		workers = o.Concurrency
	}
	return service.Config{
		AnalyzePRs:      o.AnalyzePRs,
		PRLimit:         o.PRLimit,
		PopularRepos:    o.PopularRepos,
		ProfileWorkers:  workers,
		CheckpointEvery: o.CheckpointEvery,
		MaxRepoErrors:   o.MaxRepoErrors,
		RunID:           o.RunID,
	}
}
