package service

import (
	"context"
	"slices"
	"strings"

	"ghfinder/internal/adapters/github"
	"ghfinder/internal/platform/logger"
	"ghfinder/internal/services/crawl/domain"
)

// DiscoverOptions selects the discovery strategy
type DiscoverOptions struct {
	AnalyzePRs bool
}

// Crawler finds candidate usernames for one target repository
type Crawler struct {
	gh    Gateway
	state *domain.State
	cfg   Config
	log   logger.Logger
}

// NewCrawler returns a crawler recording into st
func NewCrawler(gh Gateway, st *domain.State, cfg Config) *Crawler {
	return &Crawler{gh: gh, state: st, cfg: cfg.withDefaults(), log: *logger.Named("crawler")}
}

// Discover returns the usernames worth profiling for t, best first. High
// tier targets are mined for pull request mergers when opts.AnalyzePRs is
// set, everything else through its forks. Only quota, auth and context
// errors are returned; any other page failure ends pagination and keeps the
// candidates seen so far
func (c *Crawler) Discover(ctx context.Context, t domain.Target, opts DiscoverOptions) ([]string, error) {
	c.state.SetRepoTier(t.FullName, t.Tier)

	var (
		users []string
		err   error
	)
	if t.Tier <= 1 && opts.AnalyzePRs {
		limit := t.Limit
		if limit <= 0 {
			limit = c.cfg.PRLimit
		}
		users, err = c.mergers(ctx, t.FullName, t.Tier, limit)
	} else {
		users, err = c.forkOwners(ctx, t.FullName, t.Tier, ProgressiveLimit(t.Limit, t.Tier))
	}
	if err != nil {
		return users, err
	}
	c.log.Info().Str("repo", t.FullName).Int("tier", t.Tier).Int("candidates", len(users)).Msg("discovery done")
	return users, nil
}

// pageFailed decides whether a page error is returned or just ends paging
func (c *Crawler) pageFailed(ctx context.Context, repo string, page int, err error) error {
	if github.IsFatal(err) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.log.Warn().Err(err).Str("repo", repo).Int("page", page).Msg("page failed, stopping pagination")
	return nil
}

func (c *Crawler) pageStatus(repo string, page int, res github.Result) {
	c.log.Warn().Str("repo", repo).Int("page", page).Int("status", res.Status).Bool("skipped", res.Skipped).Msg("page not ok, stopping pagination")
}

// ranked orders users by score descending then login
func ranked(scores map[string]int) []string {
	users := make([]string, 0, len(scores))
	for u := range scores {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b string) int {
		if scores[a] != scores[b] {
			return scores[b] - scores[a]
		}
		return strings.Compare(a, b)
	})
	return users
}
