package service

import (
	"context"
	"strings"
	"time"

	"ghfinder/internal/adapters/github"
)

var improvementWords = []string{"fix", "improve", "add", "feature", "enhancement", "fork"}

// forkFilter is the quality bar a fork must pass to credit its owner
type forkFilter struct {
	minStars   int
	maxAgeDays int
	popular    bool
}

func (c *Crawler) filterFor(repo string, tier int) forkFilter {
	f := forkFilter{minStars: 0, maxAgeDays: 730}
	if tier <= 2 {
		f = forkFilter{minStars: 1, maxAgeDays: 365}
	}
	lower := strings.ToLower(repo)
	for _, name := range c.cfg.PopularRepos {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			f.popular = true
			f.minStars = max(2, f.minStars)
			f.maxAgeDays = min(180, f.maxAgeDays)
			break
		}
	}
	return f
}

// forkScore rates one fork of a tier repository
func forkScore(r github.Repo, tier int) int {
	score := 1 + min(2*r.Stargazers, 20)
	if r.Stargazers >= 5 {
		score += 5
	}
	if r.Stargazers >= 10 {
		score += 10
	}
	switch {
	case tier <= 1:
		score += 5
	case tier <= 3:
		score += 2
	}
	if r.Description != "" {
		score += 3
		desc := strings.ToLower(r.Description)
		for _, w := range improvementWords {
			if strings.Contains(desc, w) {
				score += 5
				break
			}
		}
	}
	return score
}

// lastActive prefers updated_at and falls back to pushed_at
func lastActive(r github.Repo) time.Time {
	if !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return r.PushedAt
}

// forkOwners pages forks newest first and scores their owners. limit caps
// quality forks, zero means unlimited
func (c *Crawler) forkOwners(ctx context.Context, repo string, tier, limit int) ([]string, error) {
	f := c.filterFor(repo, tier)
	now := c.cfg.Now()
	scores := map[string]int{}
	quality, byStars, byAge := 0, 0, 0

	defer func() {
		c.log.Debug().Str("repo", repo).Int("quality", quality).Int("filtered_stars", byStars).Int("filtered_age", byAge).Bool("popular", f.popular).Msg("fork scan finished")
	}()

	for page := 1; limit <= 0 || quality < limit; page++ {
		forks, res, err := c.gh.RepoForks(ctx, repo, page, c.cfg.PerPage)
		if err != nil {
			return ranked(scores), c.pageFailed(ctx, repo, page, err)
		}
		if !res.OK() {
			c.pageStatus(repo, page, res)
			break
		}
		if res.Items == 0 {
			break
		}

		stale := 0
		for _, fk := range forks {
			owner := fk.Owner.Login
			if owner == "" {
				continue
			}
			if fk.Stargazers < f.minStars {
				byStars++
				continue
			}
			if ts := lastActive(fk); !ts.IsZero() && int(now.Sub(ts).Hours()/24) > f.maxAgeDays {
				stale++
				if float64(stale) > float64(res.Items)*c.cfg.StaleRatio {
					c.log.Info().Str("repo", repo).Int("page", page).Msg("mostly stale forks, stopping early")
					return ranked(scores), nil
				}
				byAge++
				continue
			}
			scores[owner] += forkScore(fk, tier)
			quality++
			if limit > 0 && quality >= limit {
				break
			}
		}
		if res.Items < c.cfg.PerPage {
			break
		}
	}
	return ranked(scores), nil
}
