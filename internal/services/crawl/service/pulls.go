package service

import (
	"context"

	"ghfinder/internal/adapters/github"
	pdomain "ghfinder/internal/services/profiler/domain"
)

// mergers pages closed pull requests newest first and credits whoever merged
// them. Global merge counts are updated as merges are seen; per repository
// details are written once the scan ends
func (c *Crawler) mergers(ctx context.Context, repo string, tier, limit int) ([]string, error) {
	counts := map[string]int{}
	processed := 0
	defer func() {
		for u, n := range counts {
			c.state.UpsertMergeDetail(u, pdomain.MergedPRDetail{Repo: repo, Count: n, Tier: tier})
		}
	}()

	for page := 1; limit <= 0 || processed < limit; page++ {
		pulls, res, err := c.gh.RepoPulls(ctx, repo, github.PullsQuery{
			State:     "closed",
			Sort:      "updated",
			Direction: "desc",
			Page:      page,
			PerPage:   c.cfg.PerPage,
		})
		if err != nil {
			return ranked(counts), c.pageFailed(ctx, repo, page, err)
		}
		if !res.OK() {
			c.pageStatus(repo, page, res)
			break
		}
		if res.Items == 0 {
			break
		}

		// undecodable items still count against the limit
		processed += res.Items - len(pulls)
		merged := 0
		for _, p := range pulls {
			if limit > 0 && processed >= limit {
				break
			}
			processed++
			if p.MergedAt == nil {
				continue
			}
			merged++
			if login := p.Merger(); login != "" {
				counts[login]++
				c.state.AddMerge(login)
			}
		}
		c.log.Debug().Str("repo", repo).Int("page", page).Int("merged", merged).Int("mergers", len(counts)).Msg("pulls page")

		if page >= c.cfg.EarlyStopPages && len(counts) < c.cfg.EarlyStopMinMergers {
			c.log.Info().Str("repo", repo).Int("pages", page).Int("mergers", len(counts)).Msg("few mergers, stopping early")
			break
		}
		if res.Items < c.cfg.PerPage {
			break
		}
	}
	return ranked(counts), nil
}
