// Package repo stores exported profiles in Postgres
package repo

import (
	"context"
	"encoding/json"
	"time"

	"ghfinder/internal/modkit/repokit"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/store"
	str "ghfinder/internal/platform/strings"
	"ghfinder/internal/services/export/domain"
	pdomain "ghfinder/internal/services/profiler/domain"
)

type (
	// PG is a Postgres binder for domain.Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

var _ domain.Repo = (*queries)(nil)

// NewPG returns a Postgres binder for Repo
func NewPG() repokit.Binder[domain.Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Repo { return &queries{q: q} }

const upsertProfile = `INSERT INTO profiles
	(username, name, company, location, email, followers, public_repos,
	 category, total_score, is_merger, prs_merged, open_to_work, doc, run_id, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14, now())
ON CONFLICT (username) DO UPDATE SET
	name = EXCLUDED.name,
	company = EXCLUDED.company,
	location = EXCLUDED.location,
	email = EXCLUDED.email,
	followers = EXCLUDED.followers,
	public_repos = EXCLUDED.public_repos,
	category = EXCLUDED.category,
	total_score = EXCLUDED.total_score,
	is_merger = EXCLUDED.is_merger,
	prs_merged = EXCLUDED.prs_merged,
	open_to_work = EXCLUDED.open_to_work,
	doc = EXCLUDED.doc,
	run_id = EXCLUDED.run_id,
	updated_at = now()`

const upsertMerge = `INSERT INTO profile_merges (username, repo, pr_count, tier)
VALUES ($1,$2,$3,$4)
ON CONFLICT (username, repo) DO UPDATE SET pr_count = EXCLUDED.pr_count, tier = EXCLUDED.tier`

// UpsertProfiles writes ps and their merge details; minimal profiles are
// skipped and blank contact fields are stored as NULL
func (r *queries) UpsertProfiles(ctx context.Context, runID string, ps []*pdomain.Profile) (int, error) {
	n := 0
	for _, p := range ps {
		if p.IsMinimal() {
			continue
		}
		doc, err := json.Marshal(p)
		if err != nil {
			return n, perr.Wrapf(err, perr.ErrorCodeJSON, "encode profile %s", p.Username)
		}
		if _, err := r.q.Exec(ctx, upsertProfile,
			p.Username, p.Name, str.SQLNull(p.Company), str.SQLNull(p.Location), str.SQLNull(p.Email), p.Followers, p.PublicRepos,
			p.Category(), p.Score(), p.IsMerger, p.PRsMerged, p.OpenToWork, doc, runID,
		); err != nil {
			return n, perr.AttachFieldFromPg(perr.FromPostgresf(err, "upsert profile %s", p.Username))
		}
		for _, d := range p.MergedPRDetails {
			if _, err := r.q.Exec(ctx, upsertMerge, p.Username, d.Repo, d.Count, d.Tier); err != nil {
				return n, perr.FromPostgresf(err, "upsert merges %s", p.Username)
			}
		}
		n++
	}
	return n, nil
}

// TopProfiles lists stored profiles by score
func (r *queries) TopProfiles(ctx context.Context, limit int) ([]domain.ProfileRow, error) {
	return store.Many(ctx, r.q, func(row store.Row) (domain.ProfileRow, error) {
		var (
			p  domain.ProfileRow
			at time.Time
		)
		err := row.Scan(&p.Username, &p.Name, &p.Category, &p.TotalScore, &p.Followers, &p.PRsMerged, &p.RunID, &at)
		p.UpdatedAt = at.UTC()
		return p, err
	}, `SELECT username, name, category, total_score, followers, prs_merged, run_id, updated_at
		FROM profiles ORDER BY total_score DESC, username LIMIT $1`, limit)
}

// Count is the number of stored profiles across every run
func (r *queries) Count(ctx context.Context) (int, error) {
	n, err := store.Scalar[int](ctx, r.q, `SELECT count(*) FROM profiles`)
	if err != nil {
		return 0, perr.FromPostgres(err, "count profiles")
	}
	return n, nil
}
