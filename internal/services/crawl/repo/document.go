package repo

import (
	"encoding/json"
	"errors"
	"math"

	"ghfinder/internal/services/crawl/domain"
	pdomain "ghfinder/internal/services/profiler/domain"
)

// document is the on-disk checkpoint layout
type document struct {
	Timestamp        string                     `json:"timestamp"`
	RunID            string                     `json:"run_id"`
	AnalyzedUsers    []string                   `json:"analyzed_users"`
	AnalyzedRepos    []string                   `json:"analyzed_repositories"`
	Profiles         map[string]json.RawMessage `json:"profiles"`
	MergeCounts      map[string]int             `json:"pr_merger_stats"`
	MergeDetails     map[string][]mergeTuple    `json:"pr_merger_details"`
	ContributorStats map[string]map[string]int  `json:"contributor_stats"`
	AllUsers         []string                   `json:"all_users"`
	RemainingUsers   []string                   `json:"remaining_users"`
	RateLimitInfo    any                        `json:"rate_limit_info"`
	RepoTiers        map[string]int             `json:"repo_tiers"`
}

// mergeTuple is a merge detail written as [repo, count, tier]
type mergeTuple pdomain.MergedPRDetail

var errBadTuple = errors.New("merge detail must be [repo, count, tier]")

func (t mergeTuple) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.Repo, t.Count, t.Tier})
}

func (t *mergeTuple) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return errBadTuple
	}
	var (
		repo        string
		count, tier float64
	)
	if err := json.Unmarshal(parts[0], &repo); err != nil || repo == "" {
		return errBadTuple
	}
	if err := json.Unmarshal(parts[1], &count); err != nil || count <= 0 {
		return errBadTuple
	}
	if err := json.Unmarshal(parts[2], &tier); err != nil {
		tier = pdomain.UnknownTier
	}
	*t = mergeTuple{Repo: repo, Count: int(count), Tier: int(math.Trunc(tier))}
	return nil
}

func tuplesOf(ds []pdomain.MergedPRDetail) []mergeTuple {
	out := make([]mergeTuple, len(ds))
	for i, d := range ds {
		out[i] = mergeTuple(d)
	}
	return out
}

func detailsOf(ts []mergeTuple) []pdomain.MergedPRDetail {
	out := make([]pdomain.MergedPRDetail, len(ts))
	for i, t := range ts {
		out[i] = pdomain.MergedPRDetail(t)
	}
	return out
}

// nonEmpty drops blank entries from a user or repo list
func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// toSnapshot converts decoded fields into a domain snapshot. Profiles are
// decoded separately by the caller
func (d *document) toSnapshot(profiles map[string]*pdomain.Profile) domain.Snapshot {
	details := make(map[string][]pdomain.MergedPRDetail, len(d.MergeDetails))
	for u, ts := range d.MergeDetails {
		if u == "" || len(ts) == 0 {
			continue
		}
		details[u] = detailsOf(ts)
	}
	return domain.Snapshot{
		AnalyzedUsers:    nonEmpty(d.AnalyzedUsers),
		AnalyzedRepos:    nonEmpty(d.AnalyzedRepos),
		Profiles:         profiles,
		MergeCounts:      d.MergeCounts,
		MergeDetails:     details,
		ContributorStats: d.ContributorStats,
		RepoTiers:        d.RepoTiers,
		AllUsers:         nonEmpty(d.AllUsers),
	}
}
