package domain

import (
	"maps"
	"slices"

	pdomain "ghfinder/internal/services/profiler/domain"
)

// Snapshot is a detached copy of State with sets rendered as sorted lists.
// Profiles are shallow copies and must not be mutated
type Snapshot struct {
	AnalyzedUsers    []string
	AnalyzedRepos    []string
	Profiles         map[string]*pdomain.Profile
	MergeCounts      map[string]int
	MergeDetails     map[string][]pdomain.MergedPRDetail
	ContributorStats map[string]map[string]int
	RepoTiers        map[string]int
	AllUsers         []string
}

// Snapshot copies the state under the lock
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make(map[string]*pdomain.Profile, len(s.profiles))
	for u, p := range s.profiles {
		cp := *p
		profiles[u] = &cp
	}
	details := make(map[string][]pdomain.MergedPRDetail, len(s.mergeDetails))
	for u, ds := range s.mergeDetails {
		details[u] = slices.Clone(ds)
	}
	stats := make(map[string]map[string]int, len(s.contributorStats))
	for u, m := range s.contributorStats {
		stats[u] = maps.Clone(m)
	}
	return Snapshot{
		AnalyzedUsers:    sortedKeys(s.analyzedUsers),
		AnalyzedRepos:    sortedKeys(s.analyzedRepos),
		Profiles:         profiles,
		MergeCounts:      maps.Clone(s.mergeCounts),
		MergeDetails:     details,
		ContributorStats: stats,
		RepoTiers:        maps.Clone(s.repoTiers),
		AllUsers:         sortedKeys(s.allUsers),
	}
}

// StateFrom rebuilds a State from a snapshot. Minimal profiles are skipped
func StateFrom(snap Snapshot) *State {
	s := NewState()
	for _, r := range snap.AnalyzedRepos {
		s.analyzedRepos[r] = struct{}{}
	}
	for _, u := range snap.AnalyzedUsers {
		s.analyzedUsers[u] = struct{}{}
	}
	for _, u := range snap.AllUsers {
		s.allUsers[u] = struct{}{}
	}
	for u, p := range snap.Profiles {
		if p == nil || p.IsMinimal() {
			continue
		}
		if p.Username == "" {
			p.Username = u
		}
		s.profiles[u] = p
	}
	maps.Copy(s.mergeCounts, snap.MergeCounts)
	for u, ds := range snap.MergeDetails {
		s.mergeDetails[u] = slices.Clone(ds)
	}
	for u, m := range snap.ContributorStats {
		s.contributorStats[u] = maps.Clone(m)
	}
	maps.Copy(s.repoTiers, snap.RepoTiers)
	return s
}

func sortedKeys(m map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(m))
}
