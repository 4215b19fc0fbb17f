// Package domain holds the crawl state, targets and ports shared by the
// crawler, the orchestrator and the checkpoint store
package domain

import (
	"maps"
	"slices"
	"sync"

	pdomain "ghfinder/internal/services/profiler/domain"
)

// State is the mutable crawl state. Every method takes the single lock, so
// check-then-act sequences spanning several calls are last-write-wins
type State struct {
	mu               sync.Mutex
	analyzedRepos    map[string]struct{}
	analyzedUsers    map[string]struct{}
	profiles         map[string]*pdomain.Profile
	mergeCounts      map[string]int
	mergeDetails     map[string][]pdomain.MergedPRDetail
	contributorStats map[string]map[string]int
	repoTiers        map[string]int
	allUsers         map[string]struct{}
}

// NewState returns an empty state
func NewState() *State {
	return &State{
		analyzedRepos:    map[string]struct{}{},
		analyzedUsers:    map[string]struct{}{},
		profiles:         map[string]*pdomain.Profile{},
		mergeCounts:      map[string]int{},
		mergeDetails:     map[string][]pdomain.MergedPRDetail{},
		contributorStats: map[string]map[string]int{},
		repoTiers:        map[string]int{},
		allUsers:         map[string]struct{}{},
	}
}

// RepoAnalyzed reports a repository already fully processed
func (s *State) RepoAnalyzed(repo string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.analyzedRepos[repo]
	return ok
}

// MarkRepoAnalyzed records a fully processed repository
func (s *State) MarkRepoAnalyzed(repo string) {
	s.mu.Lock()
	s.analyzedRepos[repo] = struct{}{}
	s.mu.Unlock()
}

// ForgetRepos clears the analyzed repository set so every target runs again
func (s *State) ForgetRepos() {
	s.mu.Lock()
	clear(s.analyzedRepos)
	s.mu.Unlock()
}

// UserAnalyzed reports a user already profiled or permanently failed
func (s *State) UserAnalyzed(user string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.analyzedUsers[user]
	return ok
}

// MarkUserAnalyzed records a visited user
func (s *State) MarkUserAnalyzed(user string) {
	s.mu.Lock()
	s.analyzedUsers[user] = struct{}{}
	s.mu.Unlock()
}

// Profile returns the stored profile for user
func (s *State) Profile(user string) (*pdomain.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[user]
	return p, ok
}

// PutProfile stores p and reports whether it was kept. Minimal profiles are
// never stored
func (s *State) PutProfile(p *pdomain.Profile) bool {
	if p.IsMinimal() {
		return false
	}
	s.mu.Lock()
	s.profiles[p.Username] = p
	s.mu.Unlock()
	return true
}

// ProfileCount is the number of stored profiles
func (s *State) ProfileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

// Profiles returns the stored profiles ordered by score descending then username
func (s *State) Profiles() []*pdomain.Profile {
	s.mu.Lock()
	out := slices.Collect(maps.Values(s.profiles))
	s.mu.Unlock()
	SortProfiles(out)
	return out
}

// SortProfiles orders by score descending then username
func SortProfiles(ps []*pdomain.Profile) {
	slices.SortFunc(ps, func(a, b *pdomain.Profile) int {
		switch {
		case a.Score() > b.Score():
			return -1
		case a.Score() < b.Score():
			return 1
		case a.Username < b.Username:
			return -1
		case a.Username > b.Username:
			return 1
		}
		return 0
	})
}

// AddMerge credits user with one merged pull request
func (s *State) AddMerge(user string) {
	s.mu.Lock()
	s.mergeCounts[user]++
	s.mu.Unlock()
}

// MergeCount is the global merged pull request total for user
func (s *State) MergeCount(user string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeCounts[user]
}

// UpsertMergeDetail replaces the detail for d.Repo or appends it
func (s *State) UpsertMergeDetail(user string, d pdomain.MergedPRDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds := s.mergeDetails[user]
	for i := range ds {
		if ds[i].Repo == d.Repo {
			ds[i] = d
			return
		}
	}
	s.mergeDetails[user] = append(ds, d)
}

// MergeDetails returns a copy of user's per repository merge details
func (s *State) MergeDetails(user string) []pdomain.MergedPRDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.mergeDetails[user])
}

// SetRepoTier records the tier a repository was crawled at
func (s *State) SetRepoTier(repo string, tier int) {
	s.mu.Lock()
	s.repoTiers[repo] = tier
	s.mu.Unlock()
}

// TierFor resolves the tier credited to user for repo: the repository's own
// tier, else the tier of a matching merge detail, else UnknownTier
func (s *State) TierFor(user, repo string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.repoTiers[repo]; ok {
		return t
	}
	for _, d := range s.mergeDetails[user] {
		if d.Repo == repo {
			return d.Tier
		}
	}
	return pdomain.UnknownTier
}

// AddAppearance extends an existing profile with a cross repository fact and
// reports whether the profile existed
func (s *State) AddAppearance(user, repo string, tier int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[user]
	if !ok {
		return false
	}
	p.AddAppearance(repo, tier)
	return true
}

// AddUsers records usernames discovered during this run
func (s *State) AddUsers(users ...string) {
	s.mu.Lock()
	for _, u := range users {
		s.allUsers[u] = struct{}{}
	}
	s.mu.Unlock()
}

// Remaining lists discovered users not yet analyzed, sorted
func (s *State) Remaining() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.allUsers))
	for u := range s.allUsers {
		if _, done := s.analyzedUsers[u]; !done {
			out = append(out, u)
		}
	}
	slices.Sort(out)
	return out
}

// Counts summarises the state for logs and reports
type Counts struct {
	Repos    int `json:"analyzed_repositories"`
	Users    int `json:"analyzed_users"`
	Profiles int `json:"profiles"`
	AllUsers int `json:"all_users"`
}

// Counts returns the sizes of the main collections
func (s *State) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Repos:    len(s.analyzedRepos),
		Users:    len(s.analyzedUsers),
		Profiles: len(s.profiles),
		AllUsers: len(s.allUsers),
	}
}
