package domain

import (
	"sync"
	"testing"

	pdomain "ghfinder/internal/services/profiler/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person(user string, followers int) *pdomain.Profile {
	p := pdomain.New(user)
	p.Followers = followers
	return p
}

func TestPutProfile_RejectsMinimal(t *testing.T) {
	s := NewState()
	assert.False(t, s.PutProfile(pdomain.New("ghost")))
	assert.True(t, s.PutProfile(person("alice", 3)))
	_, ok := s.Profile("ghost")
	assert.False(t, ok)
	assert.Equal(t, 1, s.ProfileCount())
}

func TestTierFor_Fallbacks(t *testing.T) {
	s := NewState()
	s.SetRepoTier("o/a", 2)
	s.UpsertMergeDetail("bob", pdomain.MergedPRDetail{Repo: "o/b", Count: 1, Tier: 1})

	assert.Equal(t, 2, s.TierFor("bob", "o/a"))
	assert.Equal(t, 1, s.TierFor("bob", "o/b"))
	assert.Equal(t, pdomain.UnknownTier, s.TierFor("bob", "o/c"))
}

func TestUpsertMergeDetail_ReplacesSameRepo(t *testing.T) {
	s := NewState()
	s.UpsertMergeDetail("bob", pdomain.MergedPRDetail{Repo: "o/a", Count: 1, Tier: 1})
	s.UpsertMergeDetail("bob", pdomain.MergedPRDetail{Repo: "o/b", Count: 2, Tier: 0})
	s.UpsertMergeDetail("bob", pdomain.MergedPRDetail{Repo: "o/a", Count: 5, Tier: 1})

	got := s.MergeDetails("bob")
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Count)

	got[0].Count = 99
	assert.Equal(t, 5, s.MergeDetails("bob")[0].Count, "returned slice is a copy")
}

func TestProfiles_SortedByScore(t *testing.T) {
	s := NewState()
	for _, u := range []string{"carol", "alice", "bob"} {
		s.PutProfile(person(u, 1))
	}
	p, _ := s.Profile("bob")
	p.Evaluation = &pdomain.Evaluation{TotalScore: 9}

	var names []string
	for _, p := range s.Profiles() {
		names = append(names, p.Username)
	}
	assert.Equal(t, []string{"bob", "alice", "carol"}, names)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewState()
	s.MarkRepoAnalyzed("o/b")
	s.MarkRepoAnalyzed("o/a")
	s.MarkUserAnalyzed("alice")
	s.AddUsers("alice", "bob")
	s.PutProfile(person("alice", 10))
	s.AddMerge("alice")
	s.AddMerge("alice")
	s.UpsertMergeDetail("alice", pdomain.MergedPRDetail{Repo: "o/a", Count: 2, Tier: 0})
	s.SetRepoTier("o/a", 0)

	snap := s.Snapshot()
	assert.Equal(t, []string{"o/a", "o/b"}, snap.AnalyzedRepos)
	assert.Equal(t, []string{"alice", "bob"}, snap.AllUsers)

	back := StateFrom(snap)
	assert.Equal(t, snap, back.Snapshot())
	assert.Equal(t, 2, back.MergeCount("alice"))
	assert.True(t, back.RepoAnalyzed("o/b"))
}

func TestStateFrom_SkipsMinimalProfiles(t *testing.T) {
	snap := NewState().Snapshot()
	snap.Profiles = map[string]*pdomain.Profile{"ghost": pdomain.New("ghost"), "al": {Name: "Al"}}
	s := StateFrom(snap)
	assert.Equal(t, 1, s.ProfileCount())
	p, ok := s.Profile("al")
	require.True(t, ok)
	assert.Equal(t, "al", p.Username)
}

func TestState_ConcurrentUpdates(t *testing.T) {
	s := NewState()
	s.PutProfile(person("alice", 1))
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddMerge("alice")
			s.AddAppearance("alice", "o/r", i%3)
			s.MarkUserAnalyzed("alice")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.MergeCount("alice"))
	p, _ := s.Profile("alice")
	require.Len(t, p.CrossRepoDetails, 1)
	assert.Equal(t, 0, p.CrossRepoDetails[0].Tier)
}

func TestTargetHelpers(t *testing.T) {
	tg := Target{FullName: "paradigmxyz/reth", Tier: 1, Label: "node"}
	assert.Equal(t, "paradigmxyz", tg.Owner())
	assert.Equal(t, "reth", tg.Name())
	assert.Equal(t, "paradigmxyz/reth (tier 1) - node", tg.String())

	for in, want := range map[string]bool{"a/b": true, "a/": false, "/b": false, "ab": false, "a/b/c": false, " a/b": false} {
		assert.Equal(t, want, ValidFullName(in), in)
	}
	assert.Equal(t, "aborted", StatusAborted.String())
}
