package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/services/crawl/domain"
	pdomain "ghfinder/internal/services/profiler/domain"
)

var fixed = time.Date(2025, 10, 19, 12, 30, 0, 0, time.UTC)

func newStore(t *testing.T, run string, compress bool) *Checkpoints {
	t.Helper()
	return New(Options{BaseDir: t.TempDir(), Run: run, Compress: compress, Now: func() time.Time { return fixed }})
}

func sampleState() *domain.State {
	s := domain.NewState()
	s.MarkRepoAnalyzed("paradigmxyz/reth")
	s.MarkRepoAnalyzed("foundry-rs/foundry")
	s.MarkUserAnalyzed("alice")
	s.MarkUserAnalyzed("ghost")
	s.AddUsers("alice", "bob", "ghost")
	s.SetRepoTier("paradigmxyz/reth", 1)
	s.AddMerge("alice")
	s.AddMerge("alice")
	s.UpsertMergeDetail("alice", pdomain.MergedPRDetail{Repo: "paradigmxyz/reth", Count: 2, Tier: 1})

	p := pdomain.New("alice")
	p.Name = "Alice"
	p.Followers = 120
	p.CreatedAt = "2019-03-01T00:00:00Z"
	p.Languages = []string{"Rust", "Go"}
	p.AddAppearance("paradigmxyz/reth", 1)
	p.Evaluation = &pdomain.Evaluation{TotalScore: 8.25, Category: "Promising Developer"}
	s.PutProfile(p)
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(map[bool]string{false: "json", true: "lz4"}[compress], func(t *testing.T) {
			c := newStore(t, "20251019_120000", compress)
			ctx := context.Background()

			path, err := c.Save(ctx, sampleState(), domain.Extras{RunID: "run-1", RemainingUsers: []string{"bob"}})
			require.NoError(t, err)
			assert.Equal(t, compress, strings.HasSuffix(path, lz4Ext))
			assert.Equal(t, "checkpoint_20251019_123000", strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".lz4"), ".json"))

			fi, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(filePerm), fi.Mode().Perm())

			got, err := c.Load(ctx, path)
			require.NoError(t, err)

			want := sampleState().Snapshot()
			snap := got.Snapshot()
			assert.Equal(t, want.AnalyzedRepos, snap.AnalyzedRepos)
			assert.Equal(t, want.AnalyzedUsers, snap.AnalyzedUsers)
			assert.Equal(t, want.AllUsers, snap.AllUsers)
			assert.Equal(t, want.MergeCounts, snap.MergeCounts)
			assert.Equal(t, want.MergeDetails, snap.MergeDetails)
			assert.Equal(t, want.RepoTiers, snap.RepoTiers)
			require.Contains(t, snap.Profiles, "alice")
			assert.Equal(t, want.Profiles["alice"], snap.Profiles["alice"])
		})
	}
}

func TestSave_NameCollisionGetsSuffix(t *testing.T) {
	c := newStore(t, "", false)
	ctx := context.Background()

	first, err := c.Save(ctx, sampleState(), domain.Extras{})
	require.NoError(t, err)
	second, err := c.Save(ctx, sampleState(), domain.Extras{})
	require.NoError(t, err)

	assert.Equal(t, "checkpoint_20251019_123000.json", filepath.Base(first))
	assert.Equal(t, "checkpoint_20251019_123000_1.json", filepath.Base(second))
	assert.Equal(t, filepath.Join(c.base, DefaultRun, checkpointsDir), filepath.Dir(first))

	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, second, latest)
}

func writeRaw(t *testing.T, c *Checkpoints, run, name, body string) string {
	t.Helper()
	dir := c.runDir(run)
	require.NoError(t, os.MkdirAll(dir, dirPerm))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), filePerm))
	return p
}

func TestLoad_SchemaTolerance(t *testing.T) {
	c := newStore(t, "", false)
	p := writeRaw(t, c, DefaultRun, "checkpoint_20250101_000000.json", `{
		"analyzed_users": "not-a-list",
		"analyzed_repositories": ["o/r", ""],
		"profiles": {
			"alice": {"username": "alice", "followers": 3},
			"ghost": {"username": "ghost"},
			"broken": {"username": "broken", "followers": "many"},
			"nameless": {"followers": 9}
		},
		"pr_merger_stats": {"alice": 4},
		"pr_merger_details": {"alice": [["o/r", 4, 1], ["short"], ["x/y", 0, 2], ["z/w", 1, "?"]]},
		"repo_tiers": {"o/r": "one"},
		"unknown_field": true
	}`)

	st, err := c.Load(context.Background(), p)
	require.NoError(t, err)
	snap := st.Snapshot()

	assert.Empty(t, snap.AnalyzedUsers)
	assert.Equal(t, []string{"o/r"}, snap.AnalyzedRepos)
	assert.Equal(t, []string{"alice"}, keys(snap.Profiles), "minimal and invalid profiles are dropped")
	assert.Equal(t, 4, st.MergeCount("alice"))
	assert.Equal(t, []pdomain.MergedPRDetail{
		{Repo: "o/r", Count: 4, Tier: 1},
		{Repo: "z/w", Count: 1, Tier: pdomain.UnknownTier},
	}, st.MergeDetails("alice"))
	assert.Empty(t, snap.RepoTiers)
}

func keys(m map[string]*pdomain.Profile) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestLoad_MalformedFileGivesEmptyState(t *testing.T) {
	c := newStore(t, "", false)
	p := writeRaw(t, c, DefaultRun, "checkpoint_20250101_000000.json", `{"profiles": {`)

	st, err := c.Load(context.Background(), p)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeJSON))
	require.NotNil(t, st)
	assert.Zero(t, st.Counts())

	p = writeRaw(t, c, DefaultRun, "checkpoint_20250101_000001.json", `[1,2]`)
	_, err = c.Load(context.Background(), p)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeJSON))
}

func TestResolveAndLatest(t *testing.T) {
	c := newStore(t, "20251019_120000", false)
	old := writeRaw(t, c, DefaultRun, "checkpoint_20240101_000000.json", `{}`)
	other := writeRaw(t, c, "20250501_080000", "checkpoint_20250501_090000.json", `{}`)
	writeRaw(t, c, "20250501_080000", "checkpoint_20250501_085959.json", `{}`)
	writeRaw(t, c, "20250501_080000", "notes.txt", `x`)

	// nothing in the current run: newest across runs
	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, other, latest)

	got, err := c.Resolve("20250501_080000")
	require.NoError(t, err)
	assert.Equal(t, other, got)

	got, err = c.Resolve("checkpoint_20240101_000000.json")
	require.NoError(t, err)
	assert.Equal(t, old, got)

	got, err = c.Resolve(old)
	require.NoError(t, err)
	assert.Equal(t, old, got)

	_, err = c.Resolve("20990101_000000")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
	_, err = c.Resolve("checkpoint_19990101_000000.json")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))

	all := c.ListAll()
	assert.Equal(t, []string{"checkpoint_20250501_090000.json", "checkpoint_20250501_085959.json"}, all["20250501_080000"])
	assert.Len(t, all, 2)
	assert.Equal(t, []string{DefaultRun, "20250501_080000"}, c.Runs())

	// a checkpoint in the current run wins over newer ones elsewhere
	mine, err := c.Save(context.Background(), sampleState(), domain.Extras{})
	require.NoError(t, err)
	writeRaw(t, c, "20990101_000000", "checkpoint_20990101_000000.json", `{}`)
	latest, _ = c.Latest()
	assert.Equal(t, mine, latest)
}

func TestKeyOrdering(t *testing.T) {
	a, _ := keyOf("checkpoint_20250101_000000_2.json")
	b, _ := keyOf("checkpoint_20250101_000000_10.json.lz4")
	cc, _ := keyOf("checkpoint_20250101_000001.json")
	assert.True(t, a.less(b))
	assert.True(t, b.less(cc))

	ts, ok := StampOf("/x/checkpoint_20250101_101112.json")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 11, 12, 0, time.UTC), ts)
	_, ok = StampOf("profiles.json")
	assert.False(t, ok)
}
