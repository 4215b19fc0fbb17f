// Package repo persists crawl state as immutable checkpoint files under
// runs/<run>/checkpoints
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/logger"
	"ghfinder/internal/services/crawl/domain"
	pdomain "ghfinder/internal/services/profiler/domain"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600

	// DefaultRun holds checkpoints written before run directories existed
	DefaultRun = "default"

	checkpointsDir = "checkpoints"
	stampLayout    = "20060102_150405"
)

var (
	nameRE = regexp.MustCompile(`^checkpoint_(\d{8}_\d{6})(?:_(\d+))?\.json(?:\.lz4)?$`)
	runRE  = regexp.MustCompile(`^\d{8}_\d{6}$`)
)

// Options configures a checkpoint store
type Options struct {
	BaseDir  string // parent of every run directory, "runs" when empty
	Run      string // current run name, DefaultRun when empty
	Compress bool   // write .json.lz4
	Now      func() time.Time
}

// Checkpoints reads and writes checkpoint files
type Checkpoints struct {
	base     string
	run      string
	compress bool
	now      func() time.Time
	log      logger.Logger
}

var _ domain.CheckpointPort = (*Checkpoints)(nil)

// New returns a store rooted at opts.BaseDir
func New(opts Options) *Checkpoints {
	c := &Checkpoints{
		base:     opts.BaseDir,
		run:      opts.Run,
		compress: opts.Compress,
		now:      opts.Now,
		log:      *logger.Named("checkpoint"),
	}
	if c.base == "" {
		c.base = "runs"
	}
	if c.run == "" {
		c.run = DefaultRun
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Dir is the checkpoint directory of the current run
func (c *Checkpoints) Dir() string { return c.runDir(c.run) }

// Run is the current run name
func (c *Checkpoints) Run() string { return c.run }

func (c *Checkpoints) runDir(run string) string {
	return filepath.Join(c.base, run, checkpointsDir)
}

// Save writes a new checkpoint and returns its path. Existing files are
// never overwritten
func (c *Checkpoints) Save(ctx context.Context, s *domain.State, x domain.Extras) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	snap := s.Snapshot()
	now := c.now().UTC()

	doc := document{
		Timestamp:        now.Format(time.RFC3339),
		RunID:            x.RunID,
		AnalyzedUsers:    orNone(snap.AnalyzedUsers),
		AnalyzedRepos:    orNone(snap.AnalyzedRepos),
		Profiles:         c.encodeProfiles(snap.Profiles),
		MergeCounts:      orEmpty(snap.MergeCounts),
		MergeDetails:     make(map[string][]mergeTuple, len(snap.MergeDetails)),
		ContributorStats: orEmpty(snap.ContributorStats),
		AllUsers:         orNone(snap.AllUsers),
		RemainingUsers:   orNone(slices.Sorted(slices.Values(x.RemainingUsers))),
		RateLimitInfo:    x.RateLimit,
		RepoTiers:        orEmpty(snap.RepoTiers),
	}
	for u, ds := range snap.MergeDetails {
		doc.MergeDetails[u] = tuplesOf(ds)
	}
	if doc.RateLimitInfo == nil {
		doc.RateLimitInfo = map[string]any{}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeJSON, "encode checkpoint")
	}
	data, err := encode(raw, c.compress)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "compress checkpoint")
	}

	dir := c.Dir()
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "create %s", dir)
	}
	path, err := c.freeName(dir, now)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(dir, path, data); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "write %s", path)
	}

	c.log.Info().
		Str("path", path).
		Int("profiles", len(doc.Profiles)).
		Int("repos", len(doc.AnalyzedRepos)).
		Int("users", len(doc.AnalyzedUsers)).
		Int("bytes", len(data)).
		Msg("checkpoint saved")
	return path, nil
}

// encodeProfiles keeps every non minimal profile that encodes cleanly
func (c *Checkpoints) encodeProfiles(in map[string]*pdomain.Profile) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(in))
	for u, p := range in {
		if p.IsMinimal() {
			continue
		}
		b, err := json.Marshal(p)
		if err != nil {
			c.log.Warn().Err(err).Str("user", u).Msg("profile dropped from checkpoint")
			continue
		}
		out[u] = b
	}
	return out
}

func (c *Checkpoints) freeName(dir string, now time.Time) (string, error) {
	ext := jsonExt
	if c.compress {
		ext = lz4Ext
	}
	stem := "checkpoint_" + now.Format(stampLayout)
	for n := 0; n < 1000; n++ {
		name := stem
		if n > 0 {
			name += "_" + strconv.Itoa(n)
		}
		path := filepath.Join(dir, name+ext)
		_, errJSON := os.Stat(filepath.Join(dir, name+jsonExt))
		_, errLZ4 := os.Stat(filepath.Join(dir, name+lz4Ext))
		if errors.Is(errJSON, fs.ErrNotExist) && errors.Is(errLZ4, fs.ErrNotExist) {
			return path, nil
		}
	}
	return "", perr.Newf(perr.ErrorCodeConflict, "no free checkpoint name for %s", stem)
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load restores state from a checkpoint id (a path or anything Resolve
// accepts). A file that cannot be read or parsed yields an empty state and
// an error so callers can start fresh
func (c *Checkpoints) Load(ctx context.Context, id string) (*domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.NewState(), err
	}
	path, err := c.Resolve(id)
	if err != nil {
		return domain.NewState(), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.NewState(), perr.Wrapf(err, perr.ErrorCodeJSON, "read checkpoint %s", path)
	}
	raw, err := decode(path, data)
	if err != nil {
		return domain.NewState(), perr.Wrapf(err, perr.ErrorCodeJSON, "decompress checkpoint %s", path)
	}
	doc, err := c.parse(raw)
	if err != nil {
		return domain.NewState(), perr.Wrapf(err, perr.ErrorCodeJSON, "parse checkpoint %s", path)
	}

	st := domain.StateFrom(doc.toSnapshot(c.decodeProfiles(doc.Profiles)))
	n := st.Counts()
	c.log.Info().
		Str("path", path).
		Str("run_id", doc.RunID).
		Int("profiles", n.Profiles).
		Int("repos", n.Repos).
		Int("users", n.Users).
		Msg("checkpoint loaded")
	return st, nil
}

// parse applies the field rules to a raw document. Only a document that is
// not a JSON object fails
func (c *Checkpoints) parse(raw []byte) (*document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}
	if top == nil {
		return nil, errors.New("checkpoint is not an object")
	}
	sch, _ := schemas()
	doc := &document{}
	for _, r := range fieldRules {
		v, ok := top[r.name]
		if ok && string(v) != "null" {
			if problems := validate(sch[r.name], v); len(problems) > 0 {
				c.log.Warn().Str("field", r.name).Strs("problems", problems).Msg("checkpoint field invalid, using default")
				ok = false
			}
		} else {
			ok = false
		}
		if ok {
			if err := r.decode(v, doc); err == nil {
				continue
			}
			c.log.Warn().Str("field", r.name).Msg("checkpoint field undecodable, using default")
		}
		_ = r.decode(json.RawMessage(r.def), doc)
	}
	return doc, nil
}

func (c *Checkpoints) decodeProfiles(in map[string]json.RawMessage) map[string]*pdomain.Profile {
	_, sch := schemas()
	out := make(map[string]*pdomain.Profile, len(in))
	dropped := 0
	for u, raw := range in {
		if problems := validate(sch, raw); len(problems) > 0 {
			c.log.Debug().Str("user", u).Strs("problems", problems).Msg("profile dropped")
			dropped++
			continue
		}
		var p pdomain.Profile
		if err := json.Unmarshal(raw, &p); err != nil || p.IsMinimal() {
			dropped++
			continue
		}
		out[u] = &p
	}
	if dropped > 0 {
		c.log.Info().Int("dropped", dropped).Msg("skipped invalid or minimal profiles")
	}
	return out
}

// Latest returns the newest checkpoint of the current run, else the newest
// of any run
func (c *Checkpoints) Latest() (string, bool) {
	if p, ok := c.LatestForRun(c.run); ok {
		return p, true
	}
	var (
		best    string
		bestKey key
	)
	for run, names := range c.ListAll() {
		if len(names) == 0 {
			continue
		}
		k, _ := keyOf(names[0])
		if best == "" || bestKey.less(k) {
			best, bestKey = filepath.Join(c.runDir(run), names[0]), k
		}
	}
	return best, best != ""
}

// LatestForRun returns the newest checkpoint of run
func (c *Checkpoints) LatestForRun(run string) (string, bool) {
	names := c.list(run)
	if len(names) == 0 {
		return "", false
	}
	return filepath.Join(c.runDir(run), names[0]), true
}

// List returns the checkpoint names of run, newest first
func (c *Checkpoints) List(run string) []string { return c.list(run) }

// ListAll returns checkpoint names per run, newest first. Runs without
// checkpoints are omitted
func (c *Checkpoints) ListAll() map[string][]string {
	out := map[string][]string{}
	entries, err := os.ReadDir(c.base)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if names := c.list(e.Name()); len(names) > 0 {
			out[e.Name()] = names
		}
	}
	return out
}

// Runs returns run names that hold checkpoints, newest first
func (c *Checkpoints) Runs() []string {
	runs := slices.Collect(maps.Keys(c.ListAll()))
	slices.SortFunc(runs, func(a, b string) int { return strings.Compare(b, a) })
	return runs
}

func (c *Checkpoints) list(run string) []string {
	entries, err := os.ReadDir(c.runDir(run))
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && nameRE.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.SortFunc(names, func(a, b string) int {
		ka, _ := keyOf(a)
		kb, _ := keyOf(b)
		return kb.compare(ka)
	})
	return names
}

// Resolve maps "latest", a run name, a checkpoint file name or a path to a
// checkpoint path
func (c *Checkpoints) Resolve(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		return "", perr.InvalidArgf("empty checkpoint reference")
	case arg == "latest":
		if p, ok := c.Latest(); ok {
			return p, nil
		}
		return "", perr.NotFoundf("no checkpoints under %s", c.base)
	}
	if fi, err := os.Stat(arg); err == nil && fi.Mode().IsRegular() {
		return arg, nil
	}
	if runRE.MatchString(arg) {
		if p, ok := c.LatestForRun(arg); ok {
			return p, nil
		}
		return "", perr.NotFoundf("run %s has no checkpoints", arg)
	}
	name := filepath.Base(arg)
	for _, run := range []string{c.run, DefaultRun} {
		if p := filepath.Join(c.runDir(run), name); isFile(p) {
			return p, nil
		}
	}
	for _, run := range c.Runs() {
		if p := filepath.Join(c.runDir(run), name); isFile(p) {
			return p, nil
		}
	}
	return "", perr.NotFoundf("checkpoint %s not found", arg)
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// key orders checkpoint names by embedded timestamp then collision suffix
type key struct {
	stamp string
	n     int
}

func keyOf(name string) (key, bool) {
	m := nameRE.FindStringSubmatch(name)
	if m == nil {
		return key{}, false
	}
	n, _ := strconv.Atoi(m[2])
	return key{stamp: m[1], n: n}, true
}

func (k key) compare(o key) int {
	if c := strings.Compare(k.stamp, o.stamp); c != 0 {
		return c
	}
	return k.n - o.n
}

func (k key) less(o key) bool { return k.compare(o) < 0 }

// StampOf returns the time embedded in a checkpoint name
func StampOf(name string) (time.Time, bool) {
	k, ok := keyOf(filepath.Base(name))
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(stampLayout, k.stamp, time.UTC)
	return t, err == nil
}

func orEmpty[M ~map[K]V, K comparable, V any](m M) M {
	if m == nil {
		return M{}
	}
	return m
}

func orNone(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
