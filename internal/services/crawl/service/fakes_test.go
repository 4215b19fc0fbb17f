package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ghfinder/internal/adapters/github"
	"ghfinder/internal/adapters/github/tokens"
	"ghfinder/internal/modkit"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/services/crawl/domain"
	pdomain "ghfinder/internal/services/profiler/domain"
)

var now = time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return now.Add(-time.Duration(n) * 24 * time.Hour) }

// fakeGateway serves pages per repository. Pages past the end are empty
type fakeGateway struct {
	mu     sync.Mutex
	pulls  map[string][][]github.Pull
	forks  map[string][][]github.Repo
	errs   map[string]error // "repo" or "repo#page"
	status map[string]int   // "repo#page"
	calls  []string
}

func newGateway() *fakeGateway {
	return &fakeGateway{
		pulls:  map[string][][]github.Pull{},
		forks:  map[string][][]github.Repo{},
		errs:   map[string]error{},
		status: map[string]int{},
	}
}

func (f *fakeGateway) page(kind, repo string, page int) (github.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s %s %d", kind, repo, page))
	key := fmt.Sprintf("%s#%d", repo, page)
	if err, ok := f.errs[key]; ok {
		return github.Result{}, err
	}
	if err, ok := f.errs[repo]; ok {
		return github.Result{}, err
	}
	if st, ok := f.status[key]; ok {
		return github.Result{Status: st}, nil
	}
	return github.Result{Status: http.StatusOK}, nil
}

func (f *fakeGateway) RepoPulls(_ context.Context, repo string, pq github.PullsQuery) ([]github.Pull, github.Result, error) {
	res, err := f.page("pulls", repo, pq.Page)
	if err != nil || !res.OK() {
		return nil, res, err
	}
	pages := f.pulls[repo]
	if pq.Page > len(pages) {
		return nil, res, nil
	}
	p := pages[pq.Page-1]
	res.Items = len(p)
	return p, res, nil
}

func (f *fakeGateway) RepoForks(_ context.Context, repo string, page, _ int) ([]github.Repo, github.Result, error) {
	res, err := f.page("forks", repo, page)
	if err != nil || !res.OK() {
		return nil, res, err
	}
	pages := f.forks[repo]
	if page > len(pages) {
		return nil, res, nil
	}
	p := pages[page-1]
	res.Items = len(p)
	return p, res, nil
}

func (f *fakeGateway) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func merged(login string) github.Pull {
	at := daysAgo(1)
	p := github.Pull{Number: 1, State: "closed", MergedAt: &at}
	if login != "" {
		p.MergedBy = &github.User{Login: login}
	}
	return p
}

func unmerged() github.Pull { return github.Pull{Number: 2, State: "closed"} }

func fork(owner string, stars, age int) github.Repo {
	return github.Repo{
		FullName:   owner + "/fork",
		Owner:      github.User{Login: owner},
		Stargazers: stars,
		UpdatedAt:  daysAgo(age),
	}
}

type fakeQuota struct {
	exhausted bool
	reset     time.Time
}

func (q *fakeQuota) AllExhausted() bool        { return q.exhausted }
func (q *fakeQuota) EarliestReset() time.Time  { return q.reset }
func (q *fakeQuota) Snapshot() []tokens.Status { return []tokens.Status{{ID: "ghp_…abcd", Remaining: 42}} }

// fakeAnalyzer returns copies of canned profiles. Unknown users are minimal
type fakeAnalyzer struct {
	mu       sync.Mutex
	profiles map[string]*pdomain.Profile
	errs     map[string]error
	panics   bool
	calls    map[string]int
}

func newAnalyzer(ps ...*pdomain.Profile) *fakeAnalyzer {
	a := &fakeAnalyzer{profiles: map[string]*pdomain.Profile{}, errs: map[string]error{}, calls: map[string]int{}}
	for _, p := range ps {
		a.profiles[p.Username] = p
	}
	return a
}

func (a *fakeAnalyzer) Analyze(_ context.Context, username string) (*pdomain.Profile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[username]++
	if a.panics {
		panic("analyzer blew up")
	}
	if err, ok := a.errs[username]; ok {
		return nil, err
	}
	p, ok := a.profiles[username]
	if !ok {
		return pdomain.New(username), nil
	}
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (a *fakeAnalyzer) Calls(user string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[user]
}

func (a *fakeAnalyzer) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		n += c
	}
	return n
}

type fakeEvaluator struct{}

func (fakeEvaluator) Evaluate(p *pdomain.Profile) *pdomain.Evaluation {
	ev := &pdomain.Evaluation{TotalScore: float64(p.Followers), Category: "Regular Developer"}
	p.Evaluation = ev
	return ev
}

// fakeCheckpoints counts saves and remembers what they held
type fakeCheckpoints struct {
	mu     sync.Mutex
	saves  []domain.Counts
	extras []domain.Extras
	fail   bool
}

func (c *fakeCheckpoints) Save(_ context.Context, s *domain.State, x domain.Extras) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return "", perr.Unavailablef("disk full")
	}
	c.saves = append(c.saves, s.Counts())
	c.extras = append(c.extras, x)
	return fmt.Sprintf("checkpoint-%d", len(c.saves)), nil
}

func (c *fakeCheckpoints) Load(context.Context, string) (*domain.State, error) {
	return domain.NewState(), nil
}

func (c *fakeCheckpoints) Latest() (string, bool) { return "", false }

func (c *fakeCheckpoints) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.saves)
}

func globalQuotaErr(reset time.Time) error {
	return perr.Wrap(&github.QuotaError{Global: true, ResetAt: reset}, perr.ErrorCodeQuotaExhausted, "github quota exhausted")
}

func scopedQuotaErr() error {
	return perr.Wrap(&github.QuotaError{Token: "ghp_…abcd"}, perr.ErrorCodeTooManyRequests, "github quota exceeded")
}

func authErr() error {
	return perr.Wrap(&github.AuthError{Token: "ghp_…abcd"}, perr.ErrorCodeUnauthorized, "github auth failed")
}

type harness struct {
	gw    *fakeGateway
	quota *fakeQuota
	an    *fakeAnalyzer
	cp    *fakeCheckpoints
	svc   *Svc
}

func newHarness(cfg Config, profiles ...*pdomain.Profile) *harness {
	h := &harness{gw: newGateway(), quota: &fakeQuota{}, an: newAnalyzer(profiles...), cp: &fakeCheckpoints{}}
	if cfg.PerPage == 0 {
		cfg.PerPage = 3
	}
	cfg.Now = func() time.Time { return now }
	h.svc = New(modkit.Deps{Log: zerolog.Nop()}, cfg, Collaborators{
		Gateway:     h.gw,
		Quota:       h.quota,
		Analyzer:    h.an,
		Evaluator:   fakeEvaluator{},
		Checkpoints: h.cp,
	})
	return h
}

func person(login string, followers int) *pdomain.Profile {
	p := pdomain.New(login)
	p.Name = login
	p.Followers = followers
	p.CreatedAt = "2020-01-01T00:00:00Z"
	return p
}
