package service

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"ghfinder/internal/adapters/github"
	"ghfinder/internal/core/normalize"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/logger"
	"ghfinder/internal/services/profiler/domain"
)

// DefaultBioKeywords are openness phrases looked for in a user's bio
var DefaultBioKeywords = []string{
	"looking for", "open to", "available for", "seeking", "job hunt",
	"job search", "new opportunity", "new opportunities", "job opportunity",
	"job hunting", "unemployed", "layoff", "laid off", "hire me", "for hire",
	"seeking work", "seeking opportunities", "open for work", "available",
	"hiring", "status: hiring",
}

// DefaultReadmeKeywords are openness phrases looked for in a profile README
var DefaultReadmeKeywords = []string{
	"looking for", "open to", "available for", "seeking", "job hunt",
	"job search", "new opportunity", "new opportunities", "job opportunity",
	"job hunting", "unemployed", "layoff", "laid off", "hire me", "for hire",
	"seeking work", "seeking opportunities", "open for work", "my resume",
	"currently available", "job status", "employment status", "career status",
}

// badge variants matched against the bio with spaces removed
var openToWorkBadges = []string{"#opentowork", "lookingforjob", "availableforhire"}

var readmeNames = []string{"README.md", "readme.md", "Readme.md"}

// AnalyzerConfig carries the analyzer knobs
type AnalyzerConfig struct {
	TopRepos       int           // repos kept from the first page, default 10
	LanguageRepos  int           // top repos scanned for languages, default 5
	MaxEvents      int           // public events inspected, default 150
	EventsPerPage  int           // default 100
	PassionWindow  time.Duration // default 14 days
	BioKeywords    []string
	ReadmeKeywords []string
	Now            func() time.Time
}

func (c AnalyzerConfig) withDefaults() AnalyzerConfig {
	if c.TopRepos <= 0 {
		c.TopRepos = 10
	}
	if c.LanguageRepos <= 0 {
		c.LanguageRepos = 5
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = 150
	}
	if c.EventsPerPage <= 0 {
		c.EventsPerPage = 100
	}
	if c.PassionWindow <= 0 {
		c.PassionWindow = 14 * 24 * time.Hour
	}
	if c.BioKeywords == nil {
		c.BioKeywords = DefaultBioKeywords
	}
	if c.ReadmeKeywords == nil {
		c.ReadmeKeywords = DefaultReadmeKeywords
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Analyzer fills a profile from the user document, profile README, recent
// repositories, languages and public events
type Analyzer struct {
	gh     GitHub
	cfg    AnalyzerConfig
	bio    normalize.Keywords
	readme normalize.Keywords
	log    logger.Logger
}

var _ domain.Analyzer = (*Analyzer)(nil)

// NewAnalyzer constructs an Analyzer
func NewAnalyzer(gh GitHub, cfg AnalyzerConfig) *Analyzer {
	cfg = cfg.withDefaults()
	return &Analyzer{
		gh:     gh,
		cfg:    cfg,
		bio:    normalize.NewKeywords(cfg.BioKeywords...),
		readme: normalize.NewKeywords(cfg.ReadmeKeywords...),
		log:    *logger.Named("profiler"),
	}
}

// Analyze builds the profile for username. Organizations yield nil. An
// unknown user yields a minimal profile. Quota and auth errors propagate;
// failures of individual enrichment steps are logged and skipped
func (a *Analyzer) Analyze(ctx context.Context, username string) (*domain.Profile, error) {
	u, res, err := a.gh.User(ctx, username)
	if err != nil {
		return nil, perr.WithOp(err, "profiler.Analyze")
	}
	if res.Status == http.StatusNotFound {
		a.log.Debug().Str("user", username).Msg("user not found")
		return domain.New(username), nil
	}
	if !res.OK() {
		return nil, perr.Unavailablef("fetch user %s: status %d", username, res.Status)
	}
	if u.IsOrg() {
		a.log.Debug().Str("user", username).Msg("skipping organization")
		return nil, nil
	}

	p := domain.New(username)
	fillFromUser(p, u)
	a.analyzeBio(p)

	steps := []struct {
		name string
		fn   func(context.Context, *domain.Profile) error
	}{
		{"readme", a.analyzeReadme},
		{"repos", a.analyzeRepos},
		{"events", a.analyzeEvents},
	}
	for _, s := range steps {
		if err := s.fn(ctx, p); err != nil {
			if github.IsFatal(err) || ctx.Err() != nil {
				return nil, err
			}
			a.log.Warn().Err(err).Str("user", username).Str("step", s.name).Msg("profile step failed")
		}
	}
	p.EmployerName = employerOf(p.Company)
	return p, nil
}

func fillFromUser(p *domain.Profile, u github.User) {
	p.Name = u.Name
	p.Company = u.Company
	p.Blog = u.Blog
	p.Location = u.Location
	p.Email = u.Email
	p.Hireable = u.Hireable != nil && *u.Hireable
	p.Bio = u.Bio
	p.Twitter = u.Twitter
	p.Followers = u.Followers
	p.Following = u.Following
	p.PublicRepos = u.PublicRepos
	p.PublicGists = u.PublicGists
	p.CreatedAt = isoTime(u.CreatedAt)
	p.UpdatedAt = isoTime(u.UpdatedAt)
	if u.HTMLURL != "" {
		p.ProfileURL = u.HTMLURL
	}
}

func (a *Analyzer) analyzeBio(p *domain.Profile) {
	if p.Hireable {
		p.ExplicitInterest = true
	}
	if p.Bio == "" {
		return
	}
	norm := normalize.Normalize(p.Bio)
	if found := a.bio.Find(norm); len(found) > 0 {
		p.BioKeywords = found
		p.ExplicitInterest = true
	}
	compact := normalize.Compact(norm)
	for _, b := range openToWorkBadges {
		if strings.Contains(compact, b) {
			p.OpenToWork = true
			if !slices.Contains(p.BioKeywords, "#opentowork") {
				p.BioKeywords = append(p.BioKeywords, "#opentowork")
			}
			break
		}
	}
}

func (a *Analyzer) analyzeReadme(ctx context.Context, p *domain.Profile) error {
	full := p.Username + "/" + p.Username
	repo, res, err := a.gh.Repo(ctx, full)
	if err != nil {
		return err
	}
	if !res.OK() {
		return nil
	}
	p.ProfileReadmeFound = true
	branch := cmp.Or(repo.DefaultBranch, "main")

	var text string
	for _, name := range readmeNames {
		c, res, err := a.gh.RepoContent(ctx, full, name, branch)
		if err != nil {
			if github.IsFatal(err) {
				return err
			}
			a.log.Debug().Err(err).Str("user", p.Username).Str("file", name).Msg("readme fetch failed")
			continue
		}
		if res.OK() && len(c.Decoded) > 0 {
			text = string(c.Decoded)
			break
		}
	}
	if text == "" {
		return nil
	}
	if found := a.readme.Find(normalize.Normalize(text)); len(found) > 0 {
		p.ReadmeKeywords = found
		p.ExplicitInterest = true
	}
	return nil
}

func (a *Analyzer) analyzeRepos(ctx context.Context, p *domain.Profile) error {
	repos, res, err := a.gh.UserRepos(ctx, p.Username, 1, a.cfg.TopRepos)
	if err != nil {
		return err
	}
	if !res.OK() || len(repos) == 0 {
		return nil
	}

	top := repos[:min(len(repos), a.cfg.TopRepos)]
	for _, r := range top {
		p.TopRepos = append(p.TopRepos, domain.Repository{
			Name:        r.Name,
			URL:         repoURL(r, p.Username),
			Description: r.Description,
			Stars:       r.Stargazers,
			Language:    r.Language,
			UpdatedAt:   isoTime(r.UpdatedAt),
		})
	}
	p.PassionProject = a.isPassionProject(top[0], p.Username)

	return a.analyzeLanguages(ctx, p, top[:min(len(top), a.cfg.LanguageRepos)])
}

// isPassionProject reports a recently updated own repo that is not a fork,
// not the profile repo and not a bot
func (a *Analyzer) isPassionProject(r github.Repo, username string) bool {
	if r.Owner.Login != username || r.Fork || r.Name == "" {
		return false
	}
	if r.Name == username || strings.HasSuffix(r.Name, "-bot") || r.UpdatedAt.IsZero() {
		return false
	}
	return daysSince(a.cfg.Now(), r.UpdatedAt) <= int(a.cfg.PassionWindow/(24*time.Hour))
}

func (a *Analyzer) analyzeLanguages(ctx context.Context, p *domain.Profile, repos []github.Repo) error {
	totals := map[string]int64{}
	for _, r := range repos {
		full := r.FullName
		if full == "" {
			full = cmp.Or(r.Owner.Login, p.Username) + "/" + r.Name
		}
		langs, res, err := a.gh.RepoLanguages(ctx, full)
		if err != nil {
			if github.IsFatal(err) {
				return err
			}
			a.log.Debug().Err(err).Str("repo", full).Msg("languages fetch failed")
			continue
		}
		if !res.OK() {
			continue
		}
		for lang, n := range langs {
			totals[lang] += n
		}
	}
	p.Languages, p.LanguagesDetailed = rankLanguages(totals)
	return nil
}

// rankLanguages orders languages by bytes descending, name ascending on ties
func rankLanguages(totals map[string]int64) ([]string, []domain.LanguageDetail) {
	var sum int64
	for _, n := range totals {
		sum += n
	}
	if sum <= 0 {
		return nil, nil
	}
	details := make([]domain.LanguageDetail, 0, len(totals))
	for lang, n := range totals {
		details = append(details, domain.LanguageDetail{
			Name:       lang,
			Bytes:      n,
			Percentage: float64(n) / float64(sum) * 100,
		})
	}
	slices.SortFunc(details, func(x, y domain.LanguageDetail) int {
		if c := cmp.Compare(y.Bytes, x.Bytes); c != 0 {
			return c
		}
		return cmp.Compare(x.Name, y.Name)
	})
	names := make([]string, len(details))
	for i, d := range details {
		names[i] = d.Name
	}
	return names, details
}

func (a *Analyzer) analyzeEvents(ctx context.Context, p *domain.Profile) error {
	per := a.cfg.EventsPerPage
	pages := max(1, (a.cfg.MaxEvents+per-1)/per)

	var events []github.Event
	for page := 1; page <= pages; page++ {
		batch, res, err := a.gh.UserEvents(ctx, p.Username, page, per)
		if err != nil {
			return err
		}
		if !res.OK() || len(batch) == 0 {
			break
		}
		events = append(events, batch...)
		if len(events) >= a.cfg.MaxEvents {
			break
		}
	}
	p.RecentActivitySpike = activitySpike(events, a.cfg.Now())
	return nil
}

// activitySpike compares last week's events with the weekly average of the
// last month. Months with five or fewer events never spike
func activitySpike(events []github.Event, now time.Time) bool {
	week, month := 0, 0
	for _, e := range events {
		if e.CreatedAt.IsZero() {
			continue
		}
		d := daysSince(now, e.CreatedAt)
		if d <= 7 {
			week++
		}
		if d <= 30 {
			month++
		}
	}
	if month <= 5 {
		return false
	}
	return float64(week) > float64(month)/4*2
}

func employerOf(company string) string {
	c := strings.TrimSpace(company)
	return strings.TrimSpace(strings.TrimPrefix(c, "@"))
}

func repoURL(r github.Repo, username string) string {
	if r.HTMLURL != "" {
		return r.HTMLURL
	}
	return "https://github.com/" + cmp.Or(r.Owner.Login, username) + "/" + r.Name
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// daysSince counts whole days elapsed from t to now
func daysSince(now, t time.Time) int {
	return int(now.Sub(t) / (24 * time.Hour))
}
