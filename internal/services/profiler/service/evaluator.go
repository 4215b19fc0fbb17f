package service

import (
	"slices"
	"strings"
	"time"

	"ghfinder/internal/services/profiler/domain"
)

// Categories assigned by the evaluator, most specific first
const (
	CategoryRustCore     = "Tier 0/1 Rust Core Contributor"
	CategoryCoreTarget   = "Core Target Repo Contributor"
	CategoryStrongRust   = "Strong Rust Developer (High Potential)"
	CategoryTop          = "Top Developer"
	CategoryCrossRust    = "Cross-Target Rust Contributor"
	CategoryPromising    = "Promising Developer"
	CategoryRegular      = "Regular Developer"
	HiringInterestSuffix = " (Hiring Interest)"
)

const (
	prominencePrimary   = "Primary"
	prominenceProminent = "Prominent"
	prominenceSecondary = "Secondary"
	prominenceMinor     = "Minor"
	prominenceNone      = "None"

	maxComponentScore = 10.0
	highTierCutoff    = 2
	maxTier           = 8
)

// Weights are the contribution of each component score to the total
type Weights struct {
	Followers float64
	Repos     float64
	Age       float64
	Activity  float64
	Rust      float64
	PRMerger  float64
	CrossRepo float64
	Openness  float64
}

// DefaultWeights emphasise Rust usage and merged pull requests
var DefaultWeights = Weights{
	Followers: 0.05,
	Repos:     0.05,
	Age:       0.05,
	Activity:  0.10,
	Rust:      0.30,
	PRMerger:  0.30,
	CrossRepo: 0.10,
	Openness:  0.05,
}

// EvalOption configures an Evaluator
type EvalOption func(*Evaluator)

// WithNow injects the clock used for age and recency scores
func WithNow(now func() time.Time) EvalOption { return func(e *Evaluator) { e.now = now } }

// Evaluator scores profiles. It is stateless and safe for concurrent use
type Evaluator struct {
	w   Weights
	now func() time.Time
}

var _ domain.Evaluator = (*Evaluator)(nil)

// NewEvaluator constructs an Evaluator
func NewEvaluator(opts ...EvalOption) *Evaluator {
	e := &Evaluator{w: DefaultWeights, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// TierMultiplier weights contributions by target tier: tier 0 counts 5x,
// tier 4 counts 1x and anything lower or unknown 0.5x
func TierMultiplier(tier int) float64 {
	if tier < 0 {
		return 0.5
	}
	return max(0.5, float64(maxTier/2+1-tier))
}

// Evaluate scores p, stores the result on p and returns it
func (e *Evaluator) Evaluate(p *domain.Profile) *domain.Evaluation {
	now := e.now()
	ev := &domain.Evaluation{Category: "Unknown"}

	ev.FollowersScore = min(float64(p.Followers)*0.05, maxComponentScore)
	ev.ReposScore = min(float64(p.PublicRepos)*0.1, maxComponentScore)
	ev.AccountAgeScore = accountAgeScore(p.CreatedAt, now)
	ev.ActivityScore = activityScore(p, now)
	ev.RustScore, ev.RustProminence = rustScore(p.LanguagesDetailed)
	prMergerScore(p, ev)
	crossRepoScore(p, ev)
	opennessScore(p, ev)

	ev.TotalScore = ev.FollowersScore*e.w.Followers +
		ev.ReposScore*e.w.Repos +
		ev.AccountAgeScore*e.w.Age +
		ev.ActivityScore*e.w.Activity +
		ev.RustScore*e.w.Rust +
		ev.PRMergerScore*e.w.PRMerger +
		ev.CrossRepoScore*e.w.CrossRepo +
		ev.OpennessScore*e.w.Openness

	ev.Category = categorize(ev)
	p.Evaluation = ev
	return ev
}

func parseISO(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// accountAgeScore grants about one point per 180 days
func accountAgeScore(created string, now time.Time) float64 {
	t, ok := parseISO(created)
	if !ok {
		return 0
	}
	return min(float64(daysSince(now, t))/180, maxComponentScore)
}

func activityScore(p *domain.Profile, now time.Time) float64 {
	score := 0.0
	if t, ok := parseISO(p.UpdatedAt); ok {
		score += max(0, 5-float64(daysSince(now, t))*0.05)
	}
	if p.ProfileReadmeFound {
		score++
	}
	if p.PassionProject {
		score += 2
	}
	if p.RecentActivitySpike {
		score += 2
	}
	return min(maxComponentScore, score)
}

// rustScore rewards Rust as the primary language and penalises its absence
func rustScore(langs []domain.LanguageDetail) (float64, string) {
	if len(langs) > 0 && strings.EqualFold(langs[0].Name, "rust") {
		return 10, prominencePrimary
	}
	for _, l := range langs {
		if !strings.EqualFold(l.Name, "rust") {
			continue
		}
		switch {
		case l.Percentage >= 30:
			return 7, prominenceProminent
		case l.Percentage >= 10:
			return 3, prominenceSecondary
		default:
			return 1, prominenceMinor
		}
	}
	return -5, prominenceNone
}

func prMergerScore(p *domain.Profile, ev *domain.Evaluation) {
	ev.RawPRCount = p.PRsMerged
	ev.IsPRMerger = p.IsMerger
	if len(p.MergedPRDetails) > 0 {
		ev.MergedPRDetails = append([]domain.MergedPRDetail(nil), p.MergedPRDetails...)
		ev.PRTiers = make([]int, 0, len(p.MergedPRDetails))
		for _, d := range p.MergedPRDetails {
			ev.PRTiers = append(ev.PRTiers, d.Tier)
		}
		highest := ev.PRTiers[0]
		for _, t := range ev.PRTiers[1:] {
			highest = min(highest, t)
		}
		ev.HighestPRTier = &highest
	}
	if !p.IsMerger {
		return
	}
	weighted := 0.0
	for _, d := range p.MergedPRDetails {
		weighted += float64(d.Count) * 2 * TierMultiplier(d.Tier)
	}
	ev.PRMergerScore = min(maxComponentScore, weighted)
}

func crossRepoScore(p *domain.Profile, ev *domain.Evaluation) {
	ev.CrossRepoCount = len(p.ReposAppearedIn)
	weighted := 0.0
	highTier := map[string]struct{}{}
	for _, cr := range p.CrossRepoDetails {
		weighted += TierMultiplier(cr.Tier)
		if cr.Tier <= highTierCutoff {
			highTier[cr.Repo] = struct{}{}
		}
	}
	if ev.CrossRepoCount > 1 {
		weighted *= 1.2
	}
	if len(highTier) > 1 {
		weighted *= 1.5
	}
	ev.CrossRepoScore = min(maxComponentScore, weighted)
}

func opennessScore(p *domain.Profile, ev *domain.Evaluation) {
	score := 0.0
	if len(p.BioKeywords) > 0 {
		score += 6
		for _, kw := range p.BioKeywords {
			ev.ExplicitInterest = append(ev.ExplicitInterest, "Bio: "+kw)
		}
	}
	if len(p.ReadmeKeywords) > 0 {
		score += 5
		for _, kw := range p.ReadmeKeywords {
			ev.ExplicitInterest = append(ev.ExplicitInterest, "README: "+kw)
		}
	}
	if p.RecentActivitySpike {
		score += 3
		ev.ExplicitInterest = append(ev.ExplicitInterest, "Recent activity spike")
	}
	if p.PassionProject {
		score += 2
		ev.ExplicitInterest = append(ev.ExplicitInterest, "Recent passion project activity")
	}
	ev.OpennessScore = min(maxComponentScore, score)
	ev.HasOpennessSignals = score > 0
}

func categorize(ev *domain.Evaluation) string {
	var c string
	switch {
	case ev.RustProminence == prominencePrimary && ev.IsPRMerger && ev.HighestPRTier != nil && *ev.HighestPRTier <= 1:
		c = CategoryRustCore
	case ev.IsPRMerger && ev.RawPRCount >= 3 && ev.CrossRepoCount > 1:
		c = CategoryCoreTarget
	case ev.RustProminence == prominencePrimary && ev.TotalScore > 7:
		c = CategoryStrongRust
	case ev.TotalScore > 8:
		c = CategoryTop
	case (ev.RustProminence == prominencePrimary || ev.RustProminence == prominenceProminent) && ev.CrossRepoCount > 1:
		c = CategoryCrossRust
	case ev.TotalScore > 5:
		c = CategoryPromising
	default:
		c = CategoryRegular
	}
	if ev.HasOpennessSignals {
		c += HiringInterestSuffix
	}
	return c
}

// BaseCategory strips the hiring suffix so reports can group by category
func BaseCategory(category string) string {
	return strings.TrimSuffix(category, HiringInterestSuffix)
}

var categoryOrder = []string{
	CategoryRustCore,
	CategoryCoreTarget,
	CategoryStrongRust,
	CategoryTop,
	CategoryCrossRust,
	CategoryPromising,
	CategoryRegular,
}

// CategoryRank orders categories for reports, most specific first. A hiring
// interest category sorts just ahead of its plain form; unknown ones go last
func CategoryRank(category string) int {
	base := BaseCategory(category)
	i := slices.Index(categoryOrder, base)
	if i < 0 {
		i = len(categoryOrder)
	}
	if base != category {
		return 2 * i
	}
	return 2*i + 1
}
