// Package domain defines the developer profile model shared by the crawler,
// the analyzer, the evaluator, checkpoints and exports
package domain

import (
	"context"
	"slices"
)

// UnknownTier ranks repos whose tier is not known
const UnknownTier = 99

// Repository is one of the user's own top repositories
type Repository struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Stars       int    `json:"stars"`
	Language    string `json:"language,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// LanguageDetail is the byte share of one language over the top repos
type LanguageDetail struct {
	Name       string  `json:"name"`
	Bytes      int64   `json:"bytes"`
	Percentage float64 `json:"percentage"`
}

// MergedPRDetail credits merges performed in one target repository
type MergedPRDetail struct {
	Repo  string `json:"repo"`
	Count int    `json:"pr_count"`
	Tier  int    `json:"tier"`
}

// CrossRepoDetail records the user appearing in a target repository
type CrossRepoDetail struct {
	Repo string `json:"repo"`
	Tier int    `json:"tier"`
}

// Evaluation is the scored outcome for a profile
type Evaluation struct {
	TotalScore         float64          `json:"total_score"`
	Category           string           `json:"category"`
	FollowersScore     float64          `json:"followers_score"`
	ReposScore         float64          `json:"repos_score"`
	AccountAgeScore    float64          `json:"account_age_score"`
	ActivityScore      float64          `json:"activity_score"`
	RustScore          float64          `json:"rust_score"`
	RustProminence     string           `json:"rust_prominence"`
	PRMergerScore      float64          `json:"pr_merger_score"`
	RawPRCount         int              `json:"raw_pr_count"`
	MergedPRDetails    []MergedPRDetail `json:"merged_pr_details,omitempty"`
	PRTiers            []int            `json:"pr_tiers,omitempty"`
	IsPRMerger         bool             `json:"is_pr_merger"`
	HighestPRTier      *int             `json:"highest_pr_tier,omitempty"`
	CrossRepoScore     float64          `json:"cross_repo_score"`
	CrossRepoCount     int              `json:"cross_repo_count"`
	OpennessScore      float64          `json:"openness_score"`
	HasOpennessSignals bool             `json:"has_openness_signals"`
	ExplicitInterest   []string         `json:"explicit_interest_details,omitempty"`
}

// Profile is everything known about one GitHub user. Created once per
// username and extended with cross-repo facts during a run
type Profile struct {
	Username    string `json:"username"`
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Blog        string `json:"blog,omitempty"`
	Location    string `json:"location,omitempty"`
	Email       string `json:"email,omitempty"`
	Hireable    bool   `json:"hireable"`
	Bio         string `json:"bio,omitempty"`
	Twitter     string `json:"twitter_username,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
	PublicGists int    `json:"public_gists"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`

	Languages         []string         `json:"languages"`
	LanguagesDetailed []LanguageDetail `json:"languages_detailed,omitempty"`
	TopRepos          []Repository     `json:"top_repos,omitempty"`

	ReposAppearedIn  []string          `json:"repos_appeared_in"`
	CrossRepoDetails []CrossRepoDetail `json:"cross_repo_details,omitempty"`
	MergedPRDetails  []MergedPRDetail  `json:"prs_merged_details,omitempty"`
	IsMerger         bool              `json:"is_merger"`
	PRsMerged        int               `json:"prs_merged"`

	OpenToWork          bool     `json:"open_to_work"`
	ProfileReadmeFound  bool     `json:"profile_readme_found"`
	BioKeywords         []string `json:"bio_keywords_found"`
	ReadmeKeywords      []string `json:"readme_keywords_found"`
	ExplicitInterest    bool     `json:"explicit_interest_signal"`
	RecentActivitySpike bool     `json:"recent_activity_spike_signal"`
	PassionProject      bool     `json:"passion_project_signal"`
	EmployerName        string   `json:"employer_name,omitempty"`

	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// New returns an empty profile for username with its public URL
func New(username string) *Profile {
	return &Profile{Username: username, ProfileURL: "https://github.com/" + username}
}

// IsMinimal reports a profile with no usable facts. Minimal profiles are
// never stored, saved or loaded
func (p *Profile) IsMinimal() bool {
	if p == nil {
		return true
	}
	return p.CreatedAt == "" && p.Followers == 0 && p.PublicRepos == 0 && p.Bio == "" && p.Name == ""
}

// Score returns the evaluated total or 0
func (p *Profile) Score() float64 {
	if p == nil || p.Evaluation == nil {
		return 0
	}
	return p.Evaluation.TotalScore
}

// Category returns the evaluated category or ""
func (p *Profile) Category() string {
	if p == nil || p.Evaluation == nil {
		return ""
	}
	return p.Evaluation.Category
}

// AddAppearance records that the user showed up in repo at tier. Repeat
// calls are idempotent; a lower tier replaces a higher one
func (p *Profile) AddAppearance(repo string, tier int) {
	if !slices.Contains(p.ReposAppearedIn, repo) {
		p.ReposAppearedIn = append(p.ReposAppearedIn, repo)
	}
	for i := range p.CrossRepoDetails {
		if p.CrossRepoDetails[i].Repo == repo {
			if tier < p.CrossRepoDetails[i].Tier {
				p.CrossRepoDetails[i].Tier = tier
			}
			return
		}
	}
	p.CrossRepoDetails = append(p.CrossRepoDetails, CrossRepoDetail{Repo: repo, Tier: tier})
}

// AttachMerges sets merge stats from the crawl's global merge tables
func (p *Profile) AttachMerges(total int, details []MergedPRDetail) {
	p.PRsMerged = total
	p.IsMerger = total > 0
	p.MergedPRDetails = slices.Clone(details)
}

// HasOpennessSignals reports any hiring-related signal
func (p *Profile) HasOpennessSignals() bool {
	return p.OpenToWork || p.ExplicitInterest || len(p.BioKeywords) > 0 || len(p.ReadmeKeywords) > 0
}

// Analyzer builds a profile for a username. A nil profile without error
// means the account is not a person worth profiling (e.g. an organization)
type Analyzer interface {
	Analyze(ctx context.Context, username string) (*Profile, error)
}

// Evaluator scores a profile in place
type Evaluator interface {
	Evaluate(p *Profile) *Evaluation
}
