package service

import (
	"fmt"
	"slices"
	"strings"

	"ghfinder/internal/services/crawl/domain"
	pdomain "ghfinder/internal/services/profiler/domain"
	psvc "ghfinder/internal/services/profiler/service"
)

const rule = "--------------------------------------------------------------------------------"

// category is one report section
type category struct {
	Name     string
	Profiles []*pdomain.Profile
}

// byCategory groups evaluated profiles, sections in report order and each
// section by score
func byCategory(ps []*pdomain.Profile) []category {
	idx := map[string]int{}
	var out []category
	for _, p := range ps {
		if p == nil || p.Evaluation == nil {
			continue
		}
		c := p.Category()
		i, ok := idx[c]
		if !ok {
			i = len(out)
			idx[c] = i
			out = append(out, category{Name: c})
		}
		out[i].Profiles = append(out[i].Profiles, p)
	}
	slices.SortStableFunc(out, func(a, b category) int {
		return psvc.CategoryRank(a.Name) - psvc.CategoryRank(b.Name)
	})
	for i := range out {
		domain.SortProfiles(out[i].Profiles)
	}
	return out
}

func displayName(p *pdomain.Profile) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func head[T any](xs []T, n int) []T { return xs[:min(n, len(xs))] }

// Analysis renders every profile, ranked by score, as a markdown report for
// review with a language model
func (s *Svc) Analysis(ps []*pdomain.Profile) string {
	if len(ps) == 0 {
		return "No profiles available for analysis."
	}
	ranked := slices.Clone(ps)
	domain.SortProfiles(ranked)

	var b strings.Builder
	fmt.Fprintf(&b, "# GitHub Developer Analysis Report\n\nTotal profiles analyzed: %d\n\n%s\n\n", len(ranked), rule)
	for rank, p := range ranked {
		fmt.Fprintf(&b, "## Rank #%d: %s (@%s)\n\n", rank+1, displayName(p), p.Username)
		fmt.Fprintf(&b, "**Profile URL**: %s\n", p.ProfileURL)
		field(&b, "Location", p.Location)
		field(&b, "Company", p.Company)
		field(&b, "Email", p.Email)
		field(&b, "Bio", truncate(p.Bio, 200))

		created := "Unknown"
		if len(p.CreatedAt) >= 10 {
			created = p.CreatedAt[:10]
		}
		fmt.Fprintf(&b, "\n### GitHub Statistics\n- **Followers**: %d\n- **Public Repos**: %d\n- **Account Age**: %s\n",
			p.Followers, p.PublicRepos, created)

		if len(p.LanguagesDetailed) > 0 {
			b.WriteString("\n### Programming Languages\n")
			for _, l := range head(p.LanguagesDetailed, 5) {
				fmt.Fprintf(&b, "- **%s**: %.1f%%\n", l.Name, l.Percentage)
			}
		}
		if p.IsMerger && len(p.MergedPRDetails) > 0 {
			fmt.Fprintf(&b, "\n### Pull Request Contributions\nTotal PRs merged: %d\n", p.PRsMerged)
			for _, d := range head(p.MergedPRDetails, 5) {
				fmt.Fprintf(&b, "- **%s** (Tier %d): %d PRs\n", d.Repo, d.Tier, d.Count)
			}
		}
		if len(p.CrossRepoDetails) > 0 {
			fmt.Fprintf(&b, "\n### Cross-Repository Activity\nAppeared in %d target repositories:\n", len(p.CrossRepoDetails))
			for _, c := range head(p.CrossRepoDetails, 5) {
				fmt.Fprintf(&b, "- %s (Tier %d)\n", c.Repo, c.Tier)
			}
		}
		if len(p.TopRepos) > 0 {
			b.WriteString("\n### Notable Personal Repositories\n")
			for _, r := range head(p.TopRepos, 3) {
				lang := r.Language
				if lang == "" {
					lang = "No language"
				}
				fmt.Fprintf(&b, "- **%s**: %d stars (%s)\n", r.Name, r.Stars, lang)
				if r.Description != "" {
					fmt.Fprintf(&b, "  - %s\n", truncate(r.Description, 100))
				}
			}
		}
		if ev := p.Evaluation; ev != nil {
			fmt.Fprintf(&b, "\n### Evaluation Results\n- **Category**: %s\n- **Total Score**: %.2f/10\n- **Rust Prominence**: %s\n- **Is PR Merger**: %s\n",
				ev.Category, ev.TotalScore, ev.RustProminence, yesNo(ev.IsPRMerger))
			if ev.HighestPRTier != nil {
				fmt.Fprintf(&b, "- **Highest PR Tier**: %d\n", *ev.HighestPRTier)
			}
			signals(&b, p)
		}
		fmt.Fprintf(&b, "\n%s\n\n", rule)
	}

	b.WriteString(`
## Summary for Analysis

Please analyze these developer profiles considering:
1. **Technical Fit**: Rust expertise, EVM/blockchain experience, systems programming
2. **Contribution Quality**: PR merger status, tier of repositories contributed to
3. **Availability Signals**: Job search indicators, recent activity patterns
4. **Cultural Fit**: Types of projects, contribution patterns, communication style

Provide your top 10 recommendations with reasoning for each.`)
	return b.String()
}

func signals(b *strings.Builder, p *pdomain.Profile) {
	if p.ExplicitInterest {
		b.WriteString("\n### Job Search Signals\n")
		if len(p.BioKeywords) > 0 {
			fmt.Fprintf(b, "- Bio keywords: %s\n", strings.Join(p.BioKeywords, ", "))
		}
		if len(p.ReadmeKeywords) > 0 {
			fmt.Fprintf(b, "- README keywords: %s\n", strings.Join(p.ReadmeKeywords, ", "))
		}
	}
	if p.RecentActivitySpike {
		b.WriteString("- Recent activity spike detected\n")
	}
	if p.PassionProject {
		b.WriteString("- Active passion project detected\n")
	}
}

func field(b *strings.Builder, label, v string) {
	if v != "" {
		fmt.Fprintf(b, "**%s**: %s\n", label, v)
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

var tierLabels = map[int]string{
	1: "Tier 1 - Core Contributor",
	2: "Tier 2 - Key Contributor",
	3: "Tier 3 - Regular Contributor",
	4: "Tier 4 - Occasional Contributor",
}

// Prompt renders the top profiles of each category as a hiring review
// prompt. It is empty when no profile was evaluated
func (s *Svc) Prompt(ps []*pdomain.Profile) string {
	cats := byCategory(ps)
	if len(cats) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# GitHub Developer Analysis\n\nI've analyzed %d GitHub profiles and identified promising developers.\n", len(ps))
	b.WriteString("Please review these candidates and help determine who might be good potential hires:\n\n")

	for _, c := range cats {
		fmt.Fprintf(&b, "## %s (%d developers)\n\n", c.Name, len(c.Profiles))
		for _, p := range head(c.Profiles, s.cfg.PromptPerCategory) {
			ev := p.Evaluation
			fmt.Fprintf(&b, "### %s (Score: %.1f)\n- **GitHub Profile**: https://github.com/%s\n", displayName(p), ev.TotalScore, p.Username)
			bullet(&b, "Location", p.Location)
			bullet(&b, "Company", p.Company)
			bullet(&b, "Email", p.Email)
			bullet(&b, "Blog/Website", p.Blog)
			if p.Twitter != "" {
				bullet(&b, "Twitter", "@"+p.Twitter)
			}
			fmt.Fprintf(&b, "- **GitHub Stats**: %d followers, %d repositories\n", p.Followers, p.PublicRepos)

			if ev.HasOpennessSignals {
				var sig []string
				if p.ExplicitInterest {
					sig = append(sig, "Explicitly open to new opportunities")
				}
				if p.RecentActivitySpike {
					sig = append(sig, "Recent activity spike (potential job seeking)")
				}
				sig = append(sig, ev.ExplicitInterest...)
				bullet(&b, "Hiring Signals", strings.Join(sig, ", "))
			}
			if p.IsMerger {
				line := fmt.Sprintf("Merged %d PRs", p.PRsMerged)
				if ev.HighestPRTier != nil {
					if l, ok := tierLabels[*ev.HighestPRTier]; ok {
						line += " (" + l + ")"
					}
				}
				bullet(&b, "Pull Requests", line)
			}
			if len(p.Languages) > 0 {
				bullet(&b, "Top Languages", strings.Join(head(p.Languages, 5), ", "))
			}
			bullet(&b, "Bio", p.Bio)
			if len(p.TopRepos) > 0 {
				b.WriteString("- **Notable Repositories**:\n")
				for _, r := range head(p.TopRepos, 3) {
					desc := r.Description
					if desc == "" {
						desc = "No description"
					}
					stars := ""
					if r.Stars > 0 {
						stars = fmt.Sprintf(" %d stars", r.Stars)
					}
					fmt.Fprintf(&b, "  - [%s](%s)%s - %s\n", r.Name, r.URL, stars, desc)
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(`
## Request for Analysis

Based on these profiles, please help me:

1. Identify the most promising candidates for technical roles
2. Highlight any candidates who have explicitly shown interest in new opportunities
3. Point out any notable skills or accomplishments that stand out
4. Recommend specific candidates to prioritize for outreach
`)
	return b.String()
}

func bullet(b *strings.Builder, label, v string) {
	if v != "" {
		fmt.Fprintf(b, "- **%s**: %s\n", label, v)
	}
}
