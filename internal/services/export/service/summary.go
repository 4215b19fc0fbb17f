package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	pdomain "ghfinder/internal/services/profiler/domain"
	psvc "ghfinder/internal/services/profiler/service"
)

var (
	heading = color.New(color.Bold)
	hiring  = color.New(color.FgYellow, color.Bold)
	plain   = color.New(color.FgCyan, color.Bold)
)

// Summary prints the top profiles of every category as tables
func (s *Svc) Summary(w io.Writer, ps []*pdomain.Profile) {
	if len(ps) == 0 {
		fmt.Fprintln(w, "No profiles to summarize")
		return
	}
	heading.Fprintf(w, "\nProfile Summary\n")
	fmt.Fprintf(w, "Total profiles: %s\n", humanize.Comma(int64(len(ps))))

	for _, c := range byCategory(ps) {
		hdr := plain
		if c.Name != psvc.BaseCategory(c.Name) {
			hdr = hiring
		}
		hdr.Fprintf(w, "\n%s (%d profiles)\n", c.Name, len(c.Profiles))

		tbl := table.NewWriter()
		tbl.SetOutputMirror(w)
		tbl.SetStyle(table.StyleLight)
		tbl.Style().Options.DrawBorder = false
		tbl.Style().Options.SeparateColumns = false
		tbl.AppendHeader(table.Row{"#", "Developer", "Score", "Followers", "PRs", "Signal", "Profile"})
		for i, p := range head(c.Profiles, s.cfg.SummaryPerCategory) {
			prs := ""
			if p.IsMerger && p.PRsMerged > 0 {
				prs = humanize.Comma(int64(p.PRsMerged))
			}
			tbl.AppendRow(table.Row{
				i + 1, displayName(p), fmt.Sprintf("%.1f", p.Score()),
				humanize.Comma(int64(p.Followers)), prs, openness(p), p.ProfileURL,
			})
		}
		if extra := len(c.Profiles) - s.cfg.SummaryPerCategory; extra > 0 {
			tbl.AppendFooter(table.Row{"", fmt.Sprintf("+%d more", extra)})
		}
		tbl.Render()
	}
}

// openness shows the first hiring signal and how many more there are
func openness(p *pdomain.Profile) string {
	ev := p.Evaluation
	if ev == nil || !ev.HasOpennessSignals || len(ev.ExplicitInterest) == 0 {
		return ""
	}
	s := ev.ExplicitInterest[0]
	if n := len(ev.ExplicitInterest) - 1; n > 0 {
		s += fmt.Sprintf(" (+%d more)", n)
	}
	return strings.TrimSpace(s)
}
