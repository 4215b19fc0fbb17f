package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"ghfinder/internal/adapters/github"
	crepo "ghfinder/internal/services/crawl/repo"
)

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	return tbl
}

// checkTokens queries every token and exits 0 when any has quota
func checkTokens(ctx context.Context, w io.Writer, gh *github.Client) error {
	checks, err := gh.CheckTokens(ctx)
	printChecks(w, checks)
	if err != nil {
		return exitWith(exitError, err)
	}
	if !github.AnyQuota(checks) {
		fail.Fprintln(w, "No token has quota left.")
		return exitWith(exitError, nil)
	}
	good.Fprintln(w, "At least one token has quota.")
	return nil
}

func printChecks(w io.Writer, checks []github.TokenCheck) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"#", "Token", "Status", "Remaining", "Resets"})
	for _, c := range checks {
		status, remaining, resets := "ok", "", ""
		switch {
		case !c.Valid:
			status = "invalid: " + c.Error
		case c.Remaining == 0:
			status = "exhausted"
		}
		if c.Valid {
			remaining = humanize.Comma(int64(c.Remaining)) + " / " + humanize.Comma(int64(c.Limit))
		}
		if !c.ResetAt.IsZero() {
			resets = humanize.Time(c.ResetAt)
		}
		tbl.AppendRow(table.Row{c.Index, c.ID, status, remaining, resets})
	}
	tbl.Render()
}

// listCheckpoints prints the checkpoints of every run, newest first
func listCheckpoints(w io.Writer, store *crepo.Checkpoints) error {
	runs := store.Runs()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No checkpoints found")
		return nil
	}
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Run", "Checkpoint", "Saved"})
	for _, run := range runs {
		for _, name := range store.List(run) {
			saved := ""
			if at, ok := crepo.StampOf(name); ok {
				saved = humanize.Time(at)
			}
			tbl.AppendRow(table.Row{run, name, saved})
		}
	}
	tbl.Render()
	fmt.Fprintf(w, "Resume with: ghfinder --resume latest | <run> | <checkpoint>\n")
	return nil
}
