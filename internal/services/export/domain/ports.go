// Package domain defines the export ports and the stored profile row
package domain

import (
	"context"
	"io"
	"time"

	pdomain "ghfinder/internal/services/profiler/domain"
)

// ProfileRow is a profile as stored by the database sink
type ProfileRow struct {
	Username   string    `json:"username"`
	Name       string    `json:"name,omitempty"`
	Category   string    `json:"category"`
	TotalScore float64   `json:"total_score"`
	Followers  int       `json:"followers"`
	PRsMerged  int       `json:"prs_merged"`
	RunID      string    `json:"run_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Repo persists profiles and their merge details
type Repo interface {
	UpsertProfiles(ctx context.Context, runID string, ps []*pdomain.Profile) (int, error)
	TopProfiles(ctx context.Context, limit int) ([]ProfileRow, error)
	Count(ctx context.Context) (int, error)
}

// SinkPort pushes a run's profiles to the configured database
type SinkPort interface {
	Sink(ctx context.Context, runID string, ps []*pdomain.Profile) (int, error)
}

// ReportPort renders run results for people and tools
type ReportPort interface {
	WriteProfiles(path string, ps []*pdomain.Profile) error
	WritePrompt(path string, ps []*pdomain.Profile) error
	WriteAnalysis(mode string, ps []*pdomain.Profile, console io.Writer) (string, error)
	Summary(w io.Writer, ps []*pdomain.Profile)
}
