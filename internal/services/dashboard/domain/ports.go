// Package domain holds the read-only views served by the dashboard
package domain

import (
	"context"
	"time"

	"ghfinder/internal/adapters/github/tokens"
	cdomain "ghfinder/internal/services/crawl/domain"
)

// TokenSource is the credential pool as seen by the dashboard
type TokenSource interface {
	Snapshot() []tokens.Status
	EarliestReset() time.Time
}

// RunStore reads checkpoints across runs
type RunStore interface {
	Runs() []string
	List(run string) []string
	LatestForRun(run string) (string, bool)
	Load(ctx context.Context, id string) (*cdomain.State, error)
}

// ServicePort is consumed by handlers
type ServicePort interface {
	Tokens(ctx context.Context) (TokensView, error)
	Runs(ctx context.Context) ([]RunRow, error)
	Checkpoints(ctx context.Context, run string) ([]CheckpointRow, error)
	Profiles(ctx context.Context, in ProfilesInput) (ProfilesView, error)
}
