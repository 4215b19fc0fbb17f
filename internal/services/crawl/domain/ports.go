package domain

import (
	"context"
	"time"

	pdomain "ghfinder/internal/services/profiler/domain"
)

// Extras are checkpoint fields that live outside State
type Extras struct {
	RunID          string
	RemainingUsers []string
	RateLimit      any // pool snapshot rendered as rate_limit_info
}

// CheckpointPort persists and restores crawl state
type CheckpointPort interface {
	Save(ctx context.Context, s *State, x Extras) (id string, err error)
	Load(ctx context.Context, id string) (*State, error)
	Latest() (id string, ok bool)
}

// RunPort executes a crawl over targets
type RunPort interface {
	Run(ctx context.Context, targets []Target, opts RunOptions) (RunReport, error)
}

// RunOptions are per run knobs supplied by the caller
type RunOptions struct {
	MaxRepos       int         // 0 = unlimited
	ForceReanalyze bool        // ignore AnalyzedRepos
	Interrupted    func() bool // cooperative stop, checked before each target
}

// RunReport summarises one run. It is returned alongside the terminal error
type RunReport struct {
	Profiles       []*pdomain.Profile `json:"-"`
	Processed      int                `json:"processed"`
	Completed      int                `json:"completed"`
	Skipped        int                `json:"skipped"`
	Aborted        int                `json:"aborted"`
	Interrupted    bool               `json:"interrupted"`
	Exhausted      bool               `json:"exhausted"`
	ResetAt        time.Time          `json:"reset_at,omitzero"`
	LastCheckpoint string             `json:"last_checkpoint,omitempty"`
	Statuses       map[string]string  `json:"statuses,omitempty"`
}
