package domain

import (
	"time"

	"ghfinder/internal/adapters/github/tokens"
	cdomain "ghfinder/internal/services/crawl/domain"
)

// TokensView summarises the credential pool
type TokensView struct {
	Total         int             `json:"total"`
	Available     int             `json:"available"`
	Usable        bool            `json:"usable"`
	EarliestReset time.Time       `json:"earliest_reset,omitzero"`
	Tokens        []tokens.Status `json:"tokens"`
}

// RunRow is one run directory holding checkpoints
type RunRow struct {
	Name        string    `json:"name"`
	Checkpoints int       `json:"checkpoints"`
	Latest      string    `json:"latest"`
	LatestAt    time.Time `json:"latest_at,omitzero"`
}

// CheckpointRow is one checkpoint file of a run
type CheckpointRow struct {
	Name       string    `json:"name"`
	At         time.Time `json:"at,omitzero"`
	Compressed bool      `json:"compressed"`
}

// ProfilesInput selects the ranked profiles of a run
type ProfilesInput struct {
	Run   string `json:"run"   validate:"required,max=64"`
	Limit int    `json:"limit" validate:"gte=0,lte=500"`
}

// ProfileRow is a condensed ranked profile
type ProfileRow struct {
	Rank       int      `json:"rank"`
	Username   string   `json:"username"`
	Name       string   `json:"name,omitempty"`
	Category   string   `json:"category"`
	Score      float64  `json:"total_score"`
	Followers  int      `json:"followers"`
	PRsMerged  int      `json:"prs_merged"`
	Languages  []string `json:"languages,omitempty"`
	OpenToWork bool     `json:"open_to_work"`
	ProfileURL string   `json:"profile_url,omitempty"`
}

// ProfilesView is the ranked profile list read from a run's newest checkpoint
type ProfilesView struct {
	Run        string         `json:"run"`
	Checkpoint string         `json:"checkpoint"`
	Total      int            `json:"total"`
	Counts     cdomain.Counts `json:"counts"`
	Profiles   []ProfileRow   `json:"profiles"`
}
