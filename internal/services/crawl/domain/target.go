package domain

import (
	"fmt"
	"strings"
)

// Target is one repository to crawl. Tier 0 is the highest priority
type Target struct {
	FullName string `json:"name" validate:"required,fullname"`
	Tier     int    `json:"tier" validate:"gte=0"`
	Label    string `json:"label,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0"`
}

// Owner returns the part before the slash
func (t Target) Owner() string {
	o, _, _ := strings.Cut(t.FullName, "/")
	return o
}

// Name returns the part after the slash
func (t Target) Name() string {
	_, n, _ := strings.Cut(t.FullName, "/")
	return n
}

func (t Target) String() string {
	s := fmt.Sprintf("%s (tier %d)", t.FullName, t.Tier)
	if t.Label != "" {
		s += " - " + t.Label
	}
	return s
}

// ValidFullName reports an "owner/name" pair with both halves present
func ValidFullName(s string) bool {
	o, n, ok := strings.Cut(s, "/")
	return ok && o != "" && n != "" && !strings.Contains(n, "/") && strings.TrimSpace(s) == s
}

// TargetStatus is the lifecycle of one target within a run
type TargetStatus int

// Target lifecycle
const (
	StatusPending TargetStatus = iota
	StatusInProgress
	StatusCompleted
	StatusSkipped
	StatusAborted
)

func (s TargetStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusSkipped:
		return "skipped"
	case StatusAborted:
		return "aborted"
	}
	return "unknown"
}
