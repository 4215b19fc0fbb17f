package testkit

import (
	"sync"
	"testing"
)

var seams sync.Mutex

// Swap replaces *target for the rest of the test. Used for clock and path
// variables such as the rate limit reset clock
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	prev := *target
	t.Cleanup(func() { *target = prev })
	*target = replacement
}

// Serial holds a process-wide lock until the test ends. Tests that Swap
// shared package state call it first
func Serial(t *testing.T) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}
