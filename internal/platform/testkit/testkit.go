// Package testkit holds assertions shared by the platform tests
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MustPanic fails t unless fn panics. Config's Must* accessors rely on it
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	if recovered(fn) == nil {
		t.Fatalf("expected panic, got none")
	}
}

// MustNotPanic fails t if fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	if r := recovered(fn); r != nil {
		t.Fatalf("unexpected panic: %v", r)
	}
}

func recovered(fn func()) (r any) {
	defer func() { r = recover() }()
	fn()
	return nil
}

// MustContain fails t when needle is missing from out. Long log captures are
// dumped to a temp file rather than the test output
func MustContain(t *testing.T, out, needle string) {
	t.Helper()
	if strings.Contains(out, needle) {
		return
	}
	dump := filepath.Join(t.TempDir(), "captured.log")
	_ = os.WriteFile(dump, []byte(out), 0o600)
	t.Fatalf("output is missing %q, captured output in %s", needle, dump)
}
