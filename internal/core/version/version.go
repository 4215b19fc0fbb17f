// Package version reports build information set through -ldflags
package version

import "fmt"

// BuildInfo holds version information about the binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. Values are set at build time:
//
//	-ldflags "-X ghfinder/internal/core/version.version=v0.1.0
//	          -X ghfinder/internal/core/version.commit=abcd
//	          -X ghfinder/internal/core/version.date=2025-10-19"
func Info() BuildInfo {
	return BuildInfo{
		Service: "ghfinder",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String formats the build for --version output
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", b.Service, b.Version, b.Commit, b.Date)
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
