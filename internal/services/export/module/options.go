package module

import (
	"time"

	"ghfinder/internal/platform/config"
)

// Options controls exports. Values may also be read from env
type Options struct {
	SummaryPerCategory int
	PromptPerCategory  int
	Migrate            bool          // apply migrations when a database is configured
	StatementTimeout   time.Duration // sink statement limit
	SinkAttempts       int           // sink tx attempts on transient conflicts
}

// FromConfig reads options using the GHFINDER_EXPORT_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("GHFINDER_EXPORT_")
	return Options{
		SummaryPerCategory: c.MayInt("SUMMARY_TOP", 10),
		PromptPerCategory:  c.MayInt("PROMPT_TOP", 5),
		Migrate:            c.MayBool("MIGRATE", true),
		StatementTimeout:   c.MayDuration("STATEMENT_TIMEOUT", 30*time.Second),
		SinkAttempts:       c.MayInt("SINK_ATTEMPTS", 3),
	}
}
