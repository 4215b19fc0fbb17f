package pg

import (
	"context"
	"strings"

	"ghfinder/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one statement issued by the export store
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer logs every statement when LogSQL is on, whatever the root level
func Tracer(root logger.Logger) QueryTracer {
	return &zlTracer{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}
	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("pg query")
}

// compact folds each whitespace run into a single space
func compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	gap := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			if !gap {
				b.WriteByte(' ')
			}
			gap = true
		default:
			gap = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
