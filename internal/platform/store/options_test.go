package store

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithLogger_ReplacesStoreLogger(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer
	s := &Store{Log: zerolog.Nop()}

	if err := WithLogger(zerolog.New(&first))(s); err != nil {
		t.Fatalf("WithLogger: %v", err)
	}
	s.Log.Info().Str("table", "profiles").Msg("export ready")
	if !strings.Contains(first.String(), `"table":"profiles"`) {
		t.Fatalf("log not routed to option logger: %q", first.String())
	}

	if err := WithLogger(zerolog.New(&second))(s); err != nil {
		t.Fatalf("WithLogger: %v", err)
	}
	s.Log.Info().Msg("export done")
	if strings.Contains(first.String(), "export done") || !strings.Contains(second.String(), "export done") {
		t.Fatalf("later option must win: first=%q second=%q", first.String(), second.String())
	}
}
