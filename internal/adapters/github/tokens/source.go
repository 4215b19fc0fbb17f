package tokens

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"ghfinder/internal/platform/config"
	perr "ghfinder/internal/platform/errors"
)

// numberedMax is the highest GITHUB_TOKEN_N suffix we look at
const numberedMax = 9

// FromEnv collects tokens from GITHUB_TOKENS (csv), GITHUB_TOKEN and
// GITHUB_TOKEN_1..9, in that order
func FromEnv(cfg config.Conf) []string {
	var out []string
	out = append(out, cfg.MayCSV("GITHUB_TOKENS", nil)...)
	out = append(out, cfg.MayString("GITHUB_TOKEN", ""))
	for i := 1; i <= numberedMax; i++ {
		out = append(out, cfg.MayString(fmt.Sprintf("GITHUB_TOKEN_%d", i), ""))
	}
	return Clean(out)
}

// ReadFile loads one token per line; blank lines and # comments are skipped
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "open tokens file %s", path)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads the tokens file format from r
func Parse(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "read tokens")
	}
	return Clean(out), nil
}

// Clean trims, drops short values and dedupes while keeping first-seen order
func Clean(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if len(t) < MinLength {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
