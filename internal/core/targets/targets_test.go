package targets

import (
	"os"
	"path/filepath"
	"testing"

	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/services/crawl/domain"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_TOMLTiers(t *testing.T) {
	p := write(t, "repos.toml", `
repositories = [
  ["foundry-rs/foundry", { name = "paradigmxyz/reth", limit = 50, label = "reth" }],
  ["alloy-rs/alloy"],
]
`)
	got, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.Target{
		{FullName: "foundry-rs/foundry", Tier: 0},
		{FullName: "paradigmxyz/reth", Tier: 0, Limit: 50, Label: "reth"},
		{FullName: "alloy-rs/alloy", Tier: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d targets: %+v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("target %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if n := CountTiers(got); n != 2 {
		t.Fatalf("tiers = %d", n)
	}
}

func TestLoad_YAMLFlatEntriesAreTheirOwnTier(t *testing.T) {
	p := write(t, "repos.yaml", `
repositories:
  - paradigmxyz/reth
  - name: ethereum/go-ethereum
    limit: 10
  - [bitcoin/bitcoin, paradigmxyz/reth]
`)
	got, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %+v", got)
	}
	if got[1].Tier != 1 || got[1].Limit != 10 || got[2].Tier != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestLoad_JSON(t *testing.T) {
	p := write(t, "repos.json", `{"repositories":[[{"name":"a/b","limit":3}]]}`)
	got, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Limit != 3 {
		t.Fatalf("limit = %d", got[0].Limit)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]struct {
		name, body string
		code       perr.ErrorCode
	}{
		"empty":        {"r.toml", `repositories = []`, perr.ErrorCodeInvalidArgument},
		"missing key":  {"r.toml", `other = 1`, perr.ErrorCodeInvalidArgument},
		"bad name":     {"r.toml", `repositories = [["noslash"]]`, perr.ErrorCodeValidation},
		"negative":     {"r.toml", `repositories = [[{ name = "a/b", limit = -1 }]]`, perr.ErrorCodeValidation},
		"limit string": {"r.toml", `repositories = [[{ name = "a/b", limit = "many" }]]`, perr.ErrorCodeInvalidArgument},
		"wrong type":   {"r.toml", `repositories = [[42]]`, perr.ErrorCodeInvalidArgument},
		"syntax":       {"r.toml", `repositories = [`, perr.ErrorCodeInvalidArgument},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, c.name, c.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !perr.IsCode(err, c.code) {
				t.Fatalf("code = %v, want %v (%v)", perr.CodeOf(err), c.code, err)
			}
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing file err = %v", err)
	}
}

func TestParse_DuplicatesKeepFirst(t *testing.T) {
	got, err := Parse([]any{[]any{"a/b"}, []any{"a/b", "c/d"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Tier != 0 || got[1].FullName != "c/d" {
		t.Fatalf("got %+v", got)
	}
}

func TestWriteSample_RoundTripsEveryFormat(t *testing.T) {
	for _, name := range []string{"repos_config.toml", "targets.yaml", "targets.json"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			p := filepath.Join(dir, name)
			created, err := WriteSample(p)
			if err != nil || !created {
				t.Fatalf("WriteSample = %v, %v", created, err)
			}
			if _, err := os.Stat(filepath.Join(dir, ".env.sample")); err != nil {
				t.Fatalf(".env.sample missing: %v", err)
			}
			got, err := Load(p)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 5 || CountTiers(got) != 3 {
				t.Fatalf("sample loaded as %+v", got)
			}

			created, err = WriteSample(p)
			if err != nil || created {
				t.Fatalf("second WriteSample = %v, %v", created, err)
			}
		})
	}
}
