package targets

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	perr "ghfinder/internal/platform/errors"
)

type sampleEntry struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Limit int    `json:"limit,omitempty" yaml:"limit,omitempty" toml:"limit,omitempty"`
	Label string `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
}

type sampleFile struct {
	Repositories [][]sampleEntry `json:"repositories" yaml:"repositories" toml:"repositories"`
}

var sample = sampleFile{Repositories: [][]sampleEntry{
	{
		{Name: "foundry-rs/foundry"},
		{Name: "paradigmxyz/reth", Limit: 50, Label: "reth"},
	},
	{
		{Name: "ethereum/go-ethereum", Limit: 10, Label: "geth"},
		{Name: "bluealloy/revm"},
	},
	{
		{Name: "bitcoin/bitcoin", Limit: 15, Label: "bitcoin-core"},
	},
}}

const envSample = `# GitHub API token (create one at https://github.com/settings/tokens)
# Copy this file to .env and add your token

# Single token
GITHUB_TOKEN=your_github_token_here

# OR multiple tokens (comma-separated)
GITHUB_TOKENS=token1,token2,token3

# OR numbered tokens
# GITHUB_TOKEN_1=
# GITHUB_TOKEN_2=
`

// WriteSample creates a sample targets file at path, formatted by its
// extension, and a .env.sample next to it. It reports false when path
// already exists
func WriteSample(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, perr.Wrapf(err, perr.ErrorCodeUnknown, "stat %s", path)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(sample)
	case ".json":
		data, err = json.MarshalIndent(sample, "", "  ")
	default:
		data, err = yaml.Marshal(sample)
	}
	if err != nil {
		return false, perr.Wrap(err, perr.ErrorCodeUnknown, "encode sample targets")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return false, perr.Wrapf(err, perr.ErrorCodeUnknown, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeUnknown, "write %s", path)
	}
	env := filepath.Join(filepath.Dir(path), ".env.sample")
	if err := os.WriteFile(env, []byte(envSample), 0o644); err != nil {
		return true, perr.Wrapf(err, perr.ErrorCodeUnknown, "write %s", env)
	}
	return true, nil
}
