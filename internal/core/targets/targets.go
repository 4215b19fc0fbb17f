// Package targets loads the tiered repository list a crawl runs over.
// The file is TOML, YAML or JSON, chosen by extension:
//
//	repositories = [
//	  ["foundry-rs/foundry", { name = "paradigmxyz/reth", limit = 50, label = "reth" }],
//	  ["alloy-rs/alloy"],
//	]
//
// The outer list index is the tier. A top level entry that is not a list
// forms a tier of its own
package targets

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/logger"
	"ghfinder/internal/platform/net/http/bind"
	"ghfinder/internal/services/crawl/domain"
)

// DefaultPath is the targets file read when none is given
const DefaultPath = "repos_config.toml"

const reposKey = "repositories"

// Load reads and validates the targets file at path. Duplicate repositories
// keep their first, highest priority, occurrence
func Load(path string) ([]domain.Target, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "targets file %s", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read targets file %s", path)
	}
	return Parse(v.Get(reposKey))
}

// Parse flattens the raw repositories value into targets
func Parse(raw any) ([]domain.Target, error) {
	tiers, ok := raw.([]any)
	if !ok || len(tiers) == 0 {
		return nil, perr.InvalidArgf("no repositories defined")
	}

	log := logger.Named("targets")
	seen := map[string]struct{}{}
	var out []domain.Target
	for tier, entries := range tiers {
		list, ok := entries.([]any)
		if !ok {
			list = []any{entries}
		}
		for i, e := range list {
			t, err := entry(e, tier)
			if err != nil {
				return nil, perr.WithField(err, fmt.Sprintf("%s[%d][%d]", reposKey, tier, i))
			}
			if _, dup := seen[t.FullName]; dup {
				log.Warn().Str("repo", t.FullName).Int("tier", tier).Msg("duplicate target ignored")
				continue
			}
			seen[t.FullName] = struct{}{}
			out = append(out, t)
		}
	}
	return out, nil
}

func entry(e any, tier int) (domain.Target, error) {
	t := domain.Target{Tier: tier}
	switch v := e.(type) {
	case string:
		t.FullName = strings.TrimSpace(v)
	case map[string]any:
		t.FullName = strings.TrimSpace(cast.ToString(v["name"]))
		t.Label = cast.ToString(v["label"])
		if l, ok := v["limit"]; ok {
			n, err := cast.ToIntE(l)
			if err != nil {
				return t, perr.InvalidArgf("limit %v is not a number", l)
			}
			t.Limit = n
		}
	default:
		return t, perr.InvalidArgf("unsupported entry %T", e)
	}
	if err := bind.Get().Validator.Struct(t); err != nil {
		_, msg := bind.ValidationFieldAndMessage(err)
		return t, perr.Newf(perr.ErrorCodeValidation, "%q: %s", t.FullName, msg)
	}
	return t, nil
}

// CountTiers returns the number of distinct tiers in ts
func CountTiers(ts []domain.Target) int {
	seen := map[int]struct{}{}
	for _, t := range ts {
		seen[t.Tier] = struct{}{}
	}
	return len(seen)
}
