// Package service builds and scores developer profiles from GitHub data
package service

import (
	"context"

	"ghfinder/internal/adapters/github"
)

// GitHub is the slice of the gateway the analyzer reads through
type GitHub interface {
	User(ctx context.Context, login string) (github.User, github.Result, error)
	Repo(ctx context.Context, fullName string) (github.Repo, github.Result, error)
	RepoContent(ctx context.Context, fullName, path, ref string) (github.Content, github.Result, error)
	UserRepos(ctx context.Context, login string, page, perPage int) ([]github.Repo, github.Result, error)
	RepoLanguages(ctx context.Context, fullName string) (map[string]int64, github.Result, error)
	UserEvents(ctx context.Context, login string, page, perPage int) ([]github.Event, github.Result, error)
}

var _ GitHub = (*github.Client)(nil)
