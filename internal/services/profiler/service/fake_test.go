package service

import (
	"context"
	"net/http"
	"sync"

	"ghfinder/internal/adapters/github"
)

var (
	ok200 = github.Result{Status: http.StatusOK}
	nf404 = github.Result{Status: http.StatusNotFound}
)

// fakeGitHub serves canned documents keyed by login or full name
type fakeGitHub struct {
	mu        sync.Mutex
	users     map[string]github.User
	userErr   error
	repos     map[string]github.Repo
	contents  map[string]string // "owner/name:path" -> decoded text
	userRepos map[string][]github.Repo
	langs     map[string]map[string]int64
	events    map[string][][]github.Event
	reposErr  error
	calls     []string
}

func newFake() *fakeGitHub {
	return &fakeGitHub{
		users:     map[string]github.User{},
		repos:     map[string]github.Repo{},
		contents:  map[string]string{},
		userRepos: map[string][]github.Repo{},
		langs:     map[string]map[string]int64{},
		events:    map[string][][]github.Event{},
	}
}

func (f *fakeGitHub) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeGitHub) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGitHub) User(_ context.Context, login string) (github.User, github.Result, error) {
	f.record("user " + login)
	if f.userErr != nil {
		return github.User{}, github.Result{}, f.userErr
	}
	u, ok := f.users[login]
	if !ok {
		return github.User{}, nf404, nil
	}
	return u, ok200, nil
}

func (f *fakeGitHub) Repo(_ context.Context, full string) (github.Repo, github.Result, error) {
	f.record("repo " + full)
	r, ok := f.repos[full]
	if !ok {
		return github.Repo{}, nf404, nil
	}
	return r, ok200, nil
}

func (f *fakeGitHub) RepoContent(_ context.Context, full, path, ref string) (github.Content, github.Result, error) {
	f.record("content " + full + ":" + path + "@" + ref)
	text, ok := f.contents[full+":"+path]
	if !ok {
		return github.Content{}, nf404, nil
	}
	return github.Content{Type: "file", Name: path, Decoded: []byte(text)}, ok200, nil
}

func (f *fakeGitHub) UserRepos(_ context.Context, login string, _, _ int) ([]github.Repo, github.Result, error) {
	f.record("repos " + login)
	if f.reposErr != nil {
		return nil, github.Result{}, f.reposErr
	}
	return f.userRepos[login], ok200, nil
}

func (f *fakeGitHub) RepoLanguages(_ context.Context, full string) (map[string]int64, github.Result, error) {
	f.record("languages " + full)
	l, ok := f.langs[full]
	if !ok {
		return nil, nf404, nil
	}
	return l, ok200, nil
}

func (f *fakeGitHub) UserEvents(_ context.Context, login string, page, _ int) ([]github.Event, github.Result, error) {
	f.record("events " + login)
	pages := f.events[login]
	if page > len(pages) {
		return nil, ok200, nil
	}
	return pages[page-1], ok200, nil
}
