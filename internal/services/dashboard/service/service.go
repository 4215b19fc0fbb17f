// Package service builds the dashboard views from the token pool and the
// checkpoint store. Every view is read-only
package service

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"ghfinder/internal/adapters/github/tokens"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/net/http/bind"
	crepo "ghfinder/internal/services/crawl/repo"
	"ghfinder/internal/services/dashboard/domain"
)

// DefaultLimit is the profile count returned when the caller gives none
const DefaultLimit = 50

var runNameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Service defines the dashboard service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the dashboard views
type Svc struct {
	pool  domain.TokenSource
	store domain.RunStore
}

var _ Service = (*Svc)(nil)

// New constructs the dashboard service. pool may be nil when no tokens are
// configured, store must not be
func New(pool domain.TokenSource, store domain.RunStore) *Svc {
	if store == nil {
		panic("dashboard.Service requires a non nil RunStore")
	}
	return &Svc{pool: pool, store: store}
}

// Tokens returns the pool snapshot with masked ids
func (s *Svc) Tokens(_ context.Context) (domain.TokensView, error) {
	if s.pool == nil {
		return domain.TokensView{Tokens: []tokens.Status{}}, nil
	}
	rows := s.pool.Snapshot()
	v := domain.TokensView{
		Total:         len(rows),
		Usable:        tokens.AnyAvailable(rows),
		Tokens:        rows,
		EarliestReset: s.pool.EarliestReset(),
	}
	for _, r := range rows {
		if !r.Exhausted {
			v.Available++
		}
	}
	return v, nil
}

// Runs lists run directories holding checkpoints, newest first
func (s *Svc) Runs(_ context.Context) ([]domain.RunRow, error) {
	runs := s.store.Runs()
	out := make([]domain.RunRow, 0, len(runs))
	for _, run := range runs {
		names := s.store.List(run)
		row := domain.RunRow{Name: run, Checkpoints: len(names)}
		if len(names) > 0 {
			row.Latest = names[0]
			row.LatestAt, _ = crepo.StampOf(names[0])
		}
		out = append(out, row)
	}
	return out, nil
}

// Checkpoints lists the checkpoint files of run, newest first
func (s *Svc) Checkpoints(_ context.Context, run string) ([]domain.CheckpointRow, error) {
	if err := checkRun(run); err != nil {
		return nil, err
	}
	names := s.store.List(run)
	if len(names) == 0 {
		return nil, perr.NotFoundf("run %s has no checkpoints", run)
	}
	out := make([]domain.CheckpointRow, 0, len(names))
	for _, n := range names {
		at, _ := crepo.StampOf(n)
		out = append(out, domain.CheckpointRow{Name: n, At: at, Compressed: strings.HasSuffix(n, ".lz4")})
	}
	return out, nil
}

// Profiles ranks the profiles stored in the newest checkpoint of in.Run
func (s *Svc) Profiles(ctx context.Context, in domain.ProfilesInput) (domain.ProfilesView, error) {
	if err := bind.Get().Validator.Struct(in); err != nil {
		field, msg := bind.ValidationFieldAndMessage(err)
		return domain.ProfilesView{}, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
	}
	if err := checkRun(in.Run); err != nil {
		return domain.ProfilesView{}, err
	}
	limit := in.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	path, ok := s.store.LatestForRun(in.Run)
	if !ok {
		return domain.ProfilesView{}, perr.NotFoundf("run %s has no checkpoints", in.Run)
	}
	st, err := s.store.Load(ctx, path)
	if err != nil {
		return domain.ProfilesView{}, err
	}

	ps := st.Profiles()
	view := domain.ProfilesView{
		Run:        in.Run,
		Checkpoint: filepath.Base(path),
		Total:      len(ps),
		Counts:     st.Counts(),
		Profiles:   make([]domain.ProfileRow, 0, min(limit, len(ps))),
	}
	for i, p := range ps {
		if i == limit {
			break
		}
		view.Profiles = append(view.Profiles, domain.ProfileRow{
			Rank:       i + 1,
			Username:   p.Username,
			Name:       p.Name,
			Category:   p.Category(),
			Score:      p.Score(),
			Followers:  p.Followers,
			PRsMerged:  p.PRsMerged,
			Languages:  p.Languages,
			OpenToWork: p.OpenToWork,
			ProfileURL: p.ProfileURL,
		})
	}
	return view, nil
}

func checkRun(run string) error {
	if !runNameRE.MatchString(run) || strings.Contains(run, "..") {
		return perr.WithField(perr.InvalidArgf("invalid run name %q", run), "run")
	}
	return nil
}
