package repo

import (
	"context"
	"embed"
	"io/fs"
	"slices"
	"strings"

	"ghfinder/internal/modkit/repokit"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/logger"
	"ghfinder/internal/platform/store"
)

// Migrations holds the export schema
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Migrate applies every .sql file under migrations/ not yet recorded in
// schema_migrations, in name order, inside one transaction
func Migrate(ctx context.Context, db repokit.TxRunner, fsys fs.FS) error {
	sub, err := fs.Sub(fsys, "migrations")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "open migrations")
	}
	entries, err := fs.ReadDir(sub, ".")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "read migrations")
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	log := logger.Named("migrate")
	return db.Tx(ctx, func(q repokit.Queryer) error {
		if _, err := q.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
			return perr.Wrap(err, perr.ErrorCodeDB, "create schema_migrations")
		}
		applied, err := store.Many(ctx, q, func(r store.Row) (string, error) {
			var v string
			return v, r.Scan(&v)
		}, `SELECT version FROM schema_migrations`)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeDB, "load applied migrations")
		}

		for _, name := range names {
			if slices.Contains(applied, name) {
				continue
			}
			body, err := fs.ReadFile(sub, name)
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeDB, "read migration %s", name)
			}
			log.Info().Str("file", name).Msg("applying migration")
			if _, err := q.Exec(ctx, string(body)); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeDB, "apply migration %s", name)
			}
			if _, err := q.Exec(ctx,
				`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, name,
			); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeDB, "record migration %s", name)
			}
		}
		return nil
	})
}
