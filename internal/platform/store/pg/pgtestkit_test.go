package pg

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTestDB runs fn against a client for dsn; tune may adjust the pool first
func WithTestDB(t *testing.T, dsn string, tune func(*pgxpool.Config), fn func(p *PG)) {
	t.Helper()
	client, err := Open(context.Background(), Config{URL: dsn}, nil, tune)
	if err != nil {
		t.Fatalf("open %s: %v", dsn, err)
	}
	t.Cleanup(client.Close)
	fn(client)
}

// AcquireConn pins one session for the test, for TEMP tables and SET LOCAL
func AcquireConn(t *testing.T, p *PG, ctx context.Context) *pgxpool.Conn {
	t.Helper()
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	t.Cleanup(conn.Release)
	return conn
}
