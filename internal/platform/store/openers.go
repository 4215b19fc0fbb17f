package store

import (
	"context"
	"fmt"
	"time"

	"ghfinder/internal/platform/store/pg"
)

const (
	backoffStart   = 150 * time.Millisecond
	backoffCeiling = 2 * time.Second
)

// openPG opens pg, pings it with backoff and wraps it with the sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	pc := cfg.PG.withDefaults()

	var tracer pg.QueryTracer
	if pc.LogSQL {
		tracer = pg.Tracer(s.Log)
	}
	p, err := pg.Open(ctx, pg.Config{
		URL:      pc.URL,
		MaxConns: pc.MaxConns,
		SlowMs:   pc.SlowQueryMs,
		AppName:  cfg.AppName,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	var lastErr error
	backoff := backoffStart
	for attempt := 1; attempt <= pc.ConnectRetries; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, pc.PingTimeout)
		lastErr = p.Pool.Ping(pctx)
		cancel()
		if lastErr == nil {
			return newPGAdapter(p), nil
		}
		s.Log.Warn().Err(lastErr).Int("attempt", attempt).Msg("postgres not ready")
		if attempt == pc.ConnectRetries {
			break
		}
		select {
		case <-ctx.Done():
			p.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffCeiling)
	}

	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", pc.ConnectRetries, lastErr)
}
