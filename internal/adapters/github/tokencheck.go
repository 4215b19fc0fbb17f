package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"ghfinder/internal/adapters/github/tokens"
	perr "ghfinder/internal/platform/errors"
)

const invalidTokenHold = 24 * time.Hour

// TokenCheck is the rate limit answer for one pool token
type TokenCheck struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Valid     bool      `json:"valid"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// HasQuota reports a valid token with requests left
func (t TokenCheck) HasQuota() bool { return t.Valid && t.Remaining > 0 }

// RateLimitFor queries /rate_limit with a specific token, bypassing rotation.
// The endpoint does not count against the core quota
func (c *Client) RateLimitFor(ctx context.Context, token string) (RateLimit, int, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return RateLimit{}, 0, err
	}
	defer c.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/rate_limit", nil)
	if err != nil {
		return RateLimit{}, 0, perr.Wrapf(err, perr.ErrorCodeUnknown, "github new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return RateLimit{}, 0, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github rate limit check failed")
	}
	defer func() { _ = drainAndClose(resp.Body) }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return RateLimit{}, resp.StatusCode, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github rate limit read failed")
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return RateLimit{}, resp.StatusCode, authFailed(tokens.Mask(token), apiMessage(body))
	case resp.StatusCode != http.StatusOK:
		return RateLimit{}, resp.StatusCode, perr.Newf(perr.ErrorCodeUnavailable, "github rate limit status %d", resp.StatusCode)
	}
	var out RateLimit
	if err := json.Unmarshal(body, &out); err != nil {
		return RateLimit{}, resp.StatusCode, perr.Wrapf(err, perr.ErrorCodeJSON, "decode rate limit")
	}
	return out, resp.StatusCode, nil
}

// CheckTokens queries /rate_limit for every pool token and records the answers in the pool
func (c *Client) CheckTokens(ctx context.Context) ([]TokenCheck, error) {
	toks := c.pool.Tokens()
	out := make([]TokenCheck, 0, len(toks))
	for i, tok := range toks {
		chk := TokenCheck{ID: tokens.Mask(tok), Index: i + 1}
		rl, _, err := c.RateLimitFor(ctx, tok)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			chk.Error = err.Error()
			if IsAuth(err) {
				// keep rotation away from a credential GitHub rejects
				c.pool.MarkExhausted(tok, c.now().Add(invalidTokenHold))
			}
			c.log.Warn().Err(err).Str("token", chk.ID).Msg("token check failed")
			out = append(out, chk)
			continue
		}
		core := rl.Resources.Core
		chk.Valid = true
		chk.Limit = core.Limit
		chk.Remaining = core.Remaining
		chk.ResetAt = core.ResetAt()
		c.pool.RecordQuota(tok, core.Limit, core.Remaining, chk.ResetAt)
		if core.Remaining == 0 && !chk.ResetAt.IsZero() {
			c.pool.MarkExhausted(tok, chk.ResetAt)
		}
		c.m.remaining.WithLabelValues(chk.ID).Set(float64(core.Remaining))
		out = append(out, chk)
	}
	return out, nil
}

// AnyQuota reports whether at least one checked token can still make requests
func AnyQuota(checks []TokenCheck) bool {
	for _, ch := range checks {
		if ch.HasQuota() {
			return true
		}
	}
	return false
}
