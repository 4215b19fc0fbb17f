// Package tokens holds the credential pool shared by every GitHub caller.
// One token is current at a time; rotation and quota bookkeeping happen
// under a single lock so concurrent rotators see one stable answer
package tokens

import (
	"strings"
	"sync"
	"time"

	"ghfinder/internal/platform/logger"
)

// MinLength drops obviously broken tokens (empty lines, stray words)
const MinLength = 10

// QuotaState is what we know about one token's core quota
type QuotaState struct {
	Limit          int
	Remaining      int // -1 until the first response carrying quota headers
	ResetAt        time.Time
	ExhaustedUntil time.Time // zero unless MarkExhausted saw a quota failure
}

// Status is a display-safe view of one token
type Status struct {
	ID             string    `json:"id"`
	Index          int       `json:"index"`
	Current        bool      `json:"current"`
	Limit          int       `json:"limit"`
	Remaining      int       `json:"remaining"`
	ResetAt        time.Time `json:"reset_at,omitzero"`
	ExhaustedUntil time.Time `json:"exhausted_until,omitzero"`
	Exhausted      bool      `json:"exhausted"`
}

// Option tweaks a Pool at construction
type Option func(*Pool)

// WithClock injects the time source used for exhaustion checks
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// Pool is a fixed, ordered set of tokens with per-token quota state
type Pool struct {
	mu     sync.Mutex
	order  []string
	states map[string]*QuotaState
	cur    string
	now    func() time.Time
	log    logger.Logger
}

// New builds a pool from tokens in the given order, dropping blanks and
// duplicates; the first surviving token is current
func New(tokens []string, opts ...Option) *Pool {
	p := &Pool{
		states: make(map[string]*QuotaState, len(tokens)),
		now:    time.Now,
		log:    *logger.Named("tokens"),
	}
	for _, o := range opts {
		o(p)
	}
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := p.states[t]; dup {
			continue
		}
		p.order = append(p.order, t)
		p.states[t] = &QuotaState{Remaining: -1}
	}
	if len(p.order) > 0 {
		p.cur = p.order[0]
	}
	return p
}

// Len returns the number of managed tokens
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Tokens returns a copy of the managed tokens in pool order
func (p *Pool) Tokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

// Current returns the active token or "" for an empty pool
func (p *Pool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur
}

// State returns a copy of the quota state for token
func (p *Pool) State(token string) (QuotaState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.states[token]
	if !ok {
		return QuotaState{}, false
	}
	return *st, true
}

// RecordQuota stores quota facts observed on a response; unknown tokens are ignored
func (p *Pool) RecordQuota(token string, limit, remaining int, resetAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.states[token]
	if !ok {
		return
	}
	st.Limit = limit
	st.Remaining = remaining
	st.ResetAt = resetAt
	if remaining > 0 && !st.ExhaustedUntil.IsZero() && !st.ExhaustedUntil.After(p.now()) {
		st.ExhaustedUntil = time.Time{}
	}
	if remaining >= 0 && remaining < 100 {
		p.log.Debug().Str("token", Mask(token)).Int("remaining", remaining).Msg("token running low")
	}
}

// MarkExhausted records a confirmed quota failure for token until resetAt
func (p *Pool) MarkExhausted(token string, resetAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.states[token]
	if !ok {
		return
	}
	st.ExhaustedUntil = resetAt
	st.Remaining = 0
	if !resetAt.IsZero() {
		st.ResetAt = resetAt
	}
	p.log.Warn().Str("token", Mask(token)).Time("until", resetAt).Msg("token exhausted")
}

// NextAvailable picks the best usable token. Known remaining quota wins over
// unknown (-1); ties keep pool order. With excludeCurrent the current token
// is skipped unless nothing else qualifies
func (p *Pool) NextAvailable(excludeCurrent bool) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextLocked(excludeCurrent)
}

func (p *Pool) nextLocked(excludeCurrent bool) string {
	if len(p.order) == 0 {
		return ""
	}
	now := p.now()
	best, bestRem := "", 0
	for _, t := range p.order {
		if excludeCurrent && t == p.cur {
			continue
		}
		st := p.states[t]
		if st.ExhaustedUntil.After(now) {
			continue
		}
		if best == "" || st.Remaining > bestRem {
			best, bestRem = t, st.Remaining
		}
	}
	if best == "" {
		return p.cur
	}
	return best
}

// AllExhausted is true only when every token has been queried and is
// inside its exhaustion window. An empty pool is never exhausted
func (p *Pool) AllExhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allExhaustedLocked()
}

func (p *Pool) allExhaustedLocked() bool {
	if len(p.order) == 0 {
		return false
	}
	now := p.now()
	for _, t := range p.order {
		st := p.states[t]
		if st.Remaining == -1 || !st.ExhaustedUntil.After(now) {
			return false
		}
	}
	return true
}

// SwitchTo makes token current; false when the pool does not manage it
func (p *Pool) SwitchTo(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.switchLocked(token)
}

func (p *Pool) switchLocked(token string) bool {
	if _, ok := p.states[token]; !ok {
		return false
	}
	if p.cur != token {
		p.log.Info().Str("from", Mask(p.cur)).Str("to", Mask(token)).Msg("switched token")
	}
	p.cur = token
	return true
}

// Rotate moves off from, the token the caller just used, atomically. When
// another caller already moved the pool off from onto a usable token it
// reports that token as rotated, so concurrent rotators settle on one value.
// An empty from means the current token
func (p *Pool) Rotate(from string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.cur
	if from != "" && from != prev && p.usableLocked(prev) {
		return prev, true
	}
	next := p.nextLocked(true)
	if next == "" || next == prev {
		return prev, false
	}
	p.switchLocked(next)
	return next, true
}

// RotateIfRicher moves off from only while from is still current and the best
// other token has more known quota, or unknown quota. It reports whether it
// switched
func (p *Pool) RotateIfRicher(from string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.cur
	if from != prev {
		return prev, false
	}
	next := p.nextLocked(true)
	if next == "" || next == prev {
		return prev, false
	}
	if cand := p.states[next].Remaining; cand != -1 && cand <= p.states[prev].Remaining {
		return prev, false
	}
	p.switchLocked(next)
	return next, true
}

func (p *Pool) usableLocked(token string) bool {
	st, ok := p.states[token]
	return ok && !st.ExhaustedUntil.After(p.now())
}

// EarliestReset returns the soonest known recovery among exhausted tokens
func (p *Pool) EarliestReset() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	var out time.Time
	for _, t := range p.order {
		st := p.states[t]
		at := st.ExhaustedUntil
		if !at.After(now) {
			if st.Remaining != 0 || st.ResetAt.IsZero() {
				continue
			}
			at = st.ResetAt
		}
		if out.IsZero() || at.Before(out) {
			out = at
		}
	}
	return out
}

// Snapshot returns display-safe status rows in pool order
func (p *Pool) Snapshot() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	out := make([]Status, 0, len(p.order))
	for i, t := range p.order {
		st := p.states[t]
		out = append(out, Status{
			ID:             Mask(t),
			Index:          i + 1,
			Current:        t == p.cur,
			Limit:          st.Limit,
			Remaining:      st.Remaining,
			ResetAt:        st.ResetAt,
			ExhaustedUntil: st.ExhaustedUntil,
			Exhausted:      st.ExhaustedUntil.After(now),
		})
	}
	return out
}

// AnyAvailable reports whether at least one token has usable quota per the snapshot
func AnyAvailable(rows []Status) bool {
	for _, r := range rows {
		if !r.Exhausted && r.Remaining != 0 {
			return true
		}
	}
	return false
}

// Mask keeps only a short prefix of a token for logs and reports
func Mask(token string) string {
	if token == "" {
		return "none"
	}
	if len(token) <= 8 {
		return token[:min(4, len(token))] + "..."
	}
	return token[:8] + "..."
}
