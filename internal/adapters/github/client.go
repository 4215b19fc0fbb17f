// Package github is the rate-aware gateway to the GitHub REST v3 API.
// Every crawler and profiler call goes through Client.Request, which owns
// token rotation, quota bookkeeping, backoff and the per-endpoint breaker
package github

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"ghfinder/internal/adapters/github/tokens"
	"ghfinder/internal/platform/config"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	baseURLDefault       = "https://api.github.com"
	defaultTimeout       = 30 * time.Second
	defaultUA            = "ghfinder"
	defaultConcurrency   = 5
	defaultLowWater      = 100
	defaultMaxRetry      = 2
	defaultSecondaryWait = 10 * time.Second
	defaultRetryBase     = 500 * time.Millisecond
	defaultRetryCap      = 30 * time.Second
	defaultQuotaWindow   = time.Hour
	maxBody              = 16 << 20
	apiVersion           = "2022-11-28"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Concurrency bounds in-flight requests across crawling and profiling
	Concurrency int
	// RPS paces attempts when > 0
	RPS float64
	// LowWater triggers a proactive rotation when the current token's known
	// remaining quota drops below it
	LowWater int

	// MaxRetryAttempts per endpoint; the breaker trips at MaxRetryAttempts+1 failures
	MaxRetryAttempts int
	SecondaryWait    time.Duration
	RetryBase        time.Duration
	RetryCap         time.Duration

	Registerer prometheus.Registerer
	HTTPClient *http.Client
}

// OptionsFromConfig reads gateway knobs from a GITHUB_ scoped view of cfg
func OptionsFromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("GITHUB_")
	return Options{
		BaseURL:          c.MayString("BASE_URL", baseURLDefault),
		UserAgent:        c.MayString("USER_AGENT", defaultUA),
		Timeout:          c.MayDuration("TIMEOUT", defaultTimeout),
		Concurrency:      c.MayInt("CONCURRENCY", defaultConcurrency),
		RPS:              c.MayFloat64("RPS", 0),
		LowWater:         c.MayInt("LOW_WATER", defaultLowWater),
		MaxRetryAttempts: c.MayInt("MAX_RETRY_ATTEMPTS", defaultMaxRetry),
		SecondaryWait:    c.MayDuration("SECONDARY_WAIT", defaultSecondaryWait),
	}
}

// Result is the raw outcome of one logical request
type Result struct {
	Status  int
	Body    []byte
	Header  http.Header
	Skipped bool // the endpoint breaker gave up on this request
	Items   int  // array length for list endpoints, before item decoding
}

// OK reports a 200 response
func (r Result) OK() bool { return r.Status == http.StatusOK }

// Client is the shared gateway. It is safe for concurrent use
type Client struct {
	http  *http.Client
	opts  Options
	pool  *tokens.Pool
	sem   *semaphore.Weighted
	lim   *rate.Limiter
	brk   *breaker
	pol   policy
	m     *metrics
	log   logger.Logger
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewClient creates a Client over pool with sane defaults
func NewClient(pool *tokens.Pool, o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.LowWater < 0 {
		o.LowWater = 0
	} else if o.LowWater == 0 {
		o.LowWater = defaultLowWater
	}
	if o.MaxRetryAttempts <= 0 {
		o.MaxRetryAttempts = defaultMaxRetry
	}
	if o.SecondaryWait <= 0 {
		o.SecondaryWait = defaultSecondaryWait
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryCap <= 0 {
		o.RetryCap = defaultRetryCap
	}
	if pool == nil {
		pool = tokens.New(nil)
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	c := &Client{
		http: hc,
		opts: o,
		pool: pool,
		sem:  semaphore.NewWeighted(int64(o.Concurrency)),
		brk:  newBreaker(),
		pol: policy{
			Threshold:     o.MaxRetryAttempts + 1,
			SecondaryWait: o.SecondaryWait,
			RetryBase:     o.RetryBase,
			RetryCap:      o.RetryCap,
		},
		m:     newMetrics(o.Registerer),
		log:   *logger.Named("github"),
		now:   time.Now,
		sleep: sleepCtx,
	}
	if o.RPS > 0 {
		c.lim = rate.NewLimiter(rate.Limit(o.RPS), 1)
	}
	return c
}

// Pool exposes the credential pool the client rotates over
func (c *Client) Pool() *tokens.Pool { return c.pool }

// Request performs GET path?params with rotation, backoff and the breaker.
// Not found and other client errors come back as a Result, never an error.
// Errors are reserved for invalid credentials, quota loss and cancellation
func (c *Client) Request(ctx context.Context, path string, params url.Values) (Result, error) {
	key := endpointKey(path, params)
	// one rotation per exhausted token plus the breaker budget
	maxLoops := c.pool.Len() + c.pol.Threshold + 2

	for loop := 0; ; loop++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		res, tok, err := c.attempt(ctx, path, params)
		if err != nil {
			return Result{}, err
		}

		rh := parseRateHeaders(res.Header)
		c.observeQuota(tok, rh)

		cls := classify(res.Status, rh, res.Body)
		c.m.requests.WithLabelValues(cls.String()).Inc()

		obs := observation{
			Class:   cls,
			Status:  res.Status,
			Token:   tokens.Mask(tok),
			Message: apiMessage(res.Body),
		}
		switch cls {
		case classPrimaryQuota:
			reset := rh.reset
			if reset.IsZero() {
				reset = c.now().Add(defaultQuotaWindow)
			}
			obs.ResetAt = reset
			c.pool.MarkExhausted(tok, reset)
			if loop < maxLoops {
				obs.Rotated = c.rotate(tok)
			}
			obs.AllExhausted = c.pool.AllExhausted()
			obs.EarliestReset = c.pool.EarliestReset()
		case classSecondary, classForbidden:
			obs.Failures = c.brk.Fail(key)
			obs.RetryAfter = computeWait(rh, c.now())
			if obs.Failures < c.pol.Threshold {
				obs.Rotated = c.rotate(tok)
			}
		case classTransient:
			obs.Failures = c.brk.Fail(key)
		}

		d := decide(obs, c.pol)
		switch d.Outcome {
		case Success:
			c.brk.Reset(key)
			return res, nil

		case RotateAndRetry:
			c.log.Info().Str("path", key).Str("class", cls.String()).Int("status", res.Status).
				Msg("github retrying with rotated token")
			continue

		case Backoff:
			c.m.backoffs.WithLabelValues(cls.String()).Inc()
			c.log.Warn().Str("path", key).Str("class", cls.String()).Int("status", res.Status).
				Int("failures", obs.Failures).Dur("retry_in", d.Wait).Msg("github backing off")
			// the semaphore slot is already released here
			if err := c.sleep(ctx, d.Wait); err != nil {
				return Result{}, err
			}
			continue

		default:
			if d.Skipped {
				c.m.skips.Inc()
				status := res.Status
				if status == 0 {
					status = http.StatusInternalServerError
				}
				c.log.Warn().Str("path", key).Int("status", status).Int("failures", obs.Failures).
					Msg("github endpoint skipped after repeated failures")
				return Result{Status: status, Header: res.Header, Body: res.Body, Skipped: true}, nil
			}
			c.log.Error().Err(d.Err).Str("path", key).Int("status", res.Status).Msg("github terminal failure")
			return res, d.Err
		}
	}
}

// attempt performs one HTTP round trip while holding a concurrency slot.
// Transport failures come back as status 0 with a nil error
func (c *Client) attempt(ctx context.Context, path string, params url.Values) (Result, string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return Result{}, "", err
	}
	defer c.sem.Release(1)

	c.proactiveRotate()
	if c.lim != nil {
		if err := c.lim.Wait(ctx); err != nil {
			return Result{}, "", err
		}
	}

	u := c.opts.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, "", perr.Wrapf(err, perr.ErrorCodeUnknown, "github new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	tok := c.pool.Current()
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, tok, ctx.Err()
		}
		c.log.Warn().Err(err).Str("path", path).Dur("latency", lat).Msg("github transport error")
		return Result{}, tok, nil
	}
	defer func() {
		if cerr := drainAndClose(resp.Body); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("github close body failed")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("github read body failed")
		return Result{}, tok, nil
	}

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Str("token", tokens.Mask(tok)).
		Str("rate_remaining", resp.Header.Get("X-RateLimit-Remaining")).
		Msg("github http response")

	return Result{Status: resp.StatusCode, Body: body, Header: resp.Header}, tok, nil
}

// proactiveRotate moves off a token that is about to run dry when a richer
// one exists; never blocks
func (c *Client) proactiveRotate() {
	cur := c.pool.Current()
	if cur == "" {
		return
	}
	st, ok := c.pool.State(cur)
	if !ok || st.Remaining < 0 || st.Remaining >= c.opts.LowWater {
		return
	}
	if _, moved := c.pool.RotateIfRicher(cur); moved {
		c.m.rotations.Inc()
		c.log.Info().Str("from", tokens.Mask(cur)).Int("remaining", st.Remaining).Msg("github proactive rotation")
	}
}

func (c *Client) rotate(from string) bool {
	_, ok := c.pool.Rotate(from)
	if ok {
		c.m.rotations.Inc()
	}
	return ok
}

func (c *Client) observeQuota(tok string, rh rateHeaders) {
	if tok == "" || !rh.core() {
		return
	}
	c.pool.RecordQuota(tok, rh.limit, rh.remaining, rh.reset)
	c.m.remaining.WithLabelValues(tokens.Mask(tok)).Set(float64(rh.remaining))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
