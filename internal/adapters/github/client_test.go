package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ghfinder/internal/adapters/github/tokens"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	tokA = "ghp_aaaaaaaaaaaa"
	tokB = "ghp_bbbbbbbbbbbb"
)

// fakeGitHub routes on the bearer token so tests can script per-token behaviour
type fakeGitHub struct {
	mu    sync.Mutex
	calls []string // token used per call
	h     func(w http.ResponseWriter, r *http.Request, token string, n int)
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	f.calls = append(f.calls, tok)
	n := len(f.calls)
	f.mu.Unlock()
	f.h(w, r, tok, n)
}

func (f *fakeGitHub) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type sleepLog struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

func newTestClient(t *testing.T, h func(w http.ResponseWriter, r *http.Request, token string, n int), opts Options, toks ...string) (*Client, *fakeGitHub, *sleepLog) {
	t.Helper()
	fake := &fakeGitHub{h: h}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}
	c := NewClient(tokens.New(toks), opts)
	sl := &sleepLog{}
	c.sleep = sl.sleep
	return c, fake, sl
}

func quotaHeaders(w http.ResponseWriter, remaining int, reset time.Time) {
	w.Header().Set("X-RateLimit-Limit", "5000")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
	w.Header().Set("X-RateLimit-Resource", "core")
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}

func TestRequest_OKRecordsQuota(t *testing.T) {
	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	c, fake, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		quotaHeaders(w, 4321, reset)
		writeJSON(w, 200, `{"login":"octo"}`)
	}, Options{}, tokA)

	res, err := c.Request(context.Background(), "/users/octo", nil)
	if err != nil || res.Status != 200 {
		t.Fatalf("Request = %d, %v", res.Status, err)
	}
	st, _ := c.Pool().State(tokA)
	if st.Remaining != 4321 || st.Limit != 5000 || !st.ResetAt.Equal(reset.UTC()) {
		t.Fatalf("quota not recorded: %+v", st)
	}
	if got := fake.Calls(); len(got) != 1 || got[0] != tokA {
		t.Fatalf("calls = %v", got)
	}
}

func TestRequest_NotFoundIsNotAnError(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		writeJSON(w, 404, `{"message":"Not Found"}`)
	}, Options{}, tokA)

	res, err := c.Request(context.Background(), "/users/ghost", nil)
	if err != nil || res.Status != 404 || res.Skipped {
		t.Fatalf("Request = %+v, %v", res, err)
	}
}

func TestRequest_RetriesOncePerRotation(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute)
	c, fake, sl := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, tok string, _ int) {
		if tok == tokA {
			quotaHeaders(w, 0, reset)
			writeJSON(w, 403, `{"message":"API rate limit exceeded"}`)
			return
		}
		quotaHeaders(w, 4999, reset)
		writeJSON(w, 200, `{}`)
	}, Options{}, tokA, tokB)

	res, err := c.Request(context.Background(), "/repos/o/r", nil)
	if err != nil || res.Status != 200 {
		t.Fatalf("Request = %d, %v", res.Status, err)
	}
	calls := fake.Calls()
	if len(calls) != 2 || calls[0] != tokA || calls[1] != tokB {
		t.Fatalf("calls = %v, want A then B", calls)
	}
	if c.Pool().Current() != tokB {
		t.Fatalf("current = %q, want B", c.Pool().Current())
	}
	if st, _ := c.Pool().State(tokA); st.ExhaustedUntil.IsZero() {
		t.Fatalf("A should be marked exhausted")
	}
	if len(sl.sleeps) != 0 {
		t.Fatalf("rotation must not sleep, slept %v", sl.sleeps)
	}
}

func TestRequest_GlobalExhaustion(t *testing.T) {
	resetA := time.Now().Add(40 * time.Minute).Truncate(time.Second)
	resetB := time.Now().Add(20 * time.Minute).Truncate(time.Second)
	c, fake, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, tok string, _ int) {
		if tok == tokA {
			quotaHeaders(w, 0, resetA)
		} else {
			quotaHeaders(w, 0, resetB)
		}
		writeJSON(w, 403, `{"message":"API rate limit exceeded"}`)
	}, Options{}, tokA, tokB)

	_, err := c.Request(context.Background(), "/repos/o/r/forks", nil)
	if !IsQuotaExhausted(err) {
		t.Fatalf("err = %v, want global exhaustion", err)
	}
	if got, ok := ResetAt(err); !ok || !got.Equal(resetB.UTC()) {
		t.Fatalf("ResetAt = %v, want earliest %v", got, resetB)
	}
	if n := len(fake.Calls()); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
	if !c.Pool().AllExhausted() {
		t.Fatalf("pool should report exhaustion")
	}
}

func TestRequest_AuthIsTerminal(t *testing.T) {
	c, fake, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		writeJSON(w, 401, `{"message":"Bad credentials"}`)
	}, Options{}, tokA, tokB)

	_, err := c.Request(context.Background(), "/users/octo", nil)
	if !IsAuth(err) {
		t.Fatalf("err = %v, want auth", err)
	}
	if n := len(fake.Calls()); n != 1 {
		t.Fatalf("auth failure retried: %d calls", n)
	}
}

func TestRequest_BreakerCapsAttempts(t *testing.T) {
	c, fake, sl := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		writeJSON(w, 403, `{"message":"You have exceeded a secondary rate limit"}`)
	}, Options{MaxRetryAttempts: 2}, tokA)

	res, err := c.Request(context.Background(), "/repos/o/r/pulls", nil)
	if err != nil {
		t.Fatalf("breaker must not surface an error: %v", err)
	}
	if !res.Skipped || res.Status != 403 {
		t.Fatalf("res = %+v, want skipped 403", res)
	}
	if n := len(fake.Calls()); n != 3 {
		t.Fatalf("calls = %d, want max+1 = 3", n)
	}
	if len(sl.sleeps) != 2 || sl.sleeps[0] != defaultSecondaryWait {
		t.Fatalf("sleeps = %v, want two fixed waits", sl.sleeps)
	}

	// failures persist across calls for the same endpoint
	res, err = c.Request(context.Background(), "/repos/o/r/pulls", nil)
	if err != nil || !res.Skipped {
		t.Fatalf("second call = %+v, %v", res, err)
	}
	if n := len(fake.Calls()); n != 4 {
		t.Fatalf("tripped endpoint should give up after one attempt, calls = %d", n)
	}
}

func TestRequest_SecondaryRotatesBeforeBackoff(t *testing.T) {
	c, fake, sl := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, tok string, _ int) {
		if tok == tokA {
			writeJSON(w, 403, `{"message":"secondary rate limit"}`)
			return
		}
		writeJSON(w, 200, `{}`)
	}, Options{}, tokA, tokB)

	res, err := c.Request(context.Background(), "/users/octo/events", nil)
	if err != nil || res.Status != 200 {
		t.Fatalf("Request = %+v, %v", res, err)
	}
	if len(fake.Calls()) != 2 || len(sl.sleeps) != 0 {
		t.Fatalf("calls=%v sleeps=%v", fake.Calls(), sl.sleeps)
	}
	if c.brk.Count("/users/octo/events") != 0 {
		t.Fatalf("success should reset the breaker")
	}
}

func TestRequest_TransientGivesUpWithServerStatus(t *testing.T) {
	c, fake, sl := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		writeJSON(w, 502, `{"message":"Bad Gateway"}`)
	}, Options{}, tokA)

	res, err := c.Request(context.Background(), "/repos/o/r/languages", nil)
	if err != nil {
		t.Fatalf("transient failures must not surface an error: %v", err)
	}
	if res.Status != 502 || !res.Skipped {
		t.Fatalf("res = %+v", res)
	}
	if len(fake.Calls()) != 3 {
		t.Fatalf("calls = %d, want 3", len(fake.Calls()))
	}
	if len(sl.sleeps) != 2 || sl.sleeps[0] != defaultRetryBase || sl.sleeps[1] != 2*defaultRetryBase {
		t.Fatalf("sleeps = %v, want exponential", sl.sleeps)
	}
}

func TestRequest_SuccessResetsBreaker(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, n int) {
		if n == 1 {
			writeJSON(w, 500, `{}`)
			return
		}
		writeJSON(w, 200, `[]`)
	}, Options{}, tokA)

	res, err := c.Request(context.Background(), "/users/octo/repos", nil)
	if err != nil || res.Status != 200 {
		t.Fatalf("Request = %+v, %v", res, err)
	}
	if got := c.brk.Count("/users/octo/repos"); got != 0 {
		t.Fatalf("breaker count = %d, want reset", got)
	}
}

func TestRequest_ProactiveRotation(t *testing.T) {
	reset := time.Now().Add(time.Hour)
	c, fake, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		writeJSON(w, 200, `{}`)
	}, Options{}, tokA, tokB)
	c.Pool().RecordQuota(tokA, 5000, 50, reset)
	c.Pool().RecordQuota(tokB, 5000, 4000, reset)

	if _, err := c.Request(context.Background(), "/users/octo", nil); err != nil {
		t.Fatal(err)
	}
	if calls := fake.Calls(); calls[0] != tokB {
		t.Fatalf("low token used: %v", calls)
	}
}

func TestRequest_ProactiveRotationKeepsRicherCurrent(t *testing.T) {
	reset := time.Now().Add(time.Hour)
	c, fake, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		writeJSON(w, 200, `{}`)
	}, Options{}, tokA, tokB)
	c.Pool().RecordQuota(tokA, 5000, 50, reset)
	c.Pool().RecordQuota(tokB, 5000, 10, reset)

	for range 3 {
		if _, err := c.Request(context.Background(), "/users/octo", nil); err != nil {
			t.Fatal(err)
		}
	}
	for i, tok := range fake.Calls() {
		if tok != tokA {
			t.Fatalf("call %d used %q, want A every time", i, tok)
		}
	}
}

func TestRequest_ConcurrentExhaustionRetriesOnNewToken(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute)
	var arrived atomic.Int32
	release := make(chan struct{})
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, tok string, _ int) {
		if tok == tokA {
			if arrived.Add(1) == 2 {
				close(release)
			}
			select {
			case <-release:
			case <-time.After(2 * time.Second):
			}
			quotaHeaders(w, 0, reset)
			writeJSON(w, 403, `{"message":"API rate limit exceeded"}`)
			return
		}
		quotaHeaders(w, 4999, reset)
		writeJSON(w, 200, `{}`)
	}, Options{Concurrency: 2}, tokA, tokB)

	errs := make([]error, 2)
	statuses := make([]int, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Request(context.Background(), fmt.Sprintf("/users/u%d", i), nil)
			statuses[i], errs[i] = res.Status, err
		}()
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil || statuses[i] != 200 {
			t.Fatalf("request %d = %d, %v", i, statuses[i], errs[i])
		}
	}
	if cur := c.Pool().Current(); cur != tokB {
		t.Fatalf("current = %q, want B", cur)
	}
}

func TestRequest_ProactiveRotationNeverBlocks(t *testing.T) {
	reset := time.Now().Add(time.Hour)
	c, fake, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		writeJSON(w, 200, `{}`)
	}, Options{}, tokA)
	c.Pool().RecordQuota(tokA, 5000, 5, reset)

	if _, err := c.Request(context.Background(), "/users/octo", nil); err != nil {
		t.Fatal(err)
	}
	if calls := fake.Calls(); len(calls) != 1 || calls[0] != tokA {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRequest_BoundedConcurrency(t *testing.T) {
	var inflight, peak atomic.Int32
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		inflight.Add(-1)
		writeJSON(w, 200, `{}`)
	}, Options{Concurrency: 2}, tokA)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Request(context.Background(), fmt.Sprintf("/users/u%d", i), nil)
		}()
	}
	wg.Wait()
	if p := peak.Load(); p > 2 {
		t.Fatalf("peak in-flight = %d, want <= 2", p)
	}
}

func TestRequest_ContextCancelled(t *testing.T) {
	c, fake, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		writeJSON(w, 200, `{}`)
	}, Options{}, tokA)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Request(ctx, "/users/octo", nil); err == nil {
		t.Fatalf("expected cancellation error")
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("cancelled request reached the server")
	}
}
