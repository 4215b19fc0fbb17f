package github

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// rateHeaders is the quota view carried on every GitHub response
type rateHeaders struct {
	present    bool
	resource   string
	limit      int
	remaining  int
	reset      time.Time
	retryAfter int
}

func parseRateHeaders(h http.Header) rateHeaders {
	var rh rateHeaders
	if h == nil {
		return rh
	}
	rem := h.Get("X-RateLimit-Remaining")
	rh.present = rem != ""
	rh.remaining = atoi(rem)
	rh.limit = atoi(h.Get("X-RateLimit-Limit"))
	rh.resource = strings.ToLower(h.Get("X-RateLimit-Resource"))
	if sec := atoi(h.Get("X-RateLimit-Reset")); sec > 0 {
		rh.reset = time.Unix(int64(sec), 0).UTC()
	}
	rh.retryAfter = atoi(h.Get("Retry-After"))
	return rh
}

// core reports whether the headers describe the core REST quota
func (rh rateHeaders) core() bool {
	return rh.present && (rh.resource == "" || rh.resource == "core")
}

// computeWait decides how long to wait based on headers
func computeWait(rh rateHeaders, now time.Time) time.Duration {
	if rh.retryAfter > 0 {
		return time.Duration(rh.retryAfter) * time.Second
	}
	if rh.present && rh.remaining <= 0 && !rh.reset.IsZero() && rh.reset.After(now) {
		return rh.reset.Sub(now)
	}
	return 0
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	i, _ := strconv.Atoi(strings.TrimSpace(s))
	return i
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}

// endpointKey identifies a logical endpoint for the breaker; Encode sorts keys
func endpointKey(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

// apiMessage pulls GitHub's {"message": "..."} out of an error body
func apiMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var m struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	return m.Message
}
