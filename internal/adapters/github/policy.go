package github

import (
	"net/http"
	"strings"
	"time"
)

// class is the coarse meaning of one attempt's outcome
type class int

const (
	classOK class = iota
	classNotFound
	classClientError
	classAuth
	classPrimaryQuota
	classSecondary
	classForbidden
	classTransient
)

func (c class) String() string {
	switch c {
	case classOK:
		return "ok"
	case classNotFound:
		return "not_found"
	case classClientError:
		return "client_error"
	case classAuth:
		return "auth"
	case classPrimaryQuota:
		return "primary_quota"
	case classSecondary:
		return "secondary_limit"
	case classForbidden:
		return "forbidden"
	case classTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// classify maps a status, headers and body to a class. A transport error
// (status 0) is transient
func classify(status int, rh rateHeaders, body []byte) class {
	switch {
	case status == 0 || status >= 500:
		return classTransient
	case status >= 200 && status < 300, status == http.StatusNotModified:
		return classOK
	case status == http.StatusNotFound:
		return classNotFound
	case status == http.StatusUnauthorized:
		return classAuth
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		if rh.present && rh.remaining == 0 {
			return classPrimaryQuota
		}
		msg := strings.ToLower(apiMessage(body))
		if strings.Contains(msg, "secondary rate limit") || strings.Contains(msg, "abuse detection") || rh.retryAfter > 0 {
			return classSecondary
		}
		if status == http.StatusTooManyRequests {
			return classSecondary
		}
		return classForbidden
	default:
		return classClientError
	}
}

// Outcome tells the request loop what to do next
type Outcome int

const (
	Success Outcome = iota
	RotateAndRetry
	Backoff
	Terminal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RotateAndRetry:
		return "rotate_and_retry"
	case Backoff:
		return "backoff"
	default:
		return "terminal"
	}
}

// Decision is the single answer for one attempt
type Decision struct {
	Outcome Outcome
	Wait    time.Duration // Backoff only
	Err     error         // Terminal with a typed error
	Skipped bool          // Terminal because the breaker tripped
}

// observation is everything decide needs, gathered by the caller after the
// pool side effects (mark, rotate) for this attempt already ran
type observation struct {
	Class         class
	Status        int
	Token         string // masked
	ResetAt       time.Time
	RetryAfter    time.Duration
	Rotated       bool
	AllExhausted  bool
	EarliestReset time.Time
	Failures      int // breaker count for the endpoint including this attempt
	Message       string
}

// policy holds the knobs decide works with
type policy struct {
	Threshold     int // failures that trip the breaker
	SecondaryWait time.Duration
	RetryBase     time.Duration
	RetryCap      time.Duration
}

// decide is pure: same observation, same decision
func decide(o observation, p policy) Decision {
	switch o.Class {
	case classOK, classNotFound, classClientError:
		return Decision{Outcome: Success}

	case classAuth:
		return Decision{Outcome: Terminal, Err: authFailed(o.Token, o.Message)}

	case classPrimaryQuota:
		if o.Rotated {
			return Decision{Outcome: RotateAndRetry}
		}
		if o.AllExhausted {
			return Decision{Outcome: Terminal, Err: quotaExhausted(o.EarliestReset)}
		}
		return Decision{Outcome: Terminal, Err: quotaExceeded(o.Token, o.ResetAt)}

	case classSecondary, classForbidden:
		if o.Failures >= p.Threshold {
			return Decision{Outcome: Terminal, Skipped: true}
		}
		if o.Rotated {
			return Decision{Outcome: RotateAndRetry}
		}
		wait := p.SecondaryWait
		if o.RetryAfter > wait {
			wait = o.RetryAfter
		}
		return Decision{Outcome: Backoff, Wait: wait}

	default: // transient
		if o.Failures >= p.Threshold {
			return Decision{Outcome: Terminal, Skipped: true}
		}
		return Decision{Outcome: Backoff, Wait: p.backoff(o.Failures - 1)}
	}
}

// backoff is exponential from RetryBase, capped at RetryCap
func (p policy) backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.RetryBase
	for range attempt {
		d *= 2
		if d >= p.RetryCap {
			return p.RetryCap
		}
	}
	if d > p.RetryCap {
		return p.RetryCap
	}
	return d
}
