package github

import (
	"errors"
	"fmt"
	"time"

	perr "ghfinder/internal/platform/errors"
)

// QuotaError carries the reset facts of a quota failure. Global means every
// credential in the pool is exhausted and the crawl should stop
type QuotaError struct {
	Global  bool
	ResetAt time.Time
	Token   string // masked
}

func (e *QuotaError) Error() string {
	scope := "token " + e.Token
	if e.Global {
		scope = "all tokens"
	}
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("quota exhausted for %s", scope)
	}
	return fmt.Sprintf("quota exhausted for %s until %s", scope, e.ResetAt.Format(time.RFC3339))
}

// AuthError means GitHub rejected the credential itself
type AuthError struct {
	Token   string // masked
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "bad credentials for token " + e.Token
	}
	return fmt.Sprintf("bad credentials for token %s: %s", e.Token, e.Message)
}

func quotaExhausted(reset time.Time) error {
	return perr.Wrap(&QuotaError{Global: true, ResetAt: reset}, perr.ErrorCodeQuotaExhausted, "github quota exhausted")
}

func quotaExceeded(token string, reset time.Time) error {
	return perr.Wrap(&QuotaError{ResetAt: reset, Token: token}, perr.ErrorCodeTooManyRequests, "github quota exceeded")
}

func authFailed(token, msg string) error {
	return perr.Wrap(&AuthError{Token: token, Message: msg}, perr.ErrorCodeUnauthorized, "github auth failed")
}

// IsAuth reports an invalid credential anywhere in err's chain
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsQuotaExhausted reports global exhaustion of the pool
func IsQuotaExhausted(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe) && qe.Global
}

// IsQuotaExceeded reports a quota failure scoped to one token
func IsQuotaExceeded(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe) && !qe.Global
}

// IsQuota reports either quota failure
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// IsFatal reports errors that must not be swallowed at page, user or repo scope
func IsFatal(err error) bool { return IsAuth(err) || IsQuota(err) }

// ResetAt returns the reset time carried by a quota error
func ResetAt(err error) (time.Time, bool) {
	var qe *QuotaError
	if errors.As(err, &qe) {
		return qe.ResetAt, !qe.ResetAt.IsZero()
	}
	return time.Time{}, false
}
