package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Structured error codes the identity service emits. Message substring
// matching is kept only as a fallback for deployments that predate the
// coded responses.
const (
	errCodeDuplicateAccount = "duplicate_account"
	errCodeRateLimited      = "rate_limited"
	errCodeNotConfigured    = "not_configured"
	errCodeTokenExpired     = "token_expired"
	errCodeTokenInvalid     = "token_invalid"
)

// APIError is a non-2xx response from the identity service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("identity: %s (status %d)", e.Message, e.Status)
}

// IsTransient reports whether the failure is worth retrying: server-side
// breakage (5xx) or throttling (429). Anything else is a terminal answer.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError ||
			apiErr.Status == http.StatusTooManyRequests
	}
	return false
}

// IsRateLimited reports a 429 or a coded rate-limit rejection.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusTooManyRequests || apiErr.Code == errCodeRateLimited {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
}

// IsDuplicateAccount detects the "account already exists" rejection from
// the register endpoint. Deliberately not a failure for the caller: the
// flow re-routes to verification.
func IsDuplicateAccount(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == errCodeDuplicateAccount {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "already been registered") || strings.Contains(msg, "already exists")
}

// IsNotConfigured detects an unavailable verification-code channel, which
// triggers the silent magic-link fallback.
func IsNotConfigured(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == errCodeNotConfigured {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "not configured") ||
		strings.Contains(msg, "failed to store verification code")
}

// IsTerminalRefresh reports whether a refresh failure means the refresh
// token itself is dead (expired or rejected), as opposed to a transient
// outage where the stale session should be kept for the next tick.
func IsTerminalRefresh(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case errCodeTokenExpired, errCodeTokenInvalid:
		return true
	}
	if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "expired") || strings.Contains(msg, "invalid")
}
