// Package domainerrors provides coded errors shared across the client.
//
// A Code classifies how a failure should be handled: validation stays
// local, duplicates re-route, transients retry, session expiry forces
// logout. Infrastructure layers return sentinel errors;
// services wrap them here so callers branch on codes, not message text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the handling class of an error.
type Code string

const (
	CodeValidation       Code = "validation"
	CodeDuplicateAccount Code = "duplicate_account"
	CodeTransient        Code = "transient"
	CodeRateLimited      Code = "rate_limited"
	CodeNotConfigured    Code = "not_configured"
	CodeSessionExpired   Code = "session_expired"
	CodeUnauthorized     Code = "unauthorized"
	CodeInternal         Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal when err is uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
