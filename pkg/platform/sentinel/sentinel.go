package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the identity client
// return these (optionally wrapped) so the session manager, wizard, and
// verification gate can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: no stored session quadruple / draft under the key
// - ErrExpired: token or verification code past its lifetime
// - ErrAlreadyUsed: verification code already consumed (single-use)
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: remote service or storage temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
