// Package session owns the persisted credential quadruple and its
// lifecycle: restore on startup, proactive refresh ahead of expiry, and
// forced logout when the refresh token is rejected.
package session

import (
	"context"
	"time"
)

// Session is the persisted credential quadruple. It is exclusively owned
// by the Manager; everything else reads copies through SessionInfo.
type Session struct {
	UserID       string    `json:"userId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Complete reports whether all four fields are present. A partial
// quadruple is treated the same as no session at all.
func (s *Session) Complete() bool {
	return s != nil &&
		s.UserID != "" &&
		s.AccessToken != "" &&
		s.RefreshToken != "" &&
		!s.ExpiresAt.IsZero()
}

// RemainingLife returns how much access-token lifetime is left at now.
func (s *Session) RemainingLife(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// TokenStore persists the quadruple. Save must replace all four fields
// atomically; Load returns sentinel.ErrNotFound (wrapped) when no complete
// quadruple exists. Only the Manager writes to a TokenStore.
type TokenStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// Info is the read-only view of the current session handed to consumers.
type Info struct {
	UserID    string
	ExpiresAt time.Time
	ExpiresIn time.Duration
	Expired   bool
}
