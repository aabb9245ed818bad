// Package identitytest provides a hand-written fake identity.Service for
// package tests. Behaviour is injected per method; every call is counted
// so tests can assert on network traffic.
package identitytest

import (
	"context"
	"sync"

	"identikit/internal/identity"
)

// Fake implements identity.Service with injectable behaviour. The zero
// value succeeds on every call with empty results.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int

	RefreshFn              func(ctx context.Context, refreshToken string) (*identity.TokenPair, error)
	SyncSessionFn          func(ctx context.Context, accessToken, refreshToken string) error
	LogoutFn               func(ctx context.Context, refreshToken string) error
	ValidateRegistrationFn func(ctx context.Context, req *identity.ValidationRequest) (*identity.ValidationResult, error)
	RegisterFn             func(ctx context.Context, req *identity.RegisterRequest) (*identity.RegisterResult, error)
	SendVerificationCodeFn func(ctx context.Context, email, name string) error
	SendVerificationLinkFn func(ctx context.Context, email string) error
	VerifyCodeFn           func(ctx context.Context, email, code string) (bool, error)
	MarkVerifiedFn         func(ctx context.Context, email string) error
}

var _ identity.Service = (*Fake)(nil)

// Calls returns how many times the named method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

func (f *Fake) Refresh(ctx context.Context, refreshToken string) (*identity.TokenPair, error) {
	f.record("Refresh")
	if f.RefreshFn != nil {
		return f.RefreshFn(ctx, refreshToken)
	}
	return &identity.TokenPair{}, nil
}

func (f *Fake) SyncSession(ctx context.Context, accessToken, refreshToken string) error {
	f.record("SyncSession")
	if f.SyncSessionFn != nil {
		return f.SyncSessionFn(ctx, accessToken, refreshToken)
	}
	return nil
}

func (f *Fake) Logout(ctx context.Context, refreshToken string) error {
	f.record("Logout")
	if f.LogoutFn != nil {
		return f.LogoutFn(ctx, refreshToken)
	}
	return nil
}

func (f *Fake) ValidateRegistration(ctx context.Context, req *identity.ValidationRequest) (*identity.ValidationResult, error) {
	f.record("ValidateRegistration")
	if f.ValidateRegistrationFn != nil {
		return f.ValidateRegistrationFn(ctx, req)
	}
	return &identity.ValidationResult{Valid: true}, nil
}

func (f *Fake) Register(ctx context.Context, req *identity.RegisterRequest) (*identity.RegisterResult, error) {
	f.record("Register")
	if f.RegisterFn != nil {
		return f.RegisterFn(ctx, req)
	}
	return &identity.RegisterResult{Success: true}, nil
}

func (f *Fake) SendVerificationCode(ctx context.Context, email, name string) error {
	f.record("SendVerificationCode")
	if f.SendVerificationCodeFn != nil {
		return f.SendVerificationCodeFn(ctx, email, name)
	}
	return nil
}

func (f *Fake) SendVerificationLink(ctx context.Context, email string) error {
	f.record("SendVerificationLink")
	if f.SendVerificationLinkFn != nil {
		return f.SendVerificationLinkFn(ctx, email)
	}
	return nil
}

func (f *Fake) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	f.record("VerifyCode")
	if f.VerifyCodeFn != nil {
		return f.VerifyCodeFn(ctx, email, code)
	}
	return true, nil
}

func (f *Fake) MarkVerified(ctx context.Context, email string) error {
	f.record("MarkVerified")
	if f.MarkVerifiedFn != nil {
		return f.MarkVerifiedFn(ctx, email)
	}
	return nil
}
