// Package identity is the typed client for the hosted identity service.
// Everything the session manager, registration wizard, and verification
// gate need from the remote side goes through the Service interface so
// tests can substitute fakes.
package identity

import (
	"context"
	"time"
)

// TokenPair is the credential quadruple minted by the refresh endpoint.
type TokenPair struct {
	UserID       string    `json:"userId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"-"`
}

// ValidationRequest mirrors the server-side pre-registration check.
type ValidationRequest struct {
	EntryPoint string         `json:"entryPoint"`
	UserType   string         `json:"userType"`
	Data       map[string]any `json:"data"`
}

// ValidationResult reports server-side field validation.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// RegisterRequest carries the full registration payload.
type RegisterRequest struct {
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	Name              string   `json:"name"`
	UserType          string   `json:"userType"`
	Title             string   `json:"title,omitempty"`
	PhoneNumber       string   `json:"phoneNumber,omitempty"`
	Location          string   `json:"location,omitempty"`
	YearsOfExperience string   `json:"yearsOfExperience,omitempty"`
	CurrentCompany    string   `json:"currentCompany,omitempty"`
	Seniority         string   `json:"seniority,omitempty"`
	TopSkills         []string `json:"topSkills,omitempty"`
	HighestEducation  string   `json:"highestEducation,omitempty"`
	ResumeFileName    string   `json:"resumeFileName,omitempty"`
}

// RegisterResult is the successful registration response.
type RegisterResult struct {
	Success  bool   `json:"success"`
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	Message  string `json:"message,omitempty"`
}

// Service is the remote identity surface consumed by this module.
type Service interface {
	// Refresh exchanges a refresh token for a fresh quadruple.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// SyncSession pushes a stored token pair to the identity layer so
	// server-side row policies see the session. Failures are tolerable.
	SyncSession(ctx context.Context, accessToken, refreshToken string) error
	// Logout invalidates the refresh token server-side. Best effort.
	Logout(ctx context.Context, refreshToken string) error

	ValidateRegistration(ctx context.Context, req *ValidationRequest) (*ValidationResult, error)
	Register(ctx context.Context, req *RegisterRequest) (*RegisterResult, error)

	// SendVerificationCode dispatches a 6-digit code to the address.
	SendVerificationCode(ctx context.Context, email, name string) error
	// SendVerificationLink dispatches a magic link; the fallback channel
	// when the code channel is unavailable.
	SendVerificationLink(ctx context.Context, email string) error
	// VerifyCode consumes a code. Codes are single-use server-side.
	VerifyCode(ctx context.Context, email, code string) (bool, error)
	// MarkVerified syncs verified status onto the profile record.
	MarkVerified(ctx context.Context, email string) error
}
