package registration

import "time"

// OutcomeKind classifies how a submission settled.
type OutcomeKind string

const (
	// OutcomeNewUser: the account was created; UserID is set.
	OutcomeNewUser OutcomeKind = "new_user"
	// OutcomeExistingUser: the email already has an account; the flow
	// re-routes to verification for that address instead of failing.
	OutcomeExistingUser OutcomeKind = "existing_user"
	// OutcomeValidationFailed: local or server-side validation rejected
	// the payload. FieldErrors and Errors carry the reasons.
	OutcomeValidationFailed OutcomeKind = "validation_failed"
	// OutcomeTransientFailure: retries were exhausted against a degraded
	// identity service. The draft is preserved for a later retry.
	OutcomeTransientFailure OutcomeKind = "transient_failure"
)

// Verification channels a submission may dispatch on.
const (
	ChannelPIN  = "pin"
	ChannelLink = "link"
)

// Outcome is the settled result of Submit. Exactly one Kind applies;
// the other fields are populated according to it.
type Outcome struct {
	Kind   OutcomeKind
	UserID string
	Email  string

	// FieldErrors maps input fields to messages when local validation
	// rejected the draft.
	FieldErrors map[string]string
	// Errors carries server-side validation messages.
	Errors []string

	// Err is the terminal error behind a transient failure.
	Err error

	// VerificationChannel names the channel a dispatch went out on
	// (ChannelPIN or ChannelLink), empty when none was attempted.
	VerificationChannel string
	// VerificationErr is the dispatch failure, if any. A failed dispatch
	// does not fail the registration; the gate can resend.
	VerificationErr error
	// RateLimited reports that the dispatch was throttled and the gate
	// should start its resend cooldown immediately.
	RateLimited bool
	// DispatchedAt is when the message went out, or when the throttle
	// was observed. The gate arms its resend cooldown from it; zero
	// means no dispatch happened and the gate may send at once.
	DispatchedAt time.Time
}
