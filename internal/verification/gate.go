// Package verification implements the post-registration email
// verification gate: code and magic-link channels, resend cooldown, and
// verified-status sync.
package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"identikit/internal/identity"
	"identikit/internal/platform/metrics"
	domainerrors "identikit/pkg/domain-errors"
	"identikit/pkg/platform/retry"
)

// Mode selects the verification channel.
type Mode string

const (
	// ModePIN asks the user to type a 6-digit code sent to their email.
	ModePIN Mode = "pin"
	// ModeLink sends a magic link; clicking it completes verification
	// out of band.
	ModeLink Mode = "link"
)

const (
	defaultCooldown = 60 * time.Second
	codeLength      = 6
)

// Gate guards the transition from "registered" to "verified" for one
// email address. One Gate per verification session.
type Gate struct {
	svc     identity.Service
	retry   *retry.Policy
	log     zerolog.Logger
	metrics *metrics.Metrics

	email string
	name  string

	cooldown time.Duration
	now      func() time.Time

	onVerified func(email string)

	mu         sync.Mutex
	mode       Mode
	lastSentAt time.Time
	verified   bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithMode sets the starting channel. Defaults to ModePIN.
func WithMode(m Mode) Option {
	return func(g *Gate) {
		if m == ModePIN || m == ModeLink {
			g.mode = m
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Gate) { g.log = log }
}

// WithMetrics attaches lifecycle metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// WithRetryPolicy overrides the dispatch retry envelope.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(g *Gate) {
		if p != nil {
			g.retry = p
		}
	}
}

// WithCooldown overrides the resend cooldown.
func WithCooldown(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.cooldown = d
		}
	}
}

// WithLastSentAt arms the cooldown as if a message went out at t. The
// gate usually mounts right after submission dispatched the first code
// (or was throttled trying), so it starts inside the window rather than
// offering an immediate resend.
func WithLastSentAt(t time.Time) Option {
	return func(g *Gate) {
		if !t.IsZero() {
			g.lastSentAt = t
		}
	}
}

// WithOnVerified registers a callback invoked once when verification
// completes.
func WithOnVerified(fn func(email string)) Option {
	return func(g *Gate) { g.onVerified = fn }
}

// withNowFunc injects the clock. Test-only.
func withNowFunc(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// New constructs a Gate for the given address.
func New(svc identity.Service, email, name string, opts ...Option) *Gate {
	g := &Gate{
		svc:      svc,
		retry:    retry.New(retry.WithClassifier(identity.IsTransient)),
		log:      zerolog.Nop(),
		email:    email,
		name:     name,
		cooldown: defaultCooldown,
		now:      time.Now,
		mode:     ModePIN,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Mode returns the active channel.
func (g *Gate) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// UseLinkMode switches to the magic-link channel. The cooldown carries
// over; switching channels is not a way around it.
func (g *Gate) UseLinkMode() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = ModeLink
}

// UsePINMode switches back to the code channel.
func (g *Gate) UsePINMode() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = ModePIN
}

// Verified reports whether the gate has been passed.
func (g *Gate) Verified() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verified
}

// CooldownRemaining returns how long until the next send is allowed.
// Zero means a send may go out now.
func (g *Gate) CooldownRemaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cooldownRemainingLocked()
}

func (g *Gate) cooldownRemainingLocked() time.Duration {
	if g.lastSentAt.IsZero() {
		return 0
	}
	remaining := g.cooldown - g.now().Sub(g.lastSentAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Send dispatches a verification message on the active channel. Sends
// inside the cooldown window are rejected locally without network
// traffic. A successful send arms the cooldown; so does a server-side
// rate limit, since the throttle is already in effect. When the code
// channel reports itself unconfigured the gate switches to link mode
// and dispatches there instead.
func (g *Gate) Send(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.verified {
		return domainerrors.New(domainerrors.CodeValidation, "email is already verified")
	}
	if remaining := g.cooldownRemainingLocked(); remaining > 0 {
		return domainerrors.New(domainerrors.CodeRateLimited,
			fmt.Sprintf("please wait %d seconds before requesting another code", int(remaining.Seconds()+0.5)))
	}

	err := g.dispatchLocked(ctx)
	if err == nil {
		g.lastSentAt = g.now()
		g.metrics.IncrementVerificationSend(string(g.mode), "ok")
		g.log.Debug().Str("channel", string(g.mode)).Msg("verification message sent")
		return nil
	}

	if identity.IsRateLimited(err) {
		// The server throttled us; start the local cooldown so the UI
		// stops hammering it.
		g.lastSentAt = g.now()
		g.metrics.IncrementVerificationSend(string(g.mode), "cooldown")
		return domainerrors.Wrap(err, domainerrors.CodeRateLimited, "too many verification requests")
	}

	g.metrics.IncrementVerificationSend(string(g.mode), "failed")
	return fmt.Errorf("send verification: %w", err)
}

func (g *Gate) dispatchLocked(ctx context.Context) error {
	if g.mode == ModeLink {
		return g.retry.Do(ctx, func(ctx context.Context) error {
			return g.svc.SendVerificationLink(ctx, g.email)
		})
	}

	err := g.retry.Do(ctx, func(ctx context.Context) error {
		return g.svc.SendVerificationCode(ctx, g.email, g.name)
	})
	if err != nil && identity.IsNotConfigured(err) {
		g.log.Info().Msg("code channel not configured, falling back to magic link")
		g.mode = ModeLink
		g.metrics.IncrementVerificationSend(string(ModeLink), "fallback")
		return g.retry.Do(ctx, func(ctx context.Context) error {
			return g.svc.SendVerificationLink(ctx, g.email)
		})
	}
	return err
}

// VerifyPIN checks a typed code. Malformed codes are rejected locally;
// well-formed codes are consumed server-side, where they are single-use.
// It returns true when the gate has been passed.
func (g *Gate) VerifyPIN(ctx context.Context, code string) (bool, error) {
	if !validCode(code) {
		return false, domainerrors.New(domainerrors.CodeValidation,
			"verification code must be 6 digits")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verified {
		return true, nil
	}

	ok, err := g.svc.VerifyCode(ctx, g.email, code)
	if err != nil {
		return false, fmt.Errorf("verify code: %w", err)
	}
	if !ok {
		return false, nil
	}
	g.completeLocked(ctx)
	return true, nil
}

// ConfirmLink records an out-of-band link confirmation and finishes the
// gate.
func (g *Gate) ConfirmLink(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verified {
		return
	}
	g.completeLocked(ctx)
}

// completeLocked marks the gate passed, syncs verified status onto the
// profile (best effort) and fires the callback.
func (g *Gate) completeLocked(ctx context.Context) {
	g.verified = true
	if err := g.svc.MarkVerified(ctx, g.email); err != nil {
		g.log.Warn().Err(err).Msg("failed to sync verified status, continuing")
	}
	g.log.Info().Msg("email verified")
	if g.onVerified != nil {
		g.onVerified(g.email)
	}
}

func validCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
