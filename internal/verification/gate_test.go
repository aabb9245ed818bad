package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identikit/internal/identity"
	"identikit/internal/identity/identitytest"
	domainerrors "identikit/pkg/domain-errors"
	"identikit/pkg/platform/retry"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func fastRetry() *retry.Policy {
	return retry.New(
		retry.WithClassifier(identity.IsTransient),
		retry.WithSleeper(func(_ context.Context, _ time.Duration) error { return nil }),
	)
}

func newTestGate(fake *identitytest.Fake, clock *fakeClock, opts ...Option) *Gate {
	base := []Option{WithRetryPolicy(fastRetry()), withNowFunc(clock.Now)}
	return New(fake, "ada@example.com", "Ada Lovelace", append(base, opts...)...)
}

func TestGate_SendAndCooldown(t *testing.T) {
	fake := &identitytest.Fake{}
	clock := newFakeClock()
	g := newTestGate(fake, clock)

	require.NoError(t, g.Send(context.Background()))
	assert.Equal(t, 1, fake.Calls("SendVerificationCode"))
	assert.Equal(t, 60*time.Second, g.CooldownRemaining())

	// Resend inside the window is rejected locally: no network call.
	err := g.Send(context.Background())
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.CodeRateLimited))
	assert.Equal(t, 1, fake.Calls("SendVerificationCode"))

	clock.Advance(59 * time.Second)
	assert.Error(t, g.Send(context.Background()))

	clock.Advance(time.Second)
	assert.Zero(t, g.CooldownRemaining())
	require.NoError(t, g.Send(context.Background()))
	assert.Equal(t, 2, fake.Calls("SendVerificationCode"))
}

func TestGate_MountsWithCooldownArmed(t *testing.T) {
	fake := &identitytest.Fake{}
	clock := newFakeClock()
	// The first code went out during submission; the gate starts inside
	// that window.
	g := newTestGate(fake, clock, WithLastSentAt(clock.Now()))

	err := g.Send(context.Background())
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.CodeRateLimited))
	assert.Zero(t, fake.Calls("SendVerificationCode"))
	assert.Equal(t, 60*time.Second, g.CooldownRemaining())

	clock.Advance(60 * time.Second)
	require.NoError(t, g.Send(context.Background()))
	assert.Equal(t, 1, fake.Calls("SendVerificationCode"))
}

func TestGate_ZeroLastSentAtSendsImmediately(t *testing.T) {
	fake := &identitytest.Fake{}
	g := newTestGate(fake, newFakeClock(), WithLastSentAt(time.Time{}))

	require.NoError(t, g.Send(context.Background()))
	assert.Equal(t, 1, fake.Calls("SendVerificationCode"))
}

func TestGate_SendLinkMode(t *testing.T) {
	fake := &identitytest.Fake{}
	g := newTestGate(fake, newFakeClock(), WithMode(ModeLink))

	require.NoError(t, g.Send(context.Background()))
	assert.Equal(t, 1, fake.Calls("SendVerificationLink"))
	assert.Zero(t, fake.Calls("SendVerificationCode"))
}

func TestGate_SendFallsBackToLink(t *testing.T) {
	fake := &identitytest.Fake{
		SendVerificationCodeFn: func(context.Context, string, string) error {
			return &identity.APIError{Status: 500, Message: "supabase credentials not configured"}
		},
	}
	g := newTestGate(fake, newFakeClock())

	require.NoError(t, g.Send(context.Background()))
	assert.Equal(t, ModeLink, g.Mode())
	assert.Equal(t, 1, fake.Calls("SendVerificationLink"))
	// Fallback still arms the cooldown.
	assert.Equal(t, 60*time.Second, g.CooldownRemaining())
}

func TestGate_ServerRateLimitArmsCooldown(t *testing.T) {
	fake := &identitytest.Fake{
		SendVerificationCodeFn: func(context.Context, string, string) error {
			return &identity.APIError{Status: 429, Message: "rate limit exceeded"}
		},
	}
	clock := newFakeClock()
	g := newTestGate(fake, clock)

	err := g.Send(context.Background())
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.CodeRateLimited))
	assert.Equal(t, 60*time.Second, g.CooldownRemaining())

	// The throttle keeps further sends local until the window passes.
	calls := fake.Calls("SendVerificationCode")
	assert.Error(t, g.Send(context.Background()))
	assert.Equal(t, calls, fake.Calls("SendVerificationCode"))
}

func TestGate_SwitchingModeKeepsCooldown(t *testing.T) {
	fake := &identitytest.Fake{}
	g := newTestGate(fake, newFakeClock())

	require.NoError(t, g.Send(context.Background()))
	g.UseLinkMode()

	err := g.Send(context.Background())
	assert.True(t, domainerrors.Is(err, domainerrors.CodeRateLimited))
	assert.Zero(t, fake.Calls("SendVerificationLink"))
}

func TestGate_VerifyPIN_RejectsMalformedLocally(t *testing.T) {
	fake := &identitytest.Fake{}
	g := newTestGate(fake, newFakeClock())

	for _, code := range []string{"", "12345", "1234567", "12a456", "12 456"} {
		ok, err := g.VerifyPIN(context.Background(), code)
		assert.False(t, ok, "code %q", code)
		assert.True(t, domainerrors.Is(err, domainerrors.CodeValidation), "code %q", code)
	}
	assert.Zero(t, fake.Calls("VerifyCode"))
}

func TestGate_VerifyPIN_Success(t *testing.T) {
	var verifiedEmail string
	fake := &identitytest.Fake{
		VerifyCodeFn: func(_ context.Context, email, code string) (bool, error) {
			assert.Equal(t, "ada@example.com", email)
			return code == "123456", nil
		},
	}
	g := newTestGate(fake, newFakeClock(), WithOnVerified(func(email string) { verifiedEmail = email }))

	ok, err := g.VerifyPIN(context.Background(), "654321")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, g.Verified())

	ok, err = g.VerifyPIN(context.Background(), "123456")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, g.Verified())
	assert.Equal(t, "ada@example.com", verifiedEmail)
	assert.Equal(t, 1, fake.Calls("MarkVerified"))
}

func TestGate_VerifyPIN_CodesAreSingleUse(t *testing.T) {
	used := map[string]bool{}
	fake := &identitytest.Fake{
		VerifyCodeFn: func(_ context.Context, _, code string) (bool, error) {
			if code != "123456" || used[code] {
				return false, nil
			}
			used[code] = true
			return true, nil
		},
	}

	g := newTestGate(fake, newFakeClock())
	ok, err := g.VerifyPIN(context.Background(), "123456")
	require.NoError(t, err)
	require.True(t, ok)

	// A second gate for the same address cannot replay the consumed code.
	g2 := newTestGate(fake, newFakeClock())
	ok, err = g2.VerifyPIN(context.Background(), "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGate_VerifyPIN_IdempotentOnceVerified(t *testing.T) {
	fake := &identitytest.Fake{}
	g := newTestGate(fake, newFakeClock())

	ok, err := g.VerifyPIN(context.Background(), "123456")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.VerifyPIN(context.Background(), "123456")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, fake.Calls("VerifyCode"))
	assert.Equal(t, 1, fake.Calls("MarkVerified"))
}

func TestGate_ConfirmLink(t *testing.T) {
	fired := 0
	fake := &identitytest.Fake{}
	g := newTestGate(fake, newFakeClock(), WithMode(ModeLink), WithOnVerified(func(string) { fired++ }))

	g.ConfirmLink(context.Background())
	assert.True(t, g.Verified())
	g.ConfirmLink(context.Background())
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, fake.Calls("MarkVerified"))
}

func TestGate_MarkVerifiedFailureTolerated(t *testing.T) {
	fake := &identitytest.Fake{
		MarkVerifiedFn: func(context.Context, string) error {
			return &identity.APIError{Status: 500, Message: "profile sync failed"}
		},
	}
	g := newTestGate(fake, newFakeClock())

	ok, err := g.VerifyPIN(context.Background(), "123456")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, g.Verified())
}

func TestGate_SendAfterVerifiedRejected(t *testing.T) {
	fake := &identitytest.Fake{}
	g := newTestGate(fake, newFakeClock())

	_, err := g.VerifyPIN(context.Background(), "123456")
	require.NoError(t, err)

	err = g.Send(context.Background())
	assert.True(t, domainerrors.Is(err, domainerrors.CodeValidation))
	assert.Zero(t, fake.Calls("SendVerificationCode"))
}
