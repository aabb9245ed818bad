package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"identikit/internal/identity"
	"identikit/internal/platform/metrics"
)

const refreshFlightKey = "refresh"

// Callbacks let the host application react to lifecycle transitions.
// Both are optional; nil callbacks are skipped.
type Callbacks struct {
	// OnSessionExpired surfaces the "session expired" notice.
	OnSessionExpired func(message string)
	// OnRedirectLogin navigates to the login entry point. Invoked after
	// RedirectDelay on terminal refresh failure, and immediately on logout.
	OnRedirectLogin func()
}

// Manager coordinates token validity, proactive refresh, and forced
// logout. One instance per running application; construct with New and
// pair every Init with a Destroy.
type Manager struct {
	store TokenStore
	svc   identity.Service

	log     zerolog.Logger
	metrics *metrics.Metrics

	scheduler     Scheduler
	threshold     time.Duration
	checkInterval time.Duration
	redirectDelay time.Duration
	callbacks     Callbacks

	now   func() time.Time
	after func(d time.Duration, fn func()) // redirect delay, injectable

	// Overlapping refresh callers share one in-flight network call
	// instead of one being silently dropped.
	flight singleflight.Group

	mu   sync.Mutex
	stop func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithMetrics attaches lifecycle metrics.
func WithMetrics(mx *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mx }
}

// WithScheduler overrides the refresh-check scheduler.
func WithScheduler(s Scheduler) ManagerOption {
	return func(m *Manager) {
		if s != nil {
			m.scheduler = s
		}
	}
}

// WithRefreshThreshold sets the remaining-life floor below which a
// proactive refresh is issued.
func WithRefreshThreshold(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.threshold = d
		}
	}
}

// WithCheckInterval sets the scheduler period.
func WithCheckInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.checkInterval = d
		}
	}
}

// WithRedirectDelay sets the pause between the expired notice and the
// login redirect.
func WithRedirectDelay(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 0 {
			m.redirectDelay = d
		}
	}
}

// WithCallbacks registers lifecycle callbacks.
func WithCallbacks(cb Callbacks) ManagerOption {
	return func(m *Manager) { m.callbacks = cb }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func withAfterFunc(after func(time.Duration, func())) ManagerOption {
	return func(m *Manager) {
		if after != nil {
			m.after = after
		}
	}
}

// New constructs a Manager around a token store and the identity service.
func New(store TokenStore, svc identity.Service, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:         store,
		svc:           svc,
		log:           zerolog.Nop(),
		scheduler:     TickerScheduler{},
		threshold:     5 * time.Minute,
		checkInterval: 60 * time.Second,
		redirectDelay: 2 * time.Second,
		now:           time.Now,
		after: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Init restores the persisted session. Returns false when no complete
// quadruple exists (caller treats as unauthenticated) or when the initial
// expiry check fails. On success the recurring refresh check is started.
func (m *Manager) Init(ctx context.Context) bool {
	sess, err := m.store.Load(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("no stored session, starting unauthenticated")
		return false
	}

	// Push the stored pair to the identity layer so server-side row
	// policies see this session. Not fatal when it fails.
	if err := m.svc.SyncSession(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
		m.log.Warn().Err(err).Msg("session sync failed, continuing with local tokens")
	}

	if !m.CheckAndRefresh(ctx) {
		m.log.Info().Msg("session bootstrap failed")
		return false
	}

	m.startScheduler()
	m.log.Info().Str("user_id", sess.UserID).Msg("session initialized")
	return true
}

// SetSession establishes a fresh session from a token pair, deriving the
// user ID and expiry from the access token's claims. Used after login or
// a completed verification, before Init.
func (m *Manager) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return fmt.Errorf("parse access token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return errors.New("access token has no usable exp claim")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return errors.New("access token has no usable sub claim")
	}

	return m.store.Save(ctx, &Session{
		UserID:       sub,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    exp.Time,
	})
}

// CheckAndRefresh refreshes only when remaining token life has dropped
// below the threshold; otherwise it returns true without any network call.
func (m *Manager) CheckAndRefresh(ctx context.Context) bool {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return false
	}

	remaining := sess.RemainingLife(m.now())
	if remaining >= m.threshold {
		m.metrics.ObserveRefresh("skipped", 0)
		m.log.Debug().Dur("remaining", remaining).Msg("token still fresh")
		return true
	}

	m.log.Info().Dur("remaining", remaining).Msg("token expiring soon, refreshing")
	return m.Refresh(ctx)
}

// Refresh exchanges the stored refresh token for a new quadruple. Exactly
// one network call is in flight at a time; overlapping callers share its
// result. Terminal rejections clear the session and force logout; any
// other failure keeps the stale quadruple for the scheduler's next tick.
// Refresh is deliberately not wrapped in a retry policy.
func (m *Manager) Refresh(ctx context.Context) bool {
	result, err, shared := m.flight.Do(refreshFlightKey, func() (any, error) {
		return m.refreshOnce(ctx), nil
	})
	if shared {
		m.metrics.ObserveRefresh("deduped", 0)
	}
	if err != nil {
		return false
	}
	return result.(bool)
}

func (m *Manager) refreshOnce(ctx context.Context) bool {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return false
	}

	start := m.now()
	pair, err := m.svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if identity.IsTerminalRefresh(err) {
			m.metrics.ObserveRefresh("terminal", m.now().Sub(start))
			m.log.Warn().Err(err).Msg("refresh token rejected, forcing logout")
			m.handleRefreshFailure(ctx)
			return false
		}
		// Transient: keep the stale quadruple, the next tick retries.
		m.metrics.ObserveRefresh("failed", m.now().Sub(start))
		m.log.Warn().Err(err).Msg("refresh failed, keeping session until next check")
		return false
	}

	if err := m.store.Save(ctx, &Session{
		UserID:       pair.UserID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}); err != nil {
		m.metrics.ObserveRefresh("failed", m.now().Sub(start))
		m.log.Error().Err(err).Msg("persisting refreshed session failed")
		return false
	}

	if err := m.svc.SyncSession(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		m.log.Warn().Err(err).Msg("post-refresh session sync failed")
	}

	m.metrics.ObserveRefresh("refreshed", m.now().Sub(start))
	m.log.Info().Time("expires_at", pair.ExpiresAt).Msg("token refreshed")
	return true
}

// handleRefreshFailure is the terminal path: clear local state, surface
// the notice, and redirect to login after the configured delay so the
// notice is visible first.
func (m *Manager) handleRefreshFailure(ctx context.Context) {
	m.stopScheduler()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error().Err(err).Msg("clearing session failed")
	}
	if m.callbacks.OnSessionExpired != nil {
		m.callbacks.OnSessionExpired("Your session has expired. Please log in again.")
	}
	if m.callbacks.OnRedirectLogin != nil {
		m.after(m.redirectDelay, m.callbacks.OnRedirectLogin)
	}
}

// Logout best-effort notifies the identity service, then always clears
// local state and redirects. A dead network never traps the user in a
// session they asked to leave.
func (m *Manager) Logout(ctx context.Context) {
	if sess, err := m.store.Load(ctx); err == nil {
		if err := m.svc.Logout(ctx, sess.RefreshToken); err != nil {
			m.log.Warn().Err(err).Msg("server-side logout failed, clearing locally anyway")
		}
	}

	m.stopScheduler()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error().Err(err).Msg("clearing session failed")
	}
	m.log.Info().Msg("logged out")
	if m.callbacks.OnRedirectLogin != nil {
		m.callbacks.OnRedirectLogin()
	}
}

// SessionInfo is a pure read of the current session state.
func (m *Manager) SessionInfo(ctx context.Context) (Info, bool) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return Info{}, false
	}
	remaining := sess.RemainingLife(m.now())
	return Info{
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
		ExpiresIn: remaining,
		Expired:   remaining <= 0,
	}, true
}

// IsAuthenticated reports whether an unexpired session is present.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	info, ok := m.SessionInfo(ctx)
	return ok && !info.Expired
}

// Destroy stops the background refresh check. Safe to call multiple times.
func (m *Manager) Destroy() {
	m.stopScheduler()
}

func (m *Manager) startScheduler() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}
	m.stop = m.scheduler.Every(m.checkInterval, func() {
		m.CheckAndRefresh(context.Background())
	})
}

func (m *Manager) stopScheduler() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
}
