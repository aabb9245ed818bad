// Package retry implements bounded exponential backoff for transient
// remote failures. Registration submission and verification dispatch run
// through a Policy; session refresh deliberately does not (the refresh
// scheduler's next tick is the retry, which keeps refresh traffic flat
// when the identity service is degraded).
package retry

import (
	"context"
	"time"
)

// Classifier reports whether a failure is transient and worth retrying.
// Non-transient errors propagate on the first attempt.
type Classifier func(error) bool

// Policy drives retries of an asynchronous operation. The zero value is not
// usable; construct with New.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	classify    Classifier
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAttempts bounds the total number of attempts (not retries).
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the first backoff interval; each subsequent interval
// doubles until WithMaxDelay caps it.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.baseDelay = d
		}
	}
}

// WithMaxDelay caps the backoff interval.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.maxDelay = d
		}
	}
}

// WithClassifier overrides the transient-failure classifier.
func WithClassifier(c Classifier) Option {
	return func(p *Policy) {
		if c != nil {
			p.classify = c
		}
	}
}

// WithSleeper overrides the wait between attempts. Tests inject a recording
// sleeper instead of waiting on the wall clock.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// New constructs a Policy with the default envelope: 3 attempts,
// 500ms base delay doubling per attempt, capped at 3s.
func New(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		maxDelay:    3 * time.Second,
		classify:    func(error) bool { return false },
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Do invokes fn until it succeeds, fails non-transiently, exhausts
// maxAttempts, or ctx is done. The last error is returned unwrapped so
// callers can keep classifying it.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.classify(lastErr) || attempt == p.maxAttempts-1 {
			return lastErr
		}
		if err := p.sleep(ctx, p.Backoff(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// Backoff returns the wait after the given zero-based attempt:
// min(baseDelay << attempt, maxDelay).
func (p *Policy) Backoff(attempt int) time.Duration {
	d := p.baseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.maxDelay {
			return p.maxDelay
		}
	}
	if d > p.maxDelay {
		return p.maxDelay
	}
	return d
}

// MaxAttempts exposes the attempt bound for observability.
func (p *Policy) MaxAttempts() int { return p.maxAttempts }

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
