package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the session and registration lifecycle.
type Metrics struct {
	// Refresh outcomes: "refreshed", "skipped", "deduped", "failed", "terminal"
	RefreshOutcome *prometheus.CounterVec

	// Refresh call latency against the identity service.
	RefreshLatency prometheus.Histogram

	// Retry attempts consumed per operation before it settled.
	RetryAttempts *prometheus.HistogramVec

	// Registration outcomes: "new_user", "existing_user", "validation_failed", "transient_failure"
	RegistrationOutcome *prometheus.CounterVec

	// Verification sends by channel ("pin", "link") and result ("ok", "fallback", "cooldown", "failed").
	VerificationSend *prometheus.CounterVec
}

// New creates a Metrics instance with all lifecycle metrics registered.
func New() *Metrics {
	return &Metrics{
		RefreshOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "identikit_session_refresh_total",
			Help: "Session refresh outcomes",
		}, []string{"outcome"}),

		RefreshLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "identikit_session_refresh_duration_seconds",
			Help:    "Duration of token refresh calls against the identity service",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		RetryAttempts: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "identikit_retry_attempts",
			Help:    "Attempts consumed per retried operation",
			Buckets: []float64{1, 2, 3},
		}, []string{"operation"}),

		RegistrationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "identikit_registration_outcomes_total",
			Help: "Registration submission outcomes",
		}, []string{"outcome"}),

		VerificationSend: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "identikit_verification_sends_total",
			Help: "Verification dispatches by channel and result",
		}, []string{"channel", "result"}),
	}
}

// ObserveRefresh records a refresh outcome, and its latency when a network
// call actually happened.
func (m *Metrics) ObserveRefresh(outcome string, d time.Duration) {
	if m != nil {
		m.RefreshOutcome.WithLabelValues(outcome).Inc()
		if d > 0 {
			m.RefreshLatency.Observe(d.Seconds())
		}
	}
}

// ObserveRetryAttempts records how many attempts an operation consumed.
func (m *Metrics) ObserveRetryAttempts(operation string, attempts int) {
	if m != nil {
		m.RetryAttempts.WithLabelValues(operation).Observe(float64(attempts))
	}
}

// IncrementRegistration records a registration submission outcome.
func (m *Metrics) IncrementRegistration(outcome string) {
	if m != nil {
		m.RegistrationOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementVerificationSend records a verification dispatch.
func (m *Metrics) IncrementVerificationSend(channel, result string) {
	if m != nil {
		m.VerificationSend.WithLabelValues(channel, result).Inc()
	}
}
