package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics records credential outcomes and password hashing latency.
type AuthMetrics struct {
	outcomes *prometheus.CounterVec
	hashing  *prometheus.HistogramVec
}

// NewAuthMetrics registers the auth metrics on the provided registerer.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	if reg == nil {
		return &AuthMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Register, login and session resolution attempts by outcome.",
	}, []string{"action", "outcome"})
	hashing := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_password_hash_seconds",
		Help:    "Argon2id hash and verify durations.",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2},
	}, []string{"op"})
	reg.MustRegister(outcomes, hashing)
	return &AuthMetrics{outcomes: outcomes, hashing: hashing}
}

// IncOutcome counts an auth attempt, e.g. ("login", "invalid_credentials").
func (a *AuthMetrics) IncOutcome(action, outcome string) {
	if a == nil || a.outcomes == nil {
		return
	}
	a.outcomes.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// ObserveHash records an argon2 hash or verify duration.
func (a *AuthMetrics) ObserveHash(op string, duration time.Duration) {
	if a == nil || a.hashing == nil {
		return
	}
	a.hashing.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}
