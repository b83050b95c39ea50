// Package metrics exposes quiz activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hanzi-quiz-service/internal/domain"
)

// Collector records session lifecycle events. It implements app.Observer.
type Collector struct {
	registry *prometheus.Registry

	sessionsStarted  *prometheus.CounterVec
	answers          *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	sessionDuration  *prometheus.HistogramVec
	loginAttempts    *prometheus.CounterVec
}

// NewCollector registers the quiz metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		sessionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_sessions_started_total",
				Help: "Total number of quiz rounds started",
			},
			[]string{"exercise"},
		),
		answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_answers_total",
				Help: "Total number of answers recorded",
			},
			[]string{"exercise", "result"}, // result: correct/incorrect/timeout
		),
		sessionsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_sessions_finished_total",
				Help: "Total number of quiz rounds finished",
			},
			[]string{"exercise", "reason"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "quiz_active_sessions_current",
				Help: "Current number of rounds in progress",
			},
		),
		sessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_session_duration_seconds",
				Help:    "Wall time from round start to finish",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"exercise"},
		),
		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"status"},
		),
	}
}

func (c *Collector) SessionStarted(info domain.SessionInfo) {
	c.sessionsStarted.WithLabelValues(string(info.Exercise)).Inc()
	c.activeSessions.Inc()
}

func (c *Collector) AnswerRecorded(info domain.SessionInfo, result domain.AnswerResult) {
	outcome := "incorrect"
	switch {
	case result.TimedOut:
		outcome = "timeout"
	case result.Correct:
		outcome = "correct"
	}
	c.answers.WithLabelValues(string(info.Exercise), outcome).Inc()
}

func (c *Collector) SessionFinished(summary domain.SessionSummary) {
	c.sessionsFinished.WithLabelValues(string(summary.Exercise), string(summary.Reason)).Inc()
	c.activeSessions.Dec()
	if !summary.StartedAt.IsZero() && summary.FinishedAt.After(summary.StartedAt) {
		c.sessionDuration.WithLabelValues(string(summary.Exercise)).Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	}
}

// LoginAttempt counts a login by outcome.
func (c *Collector) LoginAttempt(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	c.loginAttempts.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
