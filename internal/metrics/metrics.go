package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the translation relay.
type Metrics struct {
	// Session metrics
	ActiveSessions prometheus.Gauge
	SessionsOpened prometheus.Counter
	SessionsClosed prometheus.Counter

	// Request metrics
	RequestsReceived prometheus.Counter
	DecodeErrors     prometheus.Counter
	RequestDuration  prometheus.Histogram

	// Upstream metrics
	TranslationSuccesses prometheus.Counter
	TranslationFailures  prometheus.Counter
}

// New creates all relay metrics registered against the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_sessions",
			Help: "Current number of open client sessions",
		}),
		SessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_sessions_opened_total",
			Help: "Total number of client sessions opened",
		}),
		SessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_sessions_closed_total",
			Help: "Total number of client sessions closed",
		}),
		RequestsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_requests_received_total",
			Help: "Total number of translation request frames received",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_decode_errors_total",
			Help: "Total number of malformed request frames",
		}),
		RequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_request_duration_seconds",
			Help:    "Time from request frame receipt to response frame write",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		TranslationSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_translation_successes_total",
			Help: "Total number of requests answered with a translation",
		}),
		TranslationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_translation_failures_total",
			Help: "Total number of requests answered with an error frame",
		}),
	}
}

// RecordSessionOpened tracks a new client session.
func (m *Metrics) RecordSessionOpened() {
	m.SessionsOpened.Inc()
	m.ActiveSessions.Inc()
}

// RecordSessionClosed tracks the end of a client session.
func (m *Metrics) RecordSessionClosed() {
	m.SessionsClosed.Inc()
	m.ActiveSessions.Dec()
}

// RecordRequest tracks one received request frame.
func (m *Metrics) RecordRequest() {
	m.RequestsReceived.Inc()
}

// RecordDecodeError tracks one malformed request frame.
func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

// RecordTranslationSuccess tracks one successful response.
func (m *Metrics) RecordTranslationSuccess(durationSeconds float64) {
	m.TranslationSuccesses.Inc()
	m.RequestDuration.Observe(durationSeconds)
}

// RecordTranslationFailure tracks one error-frame response.
func (m *Metrics) RecordTranslationFailure(durationSeconds float64) {
	m.TranslationFailures.Inc()
	m.RequestDuration.Observe(durationSeconds)
}
