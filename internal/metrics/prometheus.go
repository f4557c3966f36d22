package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the counseling audio service
type Metrics struct {
	// Pipeline metrics
	AudioRequests       prometheus.Counter
	QuotaRejections     prometheus.Counter
	SimulationFallbacks prometheus.Counter
	AIResponses         prometheus.Counter
	ProcessingDuration  prometheus.Histogram

	// Provider metrics
	TranscriptionFailures prometheus.Counter
	TranslationFailures   prometheus.Counter

	// Persistence metrics
	RecordsPersisted    prometheus.Counter
	PersistenceFailures prometheus.Counter

	// Daily usage gauges, refreshed from the quota snapshot
	SpeechMinutesUsed  prometheus.Gauge
	TranslateCharsUsed prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// New creates all service metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AudioRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "koala_audio_requests_total",
			Help: "Total number of audio processing requests received",
		}),
		QuotaRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "koala_quota_rejections_total",
			Help: "Total number of requests rejected by the daily speech quota",
		}),
		SimulationFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "koala_simulation_fallbacks_total",
			Help: "Total number of responses produced by the simulation generator",
		}),
		AIResponses: factory.NewCounter(prometheus.CounterOpts{
			Name: "koala_ai_responses_total",
			Help: "Total number of responses produced by the AI pipeline",
		}),
		ProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "koala_processing_duration_seconds",
			Help:    "Duration of audio processing requests",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),

		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "koala_transcription_failures_total",
			Help: "Total number of failed speech recognition calls",
		}),
		TranslationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "koala_translation_failures_total",
			Help: "Total number of failed translation calls",
		}),

		RecordsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "koala_records_persisted_total",
			Help: "Total number of counseling records written to storage",
		}),
		PersistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "koala_persistence_failures_total",
			Help: "Total number of failed record writes",
		}),

		SpeechMinutesUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "koala_speech_minutes_used",
			Help: "Speech minutes consumed today against the daily quota",
		}),
		TranslateCharsUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "koala_translate_chars_used",
			Help: "Translation characters consumed today against the daily quota",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "koala_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "koala_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "koala_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordHTTPRequest records metrics for a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordHTTPError records an HTTP error by type
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

// RecordUsage refreshes the daily usage gauges
func (m *Metrics) RecordUsage(speechMinutes float64, translateChars int) {
	m.SpeechMinutesUsed.Set(speechMinutes)
	m.TranslateCharsUsed.Set(float64(translateChars))
}
