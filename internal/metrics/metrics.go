// Package metrics provides Prometheus metrics collection for the prediction API.
// It defines the serving, validation and model metrics exposed on /metrics
// for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction API.
// Per-model series carry a "model" label ("iris" or "loan").
type Metrics struct {
	// Request metrics
	HTTPRequests *prometheus.CounterVec   // Requests by path, method and status code
	HTTPDuration *prometheus.HistogramVec // Handler latency by path

	// Prediction metrics
	Predictions        *prometheus.CounterVec   // Samples predicted successfully
	PredictionFailures *prometheus.CounterVec   // Model invocations that failed
	ValidationFailures *prometheus.CounterVec   // Requests rejected as INVALID_INPUT
	PredictionLatency  *prometheus.HistogramVec // Model invocation latency
	BatchSize          prometheus.Histogram     // Applications per batch request
	ModelAge           *prometheus.GaugeVec     // Seconds since the artifact was trained

	// Streaming metrics
	StreamConnections prometheus.Gauge // Open websocket prediction streams

	// Audit metrics
	AuditWriteErrors prometheus.Counter // Prediction records that failed to persist
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		}, []string{"path", "method", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of samples predicted",
		}, []string{"model"}),
		PredictionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of failed model invocations",
		}, []string{"model"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_validation_failures_total",
			Help: "Total number of requests rejected by input validation",
		}, []string{"model"}),
		PredictionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Model invocation latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"model"}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_batch_size",
			Help:    "Number of applications per batch request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11),
		}),
		ModelAge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the loaded model artifact in seconds",
		}, []string{"model"}),
		StreamConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_stream_connections",
			Help: "Number of open websocket prediction streams",
		}),
		AuditWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_audit_write_errors_total",
			Help: "Total number of prediction records that failed to persist",
		}),
	}
}
