// Package metrics defines the Prometheus collectors for the sentiment
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ClassifyRequestsTotal *prometheus.CounterVec
	ClassifyLatency       prometheus.Histogram
	ClassifyBatchSize     prometheus.Histogram
	PredictionsTotal      *prometheus.CounterVec
	ModelAvailable        prometheus.Gauge
	TrainingDuration      prometheus.Histogram
	TrainingRunsTotal     *prometheus.CounterVec

	AnalysesTotal       *prometheus.CounterVec
	CommentFetchLatency prometheus.Histogram
	CommentsFetched     prometheus.Histogram
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	CircuitBreakerState *prometheus.GaugeVec
	RateLimitedTotal    prometheus.Counter
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ClassifyRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_classify_requests_total",
				Help: "Classify calls by outcome (ok, empty, model_unavailable, inference, timeout).",
			},
			[]string{"outcome"},
		),
		ClassifyLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sentiment_classify_latency_seconds",
				Help:    "Time spent vectorising and predicting one batch.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
		),
		ClassifyBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sentiment_classify_batch_size",
				Help:    "Number of texts per classify call.",
				Buckets: []float64{0, 1, 10, 25, 50, 100, 250, 500},
			},
		),
		PredictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_predictions_total",
				Help: "Predicted labels by class.",
			},
			[]string{"label"},
		),
		ModelAvailable: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentiment_model_available",
				Help: "1 when a fitted pipeline is loaded, 0 otherwise.",
			},
		),
		TrainingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sentiment_training_duration_seconds",
				Help:    "Wall time of pipeline training runs.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		TrainingRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_training_runs_total",
				Help: "Training runs by status (success, failure).",
			},
			[]string{"status"},
		),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_analyses_total",
				Help: "Video analyses by result kind.",
			},
			[]string{"result"},
		),
		CommentFetchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "youtube_comment_fetch_latency_seconds",
				Help:    "Latency of fetching comments from the YouTube Data API.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		CommentsFetched: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "youtube_comments_fetched",
				Help:    "Comments returned per fetch.",
				Buckets: []float64{0, 1, 10, 25, 50, 100, 250, 500},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of analysis cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of analysis cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ClassifyRequestsTotal,
		m.ClassifyLatency,
		m.ClassifyBatchSize,
		m.PredictionsTotal,
		m.ModelAvailable,
		m.TrainingDuration,
		m.TrainingRunsTotal,
		m.AnalysesTotal,
		m.CommentFetchLatency,
		m.CommentsFetched,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
		m.RateLimitedTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
