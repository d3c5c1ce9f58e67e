// Package metrics exposes Prometheus collectors for the enricher service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enrichJobsTotal            *prometheus.CounterVec
	enrichSourceOutcomesTotal  *prometheus.CounterVec
	enrichUploadedBytesTotal   *prometheus.CounterVec
	enrichActiveJobs           prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		enrichJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_jobs_total",
				Help: "Total number of enrichment jobs received, labeled by status.",
			},
			[]string{"status"},
		)

		enrichSourceOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_source_outcomes_total",
				Help: "Per-source enrichment outcomes, labeled by source and status.",
			},
			[]string{"source", "status"},
		)

		enrichUploadedBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_uploaded_bytes_total",
				Help: "Total asset bytes uploaded to blob storage, labeled by source.",
			},
			[]string{"source"},
		)

		enrichActiveJobs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "enrich_active_jobs",
				Help: "Number of enrichment jobs currently in flight.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given status.
func ObserveJob(status string) {
	enrichJobsTotal.WithLabelValues(status).Inc()
}

// ObserveSource records the terminal status of one enrichment source.
func ObserveSource(source, status string) {
	enrichSourceOutcomesTotal.WithLabelValues(source, status).Inc()
}

// ObserveUpload adds the uploaded asset size for the given source.
func ObserveUpload(source string, size int) {
	if size > 0 {
		enrichUploadedBytesTotal.WithLabelValues(source).Add(float64(size))
	}
}

// IncActiveJobs increments the in-flight jobs gauge.
func IncActiveJobs() {
	enrichActiveJobs.Inc()
}

// DecActiveJobs decrements the in-flight jobs gauge.
func DecActiveJobs() {
	enrichActiveJobs.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
