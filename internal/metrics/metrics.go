// Package metrics exposes Prometheus collectors for the syllabus crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal            *prometheus.CounterVec
	requestDurationSeconds   *prometheus.HistogramVec
	requestRetriesTotal      *prometheus.CounterVec
	requestsInFlight         prometheus.Gauge
	coursesTotal             *prometheus.CounterVec
	runsTotal                *prometheus.CounterVec
	runDurationSeconds       *prometheus.HistogramVec
	artifactBytes            *prometheus.GaugeVec
	rateLimitDelaysSeconds   *prometheus.HistogramVec
	courseStoreUpsertsTotal  *prometheus.CounterVec
	notificationsFailedTotal prometheus.Counter

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		requestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "syllabus_requests_total",
				Help: "Total number of catalog site requests, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		requestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "syllabus_request_duration_seconds",
				Help:    "Histogram of catalog site request latencies, labeled by kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)

		requestRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "syllabus_request_retries_total",
				Help: "Total number of retried requests, labeled by kind.",
			},
			[]string{"kind"},
		)

		requestsInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "syllabus_requests_in_flight",
				Help: "Number of outbound requests currently in flight.",
			},
		)

		coursesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "syllabus_courses_total",
				Help: "Total number of course detail tasks, labeled by department and outcome.",
			},
			[]string{"department", "outcome"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "syllabus_runs_total",
				Help: "Total number of department runs, labeled by department and final state.",
			},
			[]string{"department", "state"},
		)

		runDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "syllabus_run_duration_seconds",
				Help:    "Histogram of department run durations.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"department"},
		)

		artifactBytes = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "syllabus_artifact_bytes",
				Help: "Size of the last published artifact, labeled by department.",
			},
			[]string{"department"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "syllabus_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		courseStoreUpsertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "syllabus_course_store_upserts_total",
				Help: "Total number of courses written to the course store, labeled by department and change.",
			},
			[]string{"department", "change"},
		)

		notificationsFailedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "syllabus_notifications_failed_total",
				Help: "Total number of run status notifications that could not be published.",
			},
		)
	})
}

// SanitizeHost extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one fetch attempt.
func ObserveRequest(kind, outcome string, duration time.Duration) {
	Init()
	requestsTotal.WithLabelValues(kind, outcome).Inc()
	requestDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveRetry increments the retry counter.
func ObserveRetry(kind string) {
	Init()
	requestRetriesTotal.WithLabelValues(kind).Inc()
}

// IncInFlight increments the in-flight request gauge.
func IncInFlight() {
	Init()
	requestsInFlight.Inc()
}

// DecInFlight decrements the in-flight request gauge.
func DecInFlight() {
	Init()
	requestsInFlight.Dec()
}

// ObserveCourse records the outcome of one course detail task.
func ObserveCourse(department, outcome string) {
	Init()
	coursesTotal.WithLabelValues(department, outcome).Inc()
}

// ObserveRun records a finished department run.
func ObserveRun(department, state string, duration time.Duration) {
	Init()
	runsTotal.WithLabelValues(department, state).Inc()
	runDurationSeconds.WithLabelValues(department).Observe(duration.Seconds())
}

// ObserveArtifact records the size of a published artifact.
func ObserveArtifact(department string, size int) {
	Init()
	artifactBytes.WithLabelValues(department).Set(float64(size))
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveUpsert records courses written to the course store.
func ObserveUpsert(department, change string, count int) {
	Init()
	courseStoreUpsertsTotal.WithLabelValues(department, change).Add(float64(count))
}

// ObserveNotificationFailure increments the failed notification counter.
func ObserveNotificationFailure() {
	Init()
	notificationsFailedTotal.Inc()
}
