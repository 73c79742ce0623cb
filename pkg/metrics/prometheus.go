// Package metrics provides Prometheus metrics for the admission score board.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Record store
	entriesFetched  *prometheus.CounterVec
	fetchErrors     *prometheus.CounterVec
	staleResponses  prometheus.Counter
	entriesRejected *prometheus.CounterVec

	// Submissions
	submissions       *prometheus.CounterVec
	submissionLatency prometheus.Histogram
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	workerCount       prometheus.Gauge

	// Session state
	favoritesCount prometheus.Gauge
	activeSessions prometheus.Gauge
	filterLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager registered on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "huikao",
		subsystem:        "board",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.entriesFetched = auto.NewCounterVec(
		m.counterOpts("entries_fetched_total", "Entries received from the record store"),
		[]string{"scope"},
	)
	m.fetchErrors = auto.NewCounterVec(
		m.counterOpts("fetch_errors_total", "Record store fetches that failed, by kind"),
		[]string{"kind"},
	)
	m.staleResponses = auto.NewCounter(
		m.counterOpts("stale_responses_total", "Fetch responses discarded because a newer request was issued"),
	)
	m.entriesRejected = auto.NewCounterVec(
		m.counterOpts("entries_rejected_total", "Entries dropped at the record store boundary or on submission"),
		[]string{"reason"},
	)

	m.submissions = auto.NewCounterVec(
		m.counterOpts("submissions_total", "Submissions by outcome"),
		[]string{"status"},
	)
	m.submissionLatency = auto.NewHistogram(
		m.histogramOpts("submission_latency_milliseconds", "Time from acceptance to record store write"),
	)
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Submissions waiting to be written"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum number of queued submissions"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Submission writers running"))

	m.favoritesCount = auto.NewGauge(m.gaugeOpts("favorites_count", "Bookmarked entries"))
	m.activeSessions = auto.NewGauge(m.gaugeOpts("active_sessions", "Sessions held in memory"))
	m.filterLatency = auto.NewHistogram(
		m.histogramOpts("filter_latency_milliseconds", "Time to filter, sort and group a view"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordEntriesFetched adds n entries fetched for scope ("page" or "all").
func RecordEntriesFetched(scope string, n int) {
	globalManager.entriesFetched.WithLabelValues(scope).Add(float64(n))
}

// RecordFetchError counts a failed fetch of the given kind.
func RecordFetchError(kind string) {
	globalManager.fetchErrors.WithLabelValues(kind).Inc()
}

// RecordStaleResponse counts a discarded out-of-date response.
func RecordStaleResponse() {
	globalManager.staleResponses.Inc()
}

// RecordEntryRejected counts an entry dropped for reason.
func RecordEntryRejected(reason string) {
	globalManager.entriesRejected.WithLabelValues(reason).Inc()
}

// RecordSubmission counts a submission outcome.
func RecordSubmission(status string) {
	globalManager.submissions.WithLabelValues(status).Inc()
}

// RecordSubmissionLatency records how long a submission waited before it was written.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateFavoritesCount sets the number of bookmarked entries.
func UpdateFavoritesCount(count int) {
	globalManager.favoritesCount.Set(float64(count))
}

// UpdateActiveSessions sets the number of live sessions.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordFilterLatency records view computation time.
func RecordFilterLatency(latencyMs float64) {
	globalManager.filterLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
