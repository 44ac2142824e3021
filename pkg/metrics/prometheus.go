// Package metrics provides Prometheus metrics for the calmark calendar service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for color lookups.
const (
	LookupFromIndex    = "index"
	LookupFromPosition = "position"
	LookupMiss         = "miss"
)

// Label values for feed fetch outcomes.
const (
	FetchOK          = "ok"
	FetchError       = "error"
	FetchBadData     = "bad_data"
	FetchNotModified = "not_modified"
)

// Manager manages all Prometheus metrics for the calmark service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Core business metrics: index builds and color lookups
	indexBuilds       prometheus.Counter
	indexBuildErrors  prometheus.Counter
	indexBuildLatency prometheus.Histogram
	indexDots         prometheus.Counter
	invalidDates      prometheus.Counter
	colorLookups      *prometheus.CounterVec
	colorFallbacks    prometheus.Counter

	// Feed metrics
	feedFetches      *prometheus.CounterVec
	feedFetchLatency prometheus.Histogram
	worksCached      prometheus.Gauge
	eventsCached     prometheus.Gauge

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	refreshInFlight    prometheus.Gauge
	refreshDuplicates  prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error metrics
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "calmark",
		subsystem:        "calendar",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.indexBuilds = m.counter("index_builds_total", "Total number of marked-date index builds")
	m.indexBuildErrors = m.counter("index_build_errors_total", "Total number of index builds rejected by invalid input")
	m.indexBuildLatency = m.histogram("index_build_latency_milliseconds", "Index build latency in milliseconds", m.histogramBuckets)
	m.indexDots = m.counter("index_dots_total", "Total number of dot markers produced by index builds")
	m.invalidDates = m.counter("invalid_dates_total", "Total number of event or selection dates that failed to parse")
	m.colorLookups = m.counterVec("color_lookups_total", "Color lookups by resolution source", "source")
	m.colorFallbacks = m.counter("color_lookup_fallbacks_total", "Color lookups that missed the index and used the stale-index fallback")

	m.feedFetches = m.counterVec("feed_fetches_total", "Remote event feed fetches by outcome", "outcome")
	m.feedFetchLatency = m.histogram("feed_fetch_latency_milliseconds", "Remote event feed fetch latency in milliseconds", m.histogramBuckets)
	m.worksCached = m.gauge("works_cached", "Number of works with an event snapshot in memory")
	m.eventsCached = m.gauge("events_cached", "Number of events held across all snapshots")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("queue_size", "Current number of pending refresh jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum refresh queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Refresh queue utilization ratio (current size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of refresh jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of refresh jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected refresh jobs")
	m.refreshInFlight = m.gauge("refresh_in_flight", "Number of works with a refresh pending or running")
	m.refreshDuplicates = m.counter("refresh_duplicates_total", "Refresh requests dropped because one was already in flight")

	m.workerCount = m.gauge("worker_count", "Number of refresh workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Refresh job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of failed refresh jobs")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordIndexBuild records a successful index build with its dot count and latency.
func RecordIndexBuild(dots int, latencyMs float64) {
	globalManager.indexBuilds.Inc()
	globalManager.indexDots.Add(float64(dots))
	globalManager.indexBuildLatency.Observe(latencyMs)
}

// RecordIndexBuildError increments the failed index build counter.
func RecordIndexBuildError() {
	globalManager.indexBuildErrors.Inc()
}

// RecordInvalidDate increments the invalid date counter.
func RecordInvalidDate() {
	globalManager.invalidDates.Inc()
}

// RecordColorLookup records how a color lookup was resolved.
func RecordColorLookup(source string) {
	globalManager.colorLookups.WithLabelValues(source).Inc()
	if source != LookupFromIndex {
		globalManager.colorFallbacks.Inc()
	}
}

// RecordFeedFetch records a remote feed fetch outcome and latency.
func RecordFeedFetch(outcome string, latencyMs float64) {
	globalManager.feedFetches.WithLabelValues(outcome).Inc()
	globalManager.feedFetchLatency.Observe(latencyMs)
}

// UpdateCacheSize sets the cached works and events gauges.
func UpdateCacheSize(works, events int) {
	globalManager.worksCached.Set(float64(works))
	globalManager.eventsCached.Set(float64(events))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateRefreshInFlight sets the number of in-flight refreshes.
func UpdateRefreshInFlight(count int64) {
	globalManager.refreshInFlight.Set(float64(count))
}

// RecordRefreshDuplicate increments the dropped duplicate refresh counter.
func RecordRefreshDuplicate() {
	globalManager.refreshDuplicates.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records refresh job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
