// Package metrics provides Prometheus metrics for the covidmap dashboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Fetch attempt outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Manager manages all Prometheus metrics for the dashboard.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Upstream report fetching
	fetchAttempts     *prometheus.CounterVec
	fetchLatency      prometheus.Histogram
	fetchFallbackDays prometheus.Gauge
	fetchExhausted    prometheus.Counter

	// Dataset shape of the last rendered page
	datasetRows    prometheus.Gauge
	mapMarkers     prometheus.Gauge
	mapRowsDropped prometheus.Gauge
	renders        prometheus.Counter
	renderLatency  prometheus.Histogram

	// Upstream circuit breaker
	breakerState        *prometheus.GaugeVec
	breakerTransitions  *prometheus.CounterVec
	breakerRejected     *prometheus.CounterVec
	breakerConsecFailed *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
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

// Init replaces the global manager with one built from opts, registered on a
// fresh registry that GetRegistry then returns. Call it before serving.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "covidmap",
		subsystem:        "dashboard",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.fetchAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fetch_attempts_total"),
		Help:        "Daily report download attempts by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fetch_latency_milliseconds"),
		Help:        "Time to resolve and download a daily report in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.fetchFallbackDays = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fetch_fallback_days"),
		Help:        "How many days before today the last served report was published",
		ConstLabels: labels,
	})

	m.fetchExhausted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fetch_exhausted_total"),
		Help:        "Requests where no candidate report date was published",
		ConstLabels: labels,
	})

	m.datasetRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("dataset_rows"),
		Help:        "Rows in the last downloaded report",
		ConstLabels: labels,
	})

	m.mapMarkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("map_markers"),
		Help:        "Bubbles drawn on the last rendered map",
		ConstLabels: labels,
	})

	m.mapRowsDropped = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("map_rows_dropped"),
		Help:        "Rows left off the last map for missing name, location or count",
		ConstLabels: labels,
	})

	m.renders = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("renders_total"),
		Help:        "Dashboard views built successfully",
		ConstLabels: labels,
	})

	m.renderLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("render_latency_milliseconds"),
		Help:        "Time to build a dashboard view, fetch included, in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_state"),
		Help:        "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		ConstLabels: labels,
	}, []string{"name"})

	m.breakerTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_transitions_total"),
		Help:        "Circuit breaker state transitions",
		ConstLabels: labels,
	}, []string{"name", "from", "to"})

	m.breakerRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_rejected_total"),
		Help:        "Requests rejected while the circuit was open",
		ConstLabels: labels,
	}, []string{"name"})

	m.breakerConsecFailed = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_consecutive_failures"),
		Help:        "Current consecutive failures seen by the circuit breaker",
		ConstLabels: labels,
	}, []string{"name"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_type_total"),
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by HTTP endpoint",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("error_latency_milliseconds"),
		Help:        "Latency of operations that ended in an error",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Fetch Metrics Functions.

// RecordFetchAttempt counts one download attempt with outcome success, not_found or error.
func RecordFetchAttempt(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchAttempts.WithLabelValues(outcome).Inc()
}

// RecordFetchLatency records how long resolving a report took.
func RecordFetchLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchLatency.Observe(latencyMs)
}

// UpdateFetchFallbackDays sets how far back the served report is.
func UpdateFetchFallbackDays(days int) {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchFallbackDays.Set(float64(days))
}

// RecordFetchExhausted counts a request with no published candidate report.
func RecordFetchExhausted() {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchExhausted.Inc()
}

// Dashboard Metrics Functions.

// UpdateDatasetRows sets the row count of the last report.
func UpdateDatasetRows(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetRows.Set(float64(count))
}

// UpdateMapMarkers sets drawn and dropped row counts of the last map.
func UpdateMapMarkers(drawn, dropped int) {
	if !globalManager.enabled {
		return
	}
	globalManager.mapMarkers.Set(float64(drawn))
	globalManager.mapRowsDropped.Set(float64(dropped))
}

// RecordRender counts one successful view and its latency.
func RecordRender(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.renders.Inc()
	globalManager.renderLatency.Observe(latencyMs)
}

// Circuit Breaker Metrics Functions.

// UpdateBreakerState sets the numeric state (0=closed, 1=half-open, 2=open).
func UpdateBreakerState(name string, state float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.breakerState.WithLabelValues(name).Set(state)
}

// RecordBreakerTransition counts a state change.
func RecordBreakerTransition(name, from, to string) {
	if !globalManager.enabled {
		return
	}
	globalManager.breakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordBreakerRejected counts a request refused by an open circuit.
func RecordBreakerRejected(name string) {
	if !globalManager.enabled {
		return
	}
	globalManager.breakerRejected.WithLabelValues(name).Inc()
}

// UpdateBreakerConsecutiveFailures sets the breaker's consecutive failure count.
func UpdateBreakerConsecutiveFailures(name string, count uint32) {
	if !globalManager.enabled {
		return
	}
	globalManager.breakerConsecFailed.WithLabelValues(name).Set(float64(count))
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
