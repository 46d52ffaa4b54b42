package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	studentMutations     *prometheus.CounterVec
	importedSuggestions  *prometheus.CounterVec
	dashboardCacheTotal  *prometheus.CounterVec
	feedConnectionsGauge prometheus.Gauge
	feedEventsTotal      *prometheus.CounterVec
	integrityWarnings    prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		studentMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "student_mutations_total",
			Help: "Student record mutations by operation and outcome.",
		}, []string{"operation", "outcome"})

		importedSuggestions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suggestion_import_items_total",
			Help: "Suggested tasks processed by the bulk importer.",
		}, []string{"outcome"})

		dashboardCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_cache_requests_total",
			Help: "Dashboard cache lookups by result.",
		}, []string{"result"})

		feedConnectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feed_connections_active",
			Help: "Open live feed websocket connections.",
		})

		feedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_events_total",
			Help: "Student events delivered to the live feed.",
		}, []string{"type", "origin"})

		integrityWarnings = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "integrity_warnings",
			Help: "Warnings found by the last integrity check.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			studentMutations,
			importedSuggestions,
			dashboardCacheTotal,
			feedConnectionsGauge,
			feedEventsTotal,
			integrityWarnings,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// StudentMutations counts gateway writes.
func StudentMutations() *prometheus.CounterVec {
	RegisterMetrics()
	return studentMutations
}

// ImportedSuggestions counts importer outcomes (added, skipped, unprocessed).
func ImportedSuggestions() *prometheus.CounterVec {
	RegisterMetrics()
	return importedSuggestions
}

// DashboardCache counts dashboard cache hits and misses.
func DashboardCache() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardCacheTotal
}

// FeedConnections tracks open live feed sockets.
func FeedConnections() prometheus.Gauge {
	RegisterMetrics()
	return feedConnectionsGauge
}

// FeedEvents counts events pushed to live feed clients.
func FeedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return feedEventsTotal
}

// IntegrityWarnings reports the warning count of the most recent integrity check.
func IntegrityWarnings() prometheus.Gauge {
	RegisterMetrics()
	return integrityWarnings
}
