package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics of the plan service
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// External database metrics
	QueriesTotal    *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec
	ConnectFailures *prometheus.CounterVec
	ConnectionUp    *prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Business Metrics
	ChartsRenderedTotal *prometheus.CounterVec
	FieldSaveFailures   *prometheus.CounterVec
}

// NewMetricsRegistry registers every metric on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plp_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plp_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plp_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// External database metrics
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plp_section_queries_total",
				Help: "Total db-section queries by query type and outcome",
			},
			[]string{"query_type", "outcome"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plp_section_query_duration_seconds",
				Help:    "db-section query execution time in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"query_type"},
		),
		ConnectFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plp_mis_connect_failures_total",
				Help: "External database connection failures by reason code",
			},
			[]string{"code"},
		),
		ConnectionUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plp_mis_connection_up",
				Help: "1 if the last probe of an enabled external database succeeded",
			},
			[]string{"connection"},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plp_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plp_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// Business Metrics
		ChartsRenderedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plp_charts_rendered_total",
				Help: "Charts rendered by chart type",
			},
			[]string{"chart_type"},
		),
		FieldSaveFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plp_field_save_failures_total",
				Help: "Field values that could not be saved, by field type",
			},
			[]string{"field_type"},
		),
	}
}
