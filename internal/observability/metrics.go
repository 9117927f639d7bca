package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_warnings"

// Metrics holds the Prometheus collectors for the warnings service.
type Metrics struct {
	// Warnings requests.
	Requests         *prometheus.CounterVec // labels: outcome={ok,degraded}
	DegradedRequests *prometheus.CounterVec // labels: kind={configuration,validation,transport,parse,not_found,...}
	WarningsReturned prometheus.Histogram

	// Result cache.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,bypass}
	CacheErrors  *prometheus.CounterVec // labels: op={get,set}

	// Upstream API.
	UpstreamRequests *prometheus.CounterVec   // labels: endpoint={alerts,geocode,reverse}, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: endpoint

	// Geocoding cache.
	GeocodeCache *prometheus.CounterVec // labels: method={forward,reverse}, result={hit,miss}

	// Alert feed.
	AlertsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Requests,
		m.DegradedRequests,
		m.WarningsReturned,
		m.CacheLookups,
		m.CacheErrors,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.GeocodeCache,
		m.AlertsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Warnings requests by outcome.",
		}, []string{"outcome"}),
		DegradedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_requests_total",
			Help:      "Warnings requests answered with an empty list, by failure kind.",
		}, []string{"kind"}),
		WarningsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "warnings_returned",
			Help:      "Number of warnings returned per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Result cache backend failures by operation.",
		}, []string{"op"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "OpenWeather API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "OpenWeather API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Alerts written to the alert feed topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed alert feed writes.",
		}),
	}
}
