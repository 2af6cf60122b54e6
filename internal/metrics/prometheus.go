package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authorizer"

// PrometheusMetrics implements Metrics on client_golang collectors
type PrometheusMetrics struct {
	gatherer prometheus.Gatherer

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	decisions      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	scanPages      prometheus.Counter
	resolveSeconds *prometheus.HistogramVec
}

// NewPrometheus registers the authorizer collectors on reg. A nil reg means
// the default registry.
func NewPrometheus(reg *prometheus.Registry) *PrometheusMetrics {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	m := &PrometheusMetrics{
		gatherer: gatherer,

		// httpRequests counts requests served in HTTP mode, labeled by route and status.
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests, labeled by method, path and status.",
		}, []string{"method", "path", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "path"}),

		// decisions counts authorizer outcomes: allow, unauthorized, error.
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total number of authorization decisions, labeled by outcome.",
		}, []string{"outcome"}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of credential cache lookups, labeled by result.",
		}, []string{"result"}),

		scanPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_scan_pages_total",
			Help:      "Total number of API key listing pages fetched.",
		}),

		// resolveSeconds observes full-scan latency; every cache miss pays O(total keys).
		resolveSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "key_resolve_duration_seconds",
			Help:      "Histogram of API key resolution scan durations.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"found"}),
	}

	registerer.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.decisions,
		m.cacheLookups,
		m.scanPages,
		m.resolveSeconds,
	)
	return m
}

func (m *PrometheusMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordDecision(outcome string) {
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) RecordCacheLookup(result string) {
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) RecordKeyScanPage() {
	m.scanPages.Inc()
}

func (m *PrometheusMetrics) RecordKeyResolve(found bool, duration time.Duration) {
	m.resolveSeconds.WithLabelValues(strconv.FormatBool(found)).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
