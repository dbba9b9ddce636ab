// Package metrics exposes Prometheus collectors for the freshness cache and
// the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fleet"

// Metrics implements freshness.Observer and records HTTP request outcomes.
type Metrics struct {
	registry *prometheus.Registry

	cacheRequests     *prometheus.CounterVec
	cacheLoadDuration *prometheus.HistogramVec
	cacheLoadErrors   *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Freshness cache lookups by result",
		},
		[]string{"key", "result"}, // result: hit, miss
	)
	m.cacheLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_load_duration_seconds",
			Help:      "Time spent loading a cache key from the store",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"key"},
	)
	m.cacheLoadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_load_errors_total",
			Help:      "Failed cache loads",
		},
		[]string{"key"},
	)
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status_code"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken for HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.cacheRequests.Describe(ch)
	m.cacheLoadDuration.Describe(ch)
	m.cacheLoadErrors.Describe(ch)
	m.httpRequests.Describe(ch)
	m.httpRequestDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.cacheRequests.Collect(ch)
	m.cacheLoadDuration.Collect(ch)
	m.cacheLoadErrors.Collect(ch)
	m.httpRequests.Collect(ch)
	m.httpRequestDuration.Collect(ch)
}

func (m *Metrics) Hit(key string)  { m.cacheRequests.WithLabelValues(key, "hit").Inc() }
func (m *Metrics) Miss(key string) { m.cacheRequests.WithLabelValues(key, "miss").Inc() }

func (m *Metrics) Loaded(key string, took time.Duration, err error) {
	m.cacheLoadDuration.WithLabelValues(key).Observe(took.Seconds())
	if err != nil {
		m.cacheLoadErrors.WithLabelValues(key).Inc()
	}
}

// ObserveRequest records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
