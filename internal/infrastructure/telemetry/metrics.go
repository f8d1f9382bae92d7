package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "sklad"

// Metrics holds the Prometheus collectors of the service.
// It satisfies the observer interfaces of the cache and marketplace packages.
type Metrics struct {
	registry *prometheus.Registry

	remoteRequests *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	cacheResults   *prometheus.CounterVec
	labelResults   *prometheus.CounterVec
	scanResults    *prometheus.CounterVec
	notifications  prometheus.Counter
}

// NewMetrics creates the collectors on a private registry.
// Go runtime and process collectors are included.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "remote_requests_total",
			Help:      "Remote API requests by api and outcome.",
		}, []string{"api", "outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Remote API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"api"}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by region and result.",
		}, []string{"region", "result"}),
		labelResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "labels_total",
			Help:      "Label documents processed by outcome.",
		}, []string{"outcome"}),
		scanResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scans_total",
			Help:      "Scan protocol steps by step and outcome.",
		}, []string{"step", "outcome"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "supply_notifications_total",
			Help:      "Supply update notifications requested.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.remoteRequests,
		m.remoteDuration,
		m.cacheResults,
		m.labelResults,
		m.scanResults,
		m.notifications,
	)
	return m
}

// RemoteRequest records one remote API call.
func (m *Metrics) RemoteRequest(api, outcome string, elapsed time.Duration) {
	m.remoteRequests.WithLabelValues(api, outcome).Inc()
	m.remoteDuration.WithLabelValues(api).Observe(elapsed.Seconds())
}

// CacheResult records one cache lookup.
func (m *Metrics) CacheResult(region, result string) {
	m.cacheResults.WithLabelValues(region, result).Inc()
}

// LabelResult records the outcome of one label document.
func (m *Metrics) LabelResult(outcome string) {
	m.labelResults.WithLabelValues(outcome).Inc()
}

// ScanResult records the outcome of one scan protocol step.
func (m *Metrics) ScanResult(step, outcome string) {
	m.scanResults.WithLabelValues(step, outcome).Inc()
}

// Notification records one supply update notification.
func (m *Metrics) Notification() {
	m.notifications.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
