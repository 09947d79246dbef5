// Package metrics holds the Prometheus collectors of the risk service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeSuccess labels a successful upstream request. Failed requests are
// labelled with the failure kind.
const OutcomeSuccess = "success"

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	riskCompute      prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptorisk_upstream_requests_total",
				Help: "Upstream market data requests by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptorisk_cache_lookups_total",
				Help: "Market data cache lookups by provider and result",
			},
			[]string{"provider", "result"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptorisk_source_fallbacks_total",
				Help: "Times a data source was skipped or failed and the next one was tried",
			},
			[]string{"from"},
		),
		riskCompute: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cryptorisk_risk_compute_seconds",
				Help:    "Time spent computing a risk result",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptorisk_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"path", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptorisk_http_request_duration_seconds",
				Help:    "HTTP request latency by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}

	reg.MustRegister(
		m.upstreamRequests,
		m.cacheLookups,
		m.fallbacks,
		m.riskCompute,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// UpstreamRequest counts one upstream attempt.
func (m *Metrics) UpstreamRequest(provider, outcome string) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(provider, outcome).Inc()
}

// CacheLookup counts one cache lookup; result is hit, miss or shared.
func (m *Metrics) CacheLookup(provider, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(provider, result).Inc()
}

// Fallback counts a move past the named source.
func (m *Metrics) Fallback(from string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(from).Inc()
}

// ObserveRiskCompute records an engine run.
func (m *Metrics) ObserveRiskCompute(d time.Duration) {
	if m == nil {
		return
	}
	m.riskCompute.Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(path, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, status).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(d.Seconds())
}
