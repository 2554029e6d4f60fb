// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	upstream  *prometheus.CounterVec
	retries   *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	cache     *prometheus.CounterVec
	degraded  *prometheus.CounterVec
}

// New creates collectors registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotigen",
			Name:      "upstream_requests_total",
			Help:      "Outbound requests by service and HTTP status.",
		}, []string{"service", "status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotigen",
			Name:      "upstream_retries_total",
			Help:      "Retried outbound GET attempts by host.",
		}, []string{"host"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotigen",
			Name:      "token_refreshes_total",
			Help:      "Refresh-token grants by outcome.",
		}, []string{"outcome"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotigen",
			Name:      "enrichment_cache_total",
			Help:      "Enrichment cache lookups by prefix and result.",
		}, []string{"prefix", "result"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotigen",
			Name:      "best_effort_failures_total",
			Help:      "Swallowed failures of best-effort operations.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.upstream, m.retries, m.refreshes, m.cache, m.degraded)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Upstream counts one outbound response.
func (m *Metrics) Upstream(service string, status int) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(service, strconv.Itoa(status)).Inc()
}

// Retry counts one retried attempt.
func (m *Metrics) Retry(host string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(host).Inc()
}

// Refresh counts one refresh-token grant.
func (m *Metrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

// Cache counts one cache lookup.
func (m *Metrics) Cache(prefix string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(prefix, result).Inc()
}

// Degraded counts one swallowed best-effort failure.
func (m *Metrics) Degraded(op string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(op).Inc()
}
