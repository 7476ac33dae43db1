package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the collectors the rest of
// the services report into. A nil *MetricsService is valid and drops every
// observation, so tests can pass nil.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	scrapes        *prometheus.CounterVec
	scrapeDuration *prometheus.HistogramVec
	matchDuration  prometheus.Histogram
}

// NewMetricsService constructs the registry and registers all collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursescout_http_requests_total",
			Help: "HTTP requests by method, route, and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursescout_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursescout_cache_lookups_total",
			Help: "Cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursescout_scrapes_total",
			Help: "Upstream scrape operations by source and status.",
		}, []string{"source", "status"}),
		scrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursescout_scrape_duration_seconds",
			Help:    "Upstream scrape latency by source.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		matchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursescout_match_duration_seconds",
			Help:    "Schedule matching run latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.cacheLookups,
		m.scrapes,
		m.scrapeDuration,
		m.matchDuration,
	)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTP counts one handled request.
func (m *MetricsService) RecordHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordCacheLookup counts one lookup against a cache tier.
func (m *MetricsService) RecordCacheLookup(tier, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(tier, result).Inc()
}

// RecordScrape counts one upstream operation.
func (m *MetricsService) RecordScrape(source, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.scrapes.WithLabelValues(source, status).Inc()
	m.scrapeDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordMatch observes one matching run.
func (m *MetricsService) RecordMatch(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.matchDuration.Observe(elapsed.Seconds())
}
