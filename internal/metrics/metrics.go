// Package metrics exposes Prometheus collectors for upstream provider calls,
// screening passes, record transitions and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec

	screenDuration      prometheus.Histogram
	screenFunds         prometheus.Gauge
	screenOpportunities prometheus.Gauge
	lastScreen          prometheus.Gauge

	recordTransitions *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector registers every collector under namespace ("lofbot" when
// empty), plus the Go runtime and process collectors.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "lofbot"
	}
	c := &Collector{registry: prometheus.NewRegistry()}

	c.providerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Upstream provider calls by provider, capability and outcome",
		},
		[]string{"provider", "capability", "outcome"},
	)
	c.providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Upstream provider call latency",
			Buckets:   prometheus.ExponentialBuckets(0.025, 2, 9), // 25ms to ~6s
		},
		[]string{"provider", "capability"},
	)

	c.screenDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "screen",
		Name:      "duration_seconds",
		Help:      "Wall time of one screening pass",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
	})
	c.screenFunds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "screen",
		Name:      "funds",
		Help:      "Funds that produced a result in the last screening pass",
	})
	c.screenOpportunities = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "screen",
		Name:      "opportunities",
		Help:      "Opportunities found in the last screening pass",
	})
	c.lastScreen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "screen",
		Name:      "last_completed_timestamp_seconds",
		Help:      "Unix time the last screening pass finished",
	})

	c.recordTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "transitions_total",
			Help:      "Arbitrage record lifecycle transitions",
		},
		[]string{"type", "status"},
	)

	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "code"},
	)
	c.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.providerCalls, c.providerLatency,
		c.screenDuration, c.screenFunds, c.screenOpportunities, c.lastScreen,
		c.recordTransitions,
		c.httpRequests, c.httpLatency,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveProviderCall matches reconcile.CallObserver.
func (c *Collector) ObserveProviderCall(provider, capability string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.providerCalls.WithLabelValues(provider, capability, outcome).Inc()
	c.providerLatency.WithLabelValues(provider, capability).Observe(d.Seconds())
}

// ObserveScreen records one finished screening pass.
func (c *Collector) ObserveScreen(d time.Duration, funds, opportunities int) {
	c.screenDuration.Observe(d.Seconds())
	c.screenFunds.Set(float64(funds))
	c.screenOpportunities.Set(float64(opportunities))
	c.lastScreen.SetToCurrentTime()
}

// RecordTransition counts a record entering status.
func (c *Collector) RecordTransition(arbType, status string) {
	c.recordTransitions.WithLabelValues(arbType, status).Inc()
}

// ObserveHTTP records one served request. route is the ServeMux pattern, not
// the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, code int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
