// Package metrics exposes Prometheus metrics for the adapter registry and
// the HTTP API on a dedicated registry.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
)

const namespace = "edgemining"

// Construction outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnsupported = "unsupported"
	OutcomeUnresolved  = "unresolved_dependency"
	OutcomeFailed      = "failed"
)

// Collector owns every metric the service exports.
// It implements adapter.Metrics.
type Collector struct {
	registry *prometheus.Registry

	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	constructions      *prometheus.CounterVec
	typeGuards         *prometheus.CounterVec
	invalidations      *prometheus.CounterVec
	invalidatedEntries *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ adapter.Metrics = (*Collector)(nil)

// New creates a collector with Go runtime and process metrics included.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "registry",
			Name: "cache_hits_total",
			Help: "Adapter lookups served from the instance cache.",
		}, []string{"category"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "registry",
			Name: "cache_misses_total",
			Help: "Adapter lookups that had to construct an instance.",
		}, []string{"category"}),
		constructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "registry",
			Name: "constructions_total",
			Help: "Adapter constructions by outcome.",
		}, []string{"category", "adapter_type", "outcome"}),
		typeGuards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "registry",
			Name: "type_guard_violations_total",
			Help: "Cached instances discarded because they no longer satisfy their port.",
		}, []string{"category"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "registry",
			Name: "invalidations_total",
			Help: "Cache invalidation operations.",
		}, []string{"cache"}),
		invalidatedEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "registry",
			Name: "invalidated_entries_total",
			Help: "Cache entries dropped by invalidation.",
		}, []string{"cache"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http",
			Name: "requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http",
			Name:    "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.cacheHits, c.cacheMisses, c.constructions, c.typeGuards,
		c.invalidations, c.invalidatedEntries,
		c.httpRequests, c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// CacheHit implements adapter.Metrics.
func (c *Collector) CacheHit(category adapter.Category) {
	c.cacheHits.WithLabelValues(string(category)).Inc()
}

// CacheMiss implements adapter.Metrics.
func (c *Collector) CacheMiss(category adapter.Category) {
	c.cacheMisses.WithLabelValues(string(category)).Inc()
}

// TypeGuardViolation implements adapter.Metrics.
func (c *Collector) TypeGuardViolation(category adapter.Category) {
	c.typeGuards.WithLabelValues(string(category)).Inc()
}

// Construction implements adapter.Metrics.
func (c *Collector) Construction(category adapter.Category, adapterType adapter.AdapterType, err error) {
	c.constructions.WithLabelValues(string(category), string(adapterType), Outcome(err)).Inc()
}

// Invalidation implements adapter.Metrics.
func (c *Collector) Invalidation(cache string, entries int) {
	c.invalidations.WithLabelValues(cache).Inc()
	c.invalidatedEntries.WithLabelValues(cache).Add(float64(entries))
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RegisterCacheSize exports a gauge read from size on every scrape.
func (c *Collector) RegisterCacheSize(cache string, size func() int) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "registry",
		Name:        "cache_entries",
		Help:        "Entries currently held in a registry cache.",
		ConstLabels: prometheus.Labels{"cache": cache},
	}, func() float64 { return float64(size()) }))
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Outcome maps a construction error to its metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, adapter.ErrUnsupportedAdapterType):
		return OutcomeUnsupported
	case errors.Is(err, adapter.ErrUnresolvedDependency):
		return OutcomeUnresolved
	default:
		return OutcomeFailed
	}
}
