package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics backs the Metrics interface with lazily registered
// Prometheus collectors. Add feeds counters and Store feeds gauges; a key is
// bound to whichever kind it is first used as.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	prefix   string

	mu       sync.Mutex
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

// NewPrometheusMetrics registers collectors on the provided registry, or on a
// fresh one when nil.
func NewPrometheusMetrics(registry *prometheus.Registry, prefix string) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &PrometheusMetrics{
		registry: registry,
		prefix:   prefix,
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
	}
}

func (m *PrometheusMetrics) Add(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	counter, ok := m.counters[key]
	if !ok {
		if _, isGauge := m.gauges[key]; isGauge {
			m.mu.Unlock()
			return
		}
		counter = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.prefix,
			Name:      key,
			Help:      "frog-pond counter " + key,
		})
		if err := m.registry.Register(counter); err != nil {
			m.mu.Unlock()
			return
		}
		m.counters[key] = counter
	}
	m.mu.Unlock()
	counter.Add(float64(delta))
}

func (m *PrometheusMetrics) Store(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	gauge, ok := m.gauges[key]
	if !ok {
		if _, isCounter := m.counters[key]; isCounter {
			m.mu.Unlock()
			return
		}
		gauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.prefix,
			Name:      key,
			Help:      "frog-pond gauge " + key,
		})
		if err := m.registry.Register(gauge); err != nil {
			m.mu.Unlock()
			return
		}
		m.gauges[key] = gauge
	}
	m.mu.Unlock()
	gauge.Set(float64(value))
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
