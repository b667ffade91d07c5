package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugenenazirov/envyaml"
)

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics holds the Prometheus collectors exposed on /metrics. Each instance
// owns its registry so several servers (or tests) never collide.
type Metrics struct {
	registry *prometheus.Registry
	lookups  *prometheus.CounterVec
	reloads  *prometheus.CounterVec
	keys     prometheus.Gauge
	limited  prometheus.Counter
}

// NewMetrics registers the envyaml collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envyaml",
			Name:      "lookups_total",
			Help:      "Key lookups served, by result.",
		}, []string{"result"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envyaml",
			Name:      "reloads_total",
			Help:      "Configuration reloads, by result.",
		}, []string{"result"}),
		keys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "envyaml",
			Name:      "config_keys",
			Help:      "Number of keys in the configuration currently served.",
		}),
		limited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "envyaml",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
	m.registry.MustRegister(m.lookups, m.reloads, m.keys, m.limited)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeKeys(cfg *envyaml.Config) {
	if cfg == nil {
		return
	}
	m.keys.Set(float64(cfg.Len()))
}

func (m *Metrics) observeRateLimited() {
	if m == nil {
		return
	}
	m.limited.Inc()
}
