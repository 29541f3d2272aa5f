// Package metrics exposes the web UI counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Requests       *prometheus.CounterVec
	SavedTrials    prometheus.Counter
	Reports        *prometheus.CounterVec
	ConfigFallback *prometheus.CounterVec
	Sessions       prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jarlab",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		SavedTrials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jarlab",
			Name:      "saved_trials_total",
			Help:      "Trial rows appended to the measurement store.",
		}),
		Reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jarlab",
			Name:      "reports_total",
			Help:      "Reports and exports rendered, by format.",
		}, []string{"format"}),
		ConfigFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jarlab",
			Name:      "config_fallbacks_total",
			Help:      "Config files replaced by built-in defaults, by file and reason.",
		}, []string{"file", "reason"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jarlab",
			Name:      "sessions",
			Help:      "Live form sessions.",
		}),
	}
	reg.MustRegister(
		m.Requests, m.SavedTrials, m.Reports, m.ConfigFallback, m.Sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
