package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alfred"

// Label values
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"

	ResultHealthy   = "healthy"
	ResultUnhealthy = "unhealthy"

	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"

	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeNoAgent = "no_agent"
)

// Metrics holds the coordinator collectors on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	agentsRegistered prometheus.Gauge
	agentsHealthy    prometheus.Gauge
	discoveryProbes  *prometheus.CounterVec
	healthSweeps     *prometheus.CounterVec
	healthChecks     *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	commands         *prometheus.CounterVec
}

// New creates the collectors and registers them with a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		agentsRegistered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents_registered",
			Help:      "Number of agents in the directory.",
		}),
		agentsHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents_healthy",
			Help:      "Number of agents marked healthy.",
		}),
		discoveryProbes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_probes_total",
			Help:      "Capability probes sent to discovery candidates.",
		}, []string{"result"}),
		healthSweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_sweeps_total",
			Help:      "Health sweeps requested, by outcome.",
		}, []string{"outcome"}),
		healthChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_checks_total",
			Help:      "Per-agent health verdicts.",
		}, []string{"result"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "health_sweep_duration_seconds",
			Help:      "Duration of completed health sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands routed to agents, by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetAgents updates the directory gauges
func (m *Metrics) SetAgents(registered, healthy int) {
	if m == nil {
		return
	}
	m.agentsRegistered.Set(float64(registered))
	m.agentsHealthy.Set(float64(healthy))
}

// DiscoveryProbe counts one capability probe
func (m *Metrics) DiscoveryProbe(found bool) {
	if m == nil {
		return
	}
	if found {
		m.discoveryProbes.WithLabelValues(ResultFound).Inc()
		return
	}
	m.discoveryProbes.WithLabelValues(ResultNotFound).Inc()
}

// HealthSweepSkipped counts a rate-limited sweep request
func (m *Metrics) HealthSweepSkipped() {
	if m == nil {
		return
	}
	m.healthSweeps.WithLabelValues(OutcomeSkipped).Inc()
}

// HealthSweepCompleted counts a sweep that probed agents
func (m *Metrics) HealthSweepCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.healthSweeps.WithLabelValues(OutcomeCompleted).Inc()
	m.sweepDuration.Observe(d.Seconds())
}

// HealthCheck counts one per-agent verdict
func (m *Metrics) HealthCheck(healthy bool) {
	if m == nil {
		return
	}
	if healthy {
		m.healthChecks.WithLabelValues(ResultHealthy).Inc()
		return
	}
	m.healthChecks.WithLabelValues(ResultUnhealthy).Inc()
}

// Command counts one routed command
func (m *Metrics) Command(outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(outcome).Inc()
}
