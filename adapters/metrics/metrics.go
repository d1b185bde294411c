// Package metrics provides Prometheus metrics collection for the admission
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Admission metrics
	Denials          *prometheus.CounterVec
	QuotaExhaustions *prometheus.CounterVec

	// Dispatch metrics
	DispatchDuration *prometheus.HistogramVec
	DispatchErrors   *prometheus.CounterVec
	DispatchInFlight prometheus.Gauge

	// Accounting metrics
	TokensTotal *prometheus.CounterVec
	CostTotal   *prometheus.CounterVec

	// Audit recorder metrics
	AuditQueueDepth  prometheus.Gauge
	AuditFlushErrors prometheus.Counter

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates a collector on its own registry, with the process and Go
// runtime collectors included. Each call yields independent metrics;
// nothing touches the global default registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := NewWithRegistry(reg)
	c.gatherer = reg
	return c
}

// Handler exposes the collector's registry over HTTP. Collectors built
// with NewWithRegistry fall back to the global handler.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// NewWithRegistry creates a collector on a custom registry. Useful for
// testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paperlens",
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "paperlens",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "paperlens",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		Denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paperlens",
				Name:      "denials_total",
				Help:      "Requests rejected before dispatch, by failure kind",
			},
			[]string{"kind"},
		),
		QuotaExhaustions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paperlens",
				Name:      "quota_exhaustions_total",
				Help:      "Requests denied because the hourly window was exhausted",
			},
			[]string{"endpoint"},
		),

		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "paperlens",
				Name:      "dispatch_duration_seconds",
				Help:      "Analysis backend call duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"model", "outcome"},
		),
		DispatchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paperlens",
				Name:      "dispatch_errors_total",
				Help:      "Analysis backend failures by kind",
			},
			[]string{"kind"},
		),
		DispatchInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "paperlens",
				Name:      "dispatches_in_flight",
				Help:      "Analysis calls currently outstanding",
			},
		),

		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paperlens",
				Name:      "tokens_total",
				Help:      "Metered backend tokens by model and direction",
			},
			[]string{"model", "direction"},
		),
		CostTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paperlens",
				Name:      "cost_usd_total",
				Help:      "Accumulated backend cost in USD by model",
			},
			[]string{"model"},
		),

		AuditQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "paperlens",
				Name:      "audit_queue_depth",
				Help:      "Audit rows waiting for the next batch flush",
			},
		),
		AuditFlushErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "paperlens",
				Name:      "audit_flush_errors_total",
				Help:      "Failed audit batch flushes",
			},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "paperlens",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "paperlens",
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "paperlens",
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}
