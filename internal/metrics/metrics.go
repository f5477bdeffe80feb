// Package metrics exposes Prometheus counters and histograms for calculations
// and HTTP traffic on a dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/iwvelando/sip-forecast/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sip_forecast"

// Calculation kinds.
const (
	KindProjection   = "projection"
	KindGoalSIP      = "goal_sip"
	KindGoalTime     = "goal_time"
	KindScenarioFile = "scenario_file"
	KindReport       = "report"
)

// Metrics groups the collectors of one process.
type Metrics struct {
	registry     *prometheus.Registry
	calculations *prometheus.CounterVec
	stageSeconds *prometheus.HistogramVec
	stageErrors  *prometheus.CounterVec
	requests     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Calculations performed, by kind.",
		}, []string{"kind"}),
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of recalculation pipeline stages.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_errors_total",
			Help:      "Failed recalculation pipeline stages.",
		}, []string{"stage"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.calculations,
		m.stageSeconds,
		m.stageErrors,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CountCalculation records one calculation of kind.
func (m *Metrics) CountCalculation(kind string) {
	m.calculations.WithLabelValues(kind).Inc()
}

// CountRequest records one served request.
func (m *Metrics) CountRequest(route string, status int) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Observer returns a pipeline observer recording stage durations and failures.
func (m *Metrics) Observer() pipeline.Observer {
	return func(stage pipeline.Stage, elapsed time.Duration, err error) {
		m.stageSeconds.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
		if err != nil {
			m.stageErrors.WithLabelValues(string(stage)).Inc()
		}
	}
}
