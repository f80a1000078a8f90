package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the generation orchestrator.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	errorsTotal           prometheus.Counter
	runsStartedTotal      prometheus.Counter
	runsCompletedTotal    prometheus.Counter
	runsFailedTotal       prometheus.Counter
	windowsGeneratedTotal prometheus.Counter
	framesStitchedTotal   prometheus.Counter
	activeRuns            prometheus.Gauge
}

// New creates and registers Prometheus metrics for the orchestrator.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vidgen_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vidgen_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	runsStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vidgen_runs_started_total",
		Help: "Total number of generation runs accepted",
	})
	runsCompletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vidgen_runs_completed_total",
		Help: "Total number of generation runs that finished successfully",
	})
	runsFailedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vidgen_runs_failed_total",
		Help: "Total number of generation runs that failed",
	})
	windowsGeneratedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vidgen_windows_generated_total",
		Help: "Total number of context windows generated across all runs",
	})
	framesStitchedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vidgen_frames_stitched_total",
		Help: "Total number of frames stitched into final outputs",
	})
	activeRuns := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vidgen_active_runs",
		Help: "Number of runs that are pending or running",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		runsStartedTotal,
		runsCompletedTotal,
		runsFailedTotal,
		windowsGeneratedTotal,
		framesStitchedTotal,
		activeRuns,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		errorsTotal:           errorsTotal,
		runsStartedTotal:      runsStartedTotal,
		runsCompletedTotal:    runsCompletedTotal,
		runsFailedTotal:       runsFailedTotal,
		windowsGeneratedTotal: windowsGeneratedTotal,
		framesStitchedTotal:   framesStitchedTotal,
		activeRuns:            activeRuns,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncRunsStarted increments the runs started counter.
func (m *Metrics) IncRunsStarted() {
	m.runsStartedTotal.Inc()
}

// IncRunsCompleted increments the runs completed counter.
func (m *Metrics) IncRunsCompleted() {
	m.runsCompletedTotal.Inc()
}

// IncRunsFailed increments the runs failed counter.
func (m *Metrics) IncRunsFailed() {
	m.runsFailedTotal.Inc()
}

// AddWindowsGenerated adds to the windows generated counter.
func (m *Metrics) AddWindowsGenerated(n int) {
	m.windowsGeneratedTotal.Add(float64(n))
}

// AddFramesStitched adds to the frames stitched counter.
func (m *Metrics) AddFramesStitched(n int) {
	m.framesStitchedTotal.Add(float64(n))
}

// SetActiveRuns sets the active runs gauge.
func (m *Metrics) SetActiveRuns(n int) {
	m.activeRuns.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active runs).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
