package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "plantline"

// Registry holds every plantline metric.
type Registry struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	RunsTotal       *prometheus.CounterVec
	RunProgress     prometheus.Gauge
	ChannelState    *prometheus.GaugeVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates a registry with all metrics and the Go runtime and
// process collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{registry: reg}
	r.initEngineMetrics()
	r.initHTTPMetrics()
	return r
}

func (r *Registry) initEngineMetrics() {
	factory := promauto.With(r.registry)

	r.CommandsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands finished per back-end, channel class and status",
		},
		[]string{"backend", "class", "status"},
	)

	// Physical commands take seconds; virtual ones milliseconds.
	r.CommandDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from dispatch to completion of one command",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"backend", "class"},
	)

	r.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs per kind and status",
		},
		[]string{"kind", "status"},
	)

	r.RunProgress = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_progress_percent",
			Help:      "Progress of the active run",
		},
	)

	r.ChannelState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_state",
			Help:      "Channel state: 0 disconnected, 1 standby, 2 processing",
		},
		[]string{"backend", "class"},
	)
}

func (r *Registry) initHTTPMetrics() {
	factory := promauto.With(r.registry)

	r.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests per method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// Gatherer returns the underlying registry for the /metrics handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveCommand counts a finished command and records its duration when
// it completed.
func (r *Registry) ObserveCommand(backend, class, status string, d time.Duration) {
	r.CommandsTotal.WithLabelValues(backend, class, status).Inc()
	if status == "completed" {
		r.CommandDuration.WithLabelValues(backend, class).Observe(d.Seconds())
	}
}

// ObserveRun counts a finished run.
func (r *Registry) ObserveRun(kind, status string) {
	r.RunsTotal.WithLabelValues(kind, status).Inc()
}

// SetRunProgress sets the active run's progress.
func (r *Registry) SetRunProgress(percent float64) {
	r.RunProgress.Set(percent)
}

// SetChannelState records a channel's state.
func (r *Registry) SetChannelState(backend, class string, state int) {
	r.ChannelState.WithLabelValues(backend, class).Set(float64(state))
}

// RecordHTTPRequest records one served request. route is the chi route
// pattern, never the raw path, to bound label cardinality.
func (r *Registry) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
