package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agent-host/internal/a2a"
)

const namespace = "agent_host"

// Known JSON-RPC methods. Anything else is counted as "other" to bound label cardinality.
var knownMethods = map[string]bool{
	"message/send": true,
	"tasks/send":   true,
	"tasks/get":    true,
	"tasks/cancel": true,
}

// Metrics records A2A request and task activity.
// It implements task.Observer and rpc.Observer.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests by method and result code (0 for success).",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_request_duration_seconds",
			Help:      "JSON-RPC request handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Task state transitions by target state.",
		}, []string{"state"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_execution_duration_seconds",
			Help:      "Time from task submission to its terminal state.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"state"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.transitions,
		m.taskDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestHandled records one dispatched JSON-RPC request.
func (m *Metrics) RequestHandled(method string, code int, elapsed time.Duration) {
	if !knownMethods[method] {
		method = "other"
	}
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// TaskTransitioned records a task entering state.
func (m *Metrics) TaskTransitioned(state a2a.TaskState) {
	m.transitions.WithLabelValues(string(state)).Inc()
}

// TaskFinished records how long a task took to reach its terminal state.
func (m *Metrics) TaskFinished(state a2a.TaskState, elapsed time.Duration) {
	m.taskDuration.WithLabelValues(string(state)).Observe(elapsed.Seconds())
}
