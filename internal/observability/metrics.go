// Package observability collects Prometheus metrics for the execution
// engine: backend invocations, their durations and outcomes, and tool
// executions inside the sandbox.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. Create one per process
// with NewMetrics; collectors register against the default registry.
type Metrics struct {
	// InvocationCounter counts invocations by backend and status.
	// Labels: backend, status (success|error|timeout)
	InvocationCounter *prometheus.CounterVec

	// InvocationDuration measures end-to-end invocation latency in seconds.
	// Labels: backend
	InvocationDuration *prometheus.HistogramVec

	// ActiveInvocations gauges in-flight invocations per backend.
	// Labels: backend
	ActiveInvocations *prometheus.GaugeVec

	// ToolCounter counts sandbox tool executions.
	// Labels: tool, status (success|error)
	ToolCounter *prometheus.CounterVec

	// ToolDuration measures tool execution latency in seconds.
	// Labels: tool
	ToolDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all engine metrics. Call once at startup.
func NewMetrics() *Metrics {
	return &Metrics{
		InvocationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_invocations_total",
				Help: "Backend invocations by backend and status.",
			},
			[]string{"backend", "status"},
		),
		InvocationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_invocation_duration_seconds",
				Help:    "End-to-end invocation latency.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"backend"},
		),
		ActiveInvocations: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relay_active_invocations",
				Help: "In-flight invocations per backend.",
			},
			[]string{"backend"},
		),
		ToolCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_tool_executions_total",
				Help: "Sandbox tool executions by tool and status.",
			},
			[]string{"tool", "status"},
		),
		ToolDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_tool_duration_seconds",
				Help:    "Sandbox tool execution latency.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
	}
}

// ObserveTool records one tool execution.
func (m *Metrics) ObserveTool(tool string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	m.ToolCounter.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// InvocationStarted bumps the in-flight gauge.
func (m *Metrics) InvocationStarted(backend string) {
	if m == nil {
		return
	}
	m.ActiveInvocations.WithLabelValues(backend).Inc()
}

// InvocationFinished drops the in-flight gauge.
func (m *Metrics) InvocationFinished(backend string) {
	if m == nil {
		return
	}
	m.ActiveInvocations.WithLabelValues(backend).Dec()
}

// ObserveInvocation records one finished invocation.
func (m *Metrics) ObserveInvocation(backend, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.InvocationCounter.WithLabelValues(backend, status).Inc()
	m.InvocationDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}
