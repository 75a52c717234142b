// Package metrics provides Prometheus metrics for the agencyops service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	TransitionsTotal  *prometheus.CounterVec
	CascadeTasksTotal *prometheus.CounterVec
	AlertsTotal       *prometheus.CounterVec
	ToolCallsTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agencyops_http_requests_total",
				Help: "Total HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agencyops_http_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agencyops_task_transitions_total",
				Help: "Task status transitions by source and target status.",
			},
			[]string{"from", "to"},
		),
		CascadeTasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agencyops_cascade_tasks_total",
				Help: "Dependent tasks changed by cascades, by kind.",
			},
			[]string{"kind"},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agencyops_retainer_alerts_total",
				Help: "Retainer alerts raised by threshold.",
			},
			[]string{"threshold"},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agencyops_mcp_tool_calls_total",
				Help: "MCP tool calls by tool and result.",
			},
			[]string{"tool", "result"},
		),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.TransitionsTotal)
	reg.MustRegister(m.CascadeTasksTotal)
	reg.MustRegister(m.AlertsTotal)
	reg.MustRegister(m.ToolCallsTotal)
	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest counts a finished HTTP request and its duration.
func (m *Metrics) RecordRequest(route, method string, code int, seconds float64) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordTransition counts a task status change.
func (m *Metrics) RecordTransition(from, to string) {
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordCascade adds the number of dependents a cascade changed.
func (m *Metrics) RecordCascade(kind string, affected int) {
	if affected <= 0 {
		return
	}
	m.CascadeTasksTotal.WithLabelValues(kind).Add(float64(affected))
}

// RecordAlert counts a raised retainer alert.
func (m *Metrics) RecordAlert(threshold int) {
	m.AlertsTotal.WithLabelValues(strconv.Itoa(threshold)).Inc()
}

// RecordToolCall counts an MCP tool invocation.
func (m *Metrics) RecordToolCall(tool string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.ToolCallsTotal.WithLabelValues(tool, result).Inc()
}
