package mcp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_mcp_activations_total",
			Help: "Total MCP server activation attempts by outcome",
		},
		[]string{"server", "status"},
	)

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_mcp_tool_calls_total",
			Help: "Total MCP tool calls by outcome",
		},
		[]string{"server", "tool", "status"},
	)

	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_mcp_tool_call_duration_seconds",
			Help:    "Duration of MCP tool calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"server", "tool"},
	)
)

// recordActivation records an activation attempt outcome.
func recordActivation(server string, err error) {
	status := "ok"
	if err != nil {
		status = string(CodeOf(err))
	}
	activationsTotal.WithLabelValues(server, status).Inc()
}

// recordToolCall records a tool call outcome and duration.
func recordToolCall(server, tool string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = string(CodeOf(err))
	}
	toolCallsTotal.WithLabelValues(server, tool, status).Inc()
	toolCallDuration.WithLabelValues(server, tool).Observe(seconds)
}
