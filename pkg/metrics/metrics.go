package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dotchat_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dotchat_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dotchat_provider_latency_seconds",
			Help: "Model stream duration in seconds, per provider",
		},
		[]string{"provider"},
	)

	ToolExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dotchat_tool_executions_total",
			Help: "Tool executions by tool name and outcome",
		},
		[]string{"tool", "outcome"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dotchat_active_streams",
			Help: "Number of chat streams currently open",
		},
	)
)
