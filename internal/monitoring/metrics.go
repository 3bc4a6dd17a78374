package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandgen_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandgen_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brandgen_http_inflight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// 转发会话指标
	RelaySessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brandgen_relay_sessions_active",
			Help: "Relay sessions currently open",
		},
		[]string{"kind"},
	)

	RelaySessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandgen_relay_sessions_total",
			Help: "Relay sessions by final outcome",
		},
		[]string{"kind", "model", "outcome"},
	)

	RelayDeltasTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandgen_relay_deltas_total",
			Help: "Content deltas relayed to clients",
		},
		[]string{"kind", "model"},
	)

	RelayMalformedLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brandgen_relay_malformed_lines_total",
			Help: "Upstream data lines skipped because they were not valid JSON",
		},
	)

	SSEDisconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandgen_sse_disconnects_total",
			Help: "SSE streams that ended before completion, by reason",
		},
		[]string{"reason"},
	)

	PersistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandgen_persist_total",
			Help: "Persistence hook results",
		},
		[]string{"kind", "result"},
	)

	// 上游API调用指标
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandgen_upstream_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"provider", "status_class"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandgen_upstream_request_duration_seconds",
			Help:    "Time until upstream response headers, in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandgen_storage_operation_duration_seconds",
			Help:    "Storage operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5},
		},
		[]string{"backend", "operation", "result"},
	)

	// StorageUp is 1 while the last background health check succeeded.
	StorageUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brandgen_storage_up",
			Help: "Whether the storage backend answered the last health check",
		},
		[]string{"backend"},
	)

	BackgroundTasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brandgen_background_tasks_running",
			Help: "Number of supervised background tasks currently running",
		},
	)
)

// StatusClass buckets an HTTP status into 2xx/3xx/4xx/5xx.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	}
	return "other"
}
