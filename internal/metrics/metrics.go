package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Compute job metrics
	ComputeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgrid_planner_compute_jobs_total",
			Help: "Total number of compute jobs by model and outcome",
		},
		[]string{"model", "status"}, // simulate/sizing/resilience, succeeded/failed/duplicate
	)

	ComputeJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microgrid_planner_compute_job_duration_seconds",
			Help:    "Compute job execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 300.0},
		},
		[]string{"model"},
	)

	// Time-window validation metrics
	WindowCorrectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgrid_planner_window_corrections_total",
			Help: "Total number of auto-corrections applied to analysis windows",
		},
		[]string{"field"}, // startdatetime, enddatetime, disturbance_start
	)

	// Active connections and sessions
	ActiveWebSocketConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "microgrid_planner_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
		[]string{"stream_type"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "microgrid_planner_sessions_active",
			Help: "Number of active user sessions",
		},
	)

	// External integration metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgrid_planner_notifications_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"integration", "type", "success"}, // slack/email, compute_failed/..., true/false
	)
)
