// Package monitoring exposes the Prometheus endpoint and the helpers the rest
// of the service records operational metrics through.
//
// Usage:
//
//  1. Register the endpoint on the router:
//     monitoring.SetupPrometheusMetrics(router)
//
//  2. Record operations where they happen:
//     monitoring.RecordCacheOperation("get", "hit")
//     monitoring.RecordComputeRun("simulate", time.Since(start), true)
//     monitoring.RecordAuthAttempt("password", "success")
package monitoring

import (
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgrid_planner_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microgrid_planner_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgrid_planner_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"}, // result: hit, miss, error, success, conflict
	)

	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgrid_planner_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"}, // result: success, failure
	)

	computeRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgrid_planner_compute_runs_total",
			Help: "Total number of compute model runs",
		},
		[]string{"model", "status"},
	)

	computeRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microgrid_planner_compute_run_duration_seconds",
			Help:    "Compute model run duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"model"},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "microgrid_planner_active_connections",
			Help: "Number of active connections",
		},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgrid_planner_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"}, // type: http, cache, auth, compute
	)
)

// SetupPrometheusMetrics registers the planner metrics on the default
// registry and exposes /metrics on the router. Registration errors are
// ignored so repeated setup in tests is harmless.
func SetupPrometheusMetrics(router gin.IRoutes) {
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "microgrid_planner_build_info",
		Help: "Build information for the planner service",
		ConstLabels: prometheus.Labels{
			"component":  "planner-core",
			"go_version": runtime.Version(),
		},
	}, func() float64 { return 1 }))

	_ = prometheus.Register(httpRequestsTotal)
	_ = prometheus.Register(httpRequestDuration)
	_ = prometheus.Register(cacheOperationsTotal)
	_ = prometheus.Register(authAttemptsTotal)
	_ = prometheus.Register(computeRunsTotal)
	_ = prometheus.Register(computeRunDuration)
	_ = prometheus.Register(activeConnections)
	_ = prometheus.Register(errorsTotal)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// HTTPMetricsMiddleware collects per-request metrics.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		endpoint := normalizeEndpoint(c.Request.URL.Path)

		activeConnections.Inc()
		defer activeConnections.Dec()

		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())

		if c.Writer.Status() >= 400 {
			errorsTotal.WithLabelValues("http", endpoint).Inc()
		}
	}
}

// RecordCacheOperation records a single cache operation outcome.
func RecordCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		errorsTotal.WithLabelValues("cache", operation).Inc()
	}
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(method, result string) {
	authAttemptsTotal.WithLabelValues(method, result).Inc()
	if result == "failure" {
		errorsTotal.WithLabelValues("auth", method).Inc()
	}
}

// RecordComputeRun records a finished model run.
func RecordComputeRun(model string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
		errorsTotal.WithLabelValues("compute", model).Inc()
	}
	computeRunsTotal.WithLabelValues(model, status).Inc()
	computeRunDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// normalizeEndpoint collapses id path segments so metric cardinality stays
// bounded: /api/v1/powerload/42 -> /api/v1/powerload/:id.
func normalizeEndpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if i > 0 && looksLikeID(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

// looksLikeID matches numeric segments and UUIDs.
func looksLikeID(s string) bool {
	if s == "" {
		return false
	}
	if len(s) == 36 && strings.Count(s, "-") == 4 {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
