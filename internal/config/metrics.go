package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microgrid_planner_config_reloads_total",
			Help: "Total number of configuration reloads",
		},
		[]string{"status"}, // success, error
	)

	ConfigValidationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "microgrid_planner_config_validation_errors_total",
			Help: "Total number of configuration validation errors",
		},
	)
)
