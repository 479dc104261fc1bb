package config

import (
	"fmt"
	"time"
)

// GenerateConfigTemplate generates a configuration template for the given
// environment, suitable for writing to /etc/microgrid-planner/config.yaml.
func GenerateConfigTemplate(environment string) string {
	logLevel := "info"
	switch environment {
	case "production":
		logLevel = "warn"
	case "development":
		logLevel = "debug"
	}

	template := `# Microgrid planner service configuration
# Environment: %s
# Generated: %s

environment: %s
port: 8080
log_level: %s

auth:
  enabled: true
  jwt:
    # Set via JWT_SECRET or JWT_SECRET_FILE
    expiry_minutes: 1440

cache:
  nodes:
    - "localhost:6379"
  ttl: 300
  db: 0

compute:
  poll_interval_seconds: 15
  max_concurrent: 4
  job_ttl_hours: 72
  result_ttl_hours: 168
  lock_ttl_seconds: 30
  default_num_runs: 1
  default_num_shift_hours: 24
  default_num_levels: 10

uploads:
  bulk_max_bytes: 33554432

cors:
  allowed_origins:
    - "*"
  allow_credentials: true

websocket:
  enabled: true
  max_connections: 1000
  ping_interval: 30

monitoring:
  enabled: true
  metrics_path: "/metrics"
  prometheus_enabled: true
  tracing_enabled: false
  otlp_endpoint: ""

integrations:
  slack:
    enabled: false
    webhook_url: ""
    channel: "#microgrid-alerts"
  email:
    enabled: false
    smtp_host: ""
    smtp_port: 587
`
	now := time.Now().UTC().Format(time.RFC3339)
	return fmt.Sprintf(template, environment, now, environment, logLevel)
}
