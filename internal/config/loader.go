package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from various sources with priority order:
// 1. Environment variables
// 2. Configuration file (config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/microgrid-planner/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("PLANNER")

	setDefaults(v)

	// Config file is optional; env vars and defaults carry a dev setup.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := LoadSecrets(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		ConfigValidationErrors.Inc()
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets reasonable default values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	// Auth defaults
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt.expiry_minutes", 1440) // 24 hours

	// Cache defaults (Valkey)
	v.SetDefault("cache.nodes", []string{"localhost:6379"})
	v.SetDefault("cache.ttl", 300) // 5 minutes
	v.SetDefault("cache.db", 0)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("cors.exposed_headers", []string{"X-Rate-Limit-Remaining"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 3600)

	// Compute defaults
	v.SetDefault("compute.poll_interval_seconds", 15)
	v.SetDefault("compute.max_concurrent", 4)
	v.SetDefault("compute.job_ttl_hours", 72)
	v.SetDefault("compute.result_ttl_hours", 168) // one week
	v.SetDefault("compute.lock_ttl_seconds", 30)
	v.SetDefault("compute.default_num_runs", 1)
	v.SetDefault("compute.default_num_shift_hours", 24)
	v.SetDefault("compute.default_num_levels", 10)

	// Upload defaults
	v.SetDefault("uploads.bulk_max_bytes", int64(32<<20)) // 32MB

	// WebSocket defaults
	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.ping_interval", 30)
	v.SetDefault("websocket.max_message_size", 1048576) // 1MB

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.tracing_enabled", false)

	// Integrations defaults
	v.SetDefault("integrations.slack.enabled", false)
	v.SetDefault("integrations.ms_teams.enabled", false)
	v.SetDefault("integrations.email.enabled", false)
	v.SetDefault("integrations.email.smtp_port", 587)
}

// overrideWithEnvVars explicitly handles environment variable overrides
func overrideWithEnvVars(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("port", p)
		}
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", logLevel)
	}

	// Valkey cache nodes
	if cacheNodes := os.Getenv("VALKEY_CACHE_NODES"); cacheNodes != "" {
		nodes := strings.Split(cacheNodes, ",")
		for i, node := range nodes {
			nodes[i] = strings.TrimSpace(node)
		}
		v.Set("cache.nodes", nodes)
	}

	if cacheTTL := os.Getenv("CACHE_TTL"); cacheTTL != "" {
		if ttl, err := strconv.Atoi(cacheTTL); err == nil {
			v.Set("cache.ttl", ttl)
		}
	}

	// JWT configuration
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		v.Set("auth.jwt.secret", jwtSecret)
	}

	if authEnabled := os.Getenv("AUTH_ENABLED"); authEnabled != "" {
		if enabled, err := strconv.ParseBool(authEnabled); err == nil {
			v.Set("auth.enabled", enabled)
		}
	}

	// External integrations
	if slackWebhook := os.Getenv("SLACK_WEBHOOK_URL"); slackWebhook != "" {
		v.Set("integrations.slack.webhook_url", slackWebhook)
		v.Set("integrations.slack.enabled", true)
	}

	if teamsWebhook := os.Getenv("TEAMS_WEBHOOK_URL"); teamsWebhook != "" {
		v.Set("integrations.ms_teams.webhook_url", teamsWebhook)
		v.Set("integrations.ms_teams.enabled", true)
	}

	if smtpHost := os.Getenv("SMTP_HOST"); smtpHost != "" {
		v.Set("integrations.email.smtp_host", smtpHost)
		v.Set("integrations.email.enabled", true)
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if len(config.Cache.Nodes) == 0 {
		return fmt.Errorf("at least one Valkey cache node is required")
	}
	for _, node := range config.Cache.Nodes {
		if err := ValidateHostPort(node); err != nil {
			return fmt.Errorf("invalid cache node: %w", err)
		}
	}

	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	validEnvironments := []string{"development", "staging", "production", "test"}
	if !contains(validEnvironments, config.Environment) {
		return fmt.Errorf("invalid environment: %s", config.Environment)
	}

	if config.Cache.TTL < 1 {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}

	if config.Auth.Enabled && config.Auth.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required when auth is enabled")
	}

	if config.Compute.PollIntervalSeconds < 1 {
		return fmt.Errorf("compute poll interval must be at least 1 second")
	}

	if config.Compute.MaxConcurrent < 1 {
		return fmt.Errorf("compute max_concurrent must be at least 1")
	}

	// The OTLP collector address is host:port; webhook URLs must be http(s).
	if config.Monitoring.TracingEnabled && config.Monitoring.OTLPEndpoint != "" {
		if err := ValidateHostPort(config.Monitoring.OTLPEndpoint); err != nil {
			return fmt.Errorf("invalid OTLP endpoint: %w", err)
		}
	}
	if config.Integrations.Slack.Enabled {
		if err := ValidateEndpoint(config.Integrations.Slack.WebhookURL); err != nil {
			return fmt.Errorf("invalid Slack webhook: %w", err)
		}
	}
	if config.Integrations.MSTeams.Enabled {
		if err := ValidateEndpoint(config.Integrations.MSTeams.WebhookURL); err != nil {
			return fmt.Errorf("invalid MS Teams webhook: %w", err)
		}
	}

	return nil
}
