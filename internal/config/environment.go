package config

// LoadEnvironmentConfig loads environment-specific configuration
func LoadEnvironmentConfig(env string) (*Config, error) {
	base, err := Load()
	if err != nil {
		return nil, err
	}

	switch env {
	case "production":
		return applyProductionConfig(base), nil
	case "staging":
		return applyStagingConfig(base), nil
	case "development":
		return applyDevelopmentConfig(base), nil
	case "test":
		return applyTestConfig(base), nil
	default:
		return base, nil
	}
}

func applyProductionConfig(config *Config) *Config {
	config.LogLevel = "warn"
	config.WebSocket.MaxConnections = 5000
	config.Cache.TTL = 600

	// No wildcard origins in production.
	if len(config.CORS.AllowedOrigins) == 1 && config.CORS.AllowedOrigins[0] == "*" {
		config.CORS.AllowedOrigins = nil
	}
	return config
}

func applyStagingConfig(config *Config) *Config {
	config.LogLevel = "info"
	config.WebSocket.MaxConnections = 2000
	return config
}

func applyDevelopmentConfig(config *Config) *Config {
	config.LogLevel = "debug"
	config.Monitoring.TracingEnabled = false
	return config
}

func applyTestConfig(config *Config) *Config {
	config.LogLevel = "error"
	config.Auth.Enabled = false
	config.Cache.TTL = 5
	config.Compute.PollIntervalSeconds = 1
	return config
}
