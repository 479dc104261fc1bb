package config

// GetDefaultConfig returns a configuration with all default values
func GetDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Port:        8080,
		LogLevel:    "info",

		Auth: AuthConfig{
			Enabled: true,
			JWT: JWTConfig{
				ExpiryMinutes: 1440,
			},
		},

		Cache: CacheConfig{
			Nodes: []string{"localhost:6379"},
			TTL:   300,
		},

		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           3600,
		},

		Compute: ComputeConfig{
			PollIntervalSeconds:  15,
			MaxConcurrent:        4,
			JobTTLHours:          72,
			ResultTTLHours:       168,
			LockTTLSeconds:       30,
			DefaultNumRuns:       1,
			DefaultNumShiftHours: 24,
			DefaultNumLevels:     10,
		},

		Uploads: UploadsConfig{
			BulkMaxBytes: 32 << 20,
		},

		WebSocket: WebSocketConfig{
			Enabled:         true,
			MaxConnections:  1000,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    30,
			MaxMessageSize:  1048576,
		},

		Monitoring: MonitoringConfig{
			Enabled:           true,
			MetricsPath:       "/metrics",
			PrometheusEnabled: true,
			TracingEnabled:    false,
		},

		Integrations: IntegrationsConfig{
			Email: EmailConfig{SMTPPort: 587},
		},
	}
}
