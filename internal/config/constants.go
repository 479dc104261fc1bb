package config

const (
	// Service information
	ServiceName    = "planner-core"
	ServiceVersion = "v1.4.0"
	APIVersion     = "v1"

	// Default timeouts (milliseconds)
	DefaultShutdownTimeout = 30000

	// Rate limiting
	DefaultRateLimit = 600 // requests per minute per user
)
