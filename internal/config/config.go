package config

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Auth         AuthConfig         `mapstructure:"auth" yaml:"auth"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	CORS         CORSConfig         `mapstructure:"cors" yaml:"cors"`
	Compute      ComputeConfig      `mapstructure:"compute" yaml:"compute"`
	Uploads      UploadsConfig      `mapstructure:"uploads" yaml:"uploads"`
	WebSocket    WebSocketConfig    `mapstructure:"websocket" yaml:"websocket"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring" yaml:"monitoring"`
	Integrations IntegrationsConfig `mapstructure:"integrations" yaml:"integrations"`
}

// AuthConfig controls session authentication for the planner API.
type AuthConfig struct {
	Enabled bool      `mapstructure:"enabled" yaml:"enabled"`
	JWT     JWTConfig `mapstructure:"jwt" yaml:"jwt"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret" yaml:"secret"`
	ExpiryMinutes int    `mapstructure:"expiry_minutes" yaml:"expiry_minutes"`
}

// CacheConfig handles Valkey configuration. A single node gets the plain
// client, multiple nodes the cluster client.
type CacheConfig struct {
	Nodes    []string `mapstructure:"nodes" yaml:"nodes"`
	TTL      int      `mapstructure:"ttl" yaml:"ttl"` // seconds
	Password string   `mapstructure:"password" yaml:"password"`
	DB       int      `mapstructure:"db" yaml:"db"`
}

// CORSConfig handles Cross-Origin Resource Sharing
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// ComputeConfig tunes the analysis job machinery.
type ComputeConfig struct {
	// PollIntervalSeconds is the polling cadence advertised to clients.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	// MaxConcurrent caps the number of model runs executing at once.
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	// JobTTLHours and ResultTTLHours bound how long job state and result
	// documents stay in the cache.
	JobTTLHours    int `mapstructure:"job_ttl_hours" yaml:"job_ttl_hours"`
	ResultTTLHours int `mapstructure:"result_ttl_hours" yaml:"result_ttl_hours"`
	// LockTTLSeconds is the duplicate-submission guard window.
	LockTTLSeconds int `mapstructure:"lock_ttl_seconds" yaml:"lock_ttl_seconds"`

	DefaultNumRuns       int `mapstructure:"default_num_runs" yaml:"default_num_runs"`
	DefaultNumShiftHours int `mapstructure:"default_num_shift_hours" yaml:"default_num_shift_hours"`
	DefaultNumLevels     int `mapstructure:"default_num_levels" yaml:"default_num_levels"`
}

// UploadsConfig controls payload limits for powerload CSV uploads.
type UploadsConfig struct {
	BulkMaxBytes int64 `mapstructure:"bulk_max_bytes" yaml:"bulk_max_bytes"`
}

// WebSocketConfig handles the job-status streaming endpoint.
type WebSocketConfig struct {
	Enabled         bool `mapstructure:"enabled" yaml:"enabled"`
	MaxConnections  int  `mapstructure:"max_connections" yaml:"max_connections"`
	ReadBufferSize  int  `mapstructure:"read_buffer_size" yaml:"read_buffer_size"`
	WriteBufferSize int  `mapstructure:"write_buffer_size" yaml:"write_buffer_size"`
	PingInterval    int  `mapstructure:"ping_interval" yaml:"ping_interval"` // seconds
	MaxMessageSize  int  `mapstructure:"max_message_size" yaml:"max_message_size"`
}

// MonitoringConfig handles self-monitoring configuration
type MonitoringConfig struct {
	Enabled           bool   `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath       string `mapstructure:"metrics_path" yaml:"metrics_path"`
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled" yaml:"prometheus_enabled"`
	TracingEnabled    bool   `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	OTLPEndpoint      string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
}

// IntegrationsConfig handles external notification channels.
type IntegrationsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack" yaml:"slack"`
	MSTeams MSTeamsConfig `mapstructure:"ms_teams" yaml:"ms_teams"`
	Email   EmailConfig   `mapstructure:"email" yaml:"email"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Channel    string `mapstructure:"channel" yaml:"channel"`
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
}

type MSTeamsConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
}

type EmailConfig struct {
	SMTPHost    string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort    int    `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password"`
	FromAddress string `mapstructure:"from_address" yaml:"from_address"`
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
}
