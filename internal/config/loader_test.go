package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoading(t *testing.T) {
	t.Run("load from file", func(t *testing.T) {
		configContent := `
environment: test
port: 9999
log_level: debug

auth:
  enabled: false

cache:
  nodes:
    - "test-valkey:6379"
  ttl: 30

compute:
  poll_interval_seconds: 5
`
		tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())

		_, err = tmpFile.WriteString(configContent)
		require.NoError(t, err)
		tmpFile.Close()

		t.Setenv("CONFIG_PATH", tmpFile.Name())

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test", config.Environment)
		assert.Equal(t, 9999, config.Port)
		assert.Equal(t, "debug", config.LogLevel)
		assert.Contains(t, config.Cache.Nodes, "test-valkey:6379")
		assert.Equal(t, 30, config.Cache.TTL)
		assert.Equal(t, 5, config.Compute.PollIntervalSeconds)
	})

	t.Run("defaults fill missing fields", func(t *testing.T) {
		tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())
		_, err = tmpFile.WriteString("environment: test\nauth:\n  enabled: false\n")
		require.NoError(t, err)
		tmpFile.Close()

		t.Setenv("CONFIG_PATH", tmpFile.Name())

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, config.Port)
		assert.Equal(t, 15, config.Compute.PollIntervalSeconds)
		assert.Equal(t, 168, config.Compute.ResultTTLHours)
		assert.True(t, config.WebSocket.Enabled)
	})

	t.Run("rejects missing jwt secret when auth is on", func(t *testing.T) {
		tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())
		_, err = tmpFile.WriteString("environment: test\nauth:\n  enabled: true\n")
		require.NoError(t, err)
		tmpFile.Close()

		t.Setenv("CONFIG_PATH", tmpFile.Name())

		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret")
	})

	t.Run("env vars override file", func(t *testing.T) {
		tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())
		_, err = tmpFile.WriteString("environment: test\nport: 9999\nauth:\n  enabled: false\n")
		require.NoError(t, err)
		tmpFile.Close()

		t.Setenv("CONFIG_PATH", tmpFile.Name())
		t.Setenv("PORT", "7777")
		t.Setenv("VALKEY_CACHE_NODES", "node-a:6379, node-b:6379")

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 7777, config.Port)
		assert.Equal(t, []string{"node-a:6379", "node-b:6379"}, config.Cache.Nodes)
	})
}

func TestSecretsLoading(t *testing.T) {
	config := GetDefaultConfig()

	t.Setenv("JWT_SECRET", "test-secret-123")
	t.Setenv("VALKEY_PASSWORD", "cache-pass")

	require.NoError(t, LoadSecrets(config))
	assert.Equal(t, "test-secret-123", config.Auth.JWT.Secret)
	assert.Equal(t, "cache-pass", config.Cache.Password)
}

func TestValidateConfigEndpoints(t *testing.T) {
	config := GetDefaultConfig()
	config.Auth.JWT.Secret = "s"

	config.Cache.Nodes = []string{"not-an-address"}
	err := validateConfig(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cache node")

	config.Cache.Nodes = []string{"localhost:6379"}
	config.Monitoring.TracingEnabled = true
	config.Monitoring.OTLPEndpoint = "collector"
	err = validateConfig(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid OTLP endpoint")

	config.Monitoring.OTLPEndpoint = "collector:4317"
	config.Integrations.Slack.Enabled = true
	config.Integrations.Slack.WebhookURL = "ftp://hooks.example.com"
	err = validateConfig(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid Slack webhook")

	config.Integrations.Slack.WebhookURL = "https://hooks.example.com/services/T/B/x"
	assert.NoError(t, validateConfig(config))
}

func TestValidateHostPort(t *testing.T) {
	assert.NoError(t, ValidateHostPort("localhost:6379"))
	assert.Error(t, ValidateHostPort("localhost"))
	assert.Error(t, ValidateHostPort(":6379"))
	assert.Error(t, ValidateHostPort("host:notaport"))
}

func TestGenerateConfigTemplate(t *testing.T) {
	tpl := GenerateConfigTemplate("production")
	assert.Contains(t, tpl, "environment: production")
	assert.Contains(t, tpl, "log_level: warn")
	assert.Contains(t, tpl, "poll_interval_seconds: 15")
}
