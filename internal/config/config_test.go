package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8080/ws", cfg.Client.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Client.HeartbeatInterval)
	assert.Equal(t, time.Second, cfg.Client.ReconnectDelay)
	assert.Equal(t, 5, cfg.Client.MaxReconnectAttempts)
	assert.Equal(t, int64(65536), cfg.Client.MessageSizeLimit)
	assert.Equal(t, SourceNone, cfg.Credentials.Source)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
articles = ["a1", "a2"]

[client]
endpoint = "wss://rt.example.com/ws"
heartbeat_interval = "15s"
max_reconnect_attempts = 3

[credentials]
source = "redis"

[credentials.redis]
addr = "redis:6379"
key = "user:42:token"

[server]
cors_origins = ["https://dash.example.com"]

[logging]
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://rt.example.com/ws", cfg.Client.Endpoint)
	assert.Equal(t, 15*time.Second, cfg.Client.HeartbeatInterval)
	assert.Equal(t, 3, cfg.Client.MaxReconnectAttempts)
	assert.Equal(t, time.Second, cfg.Client.ReconnectDelay, "unset keys keep defaults")
	assert.Equal(t, []string{"a1", "a2"}, cfg.Articles)
	assert.Equal(t, SourceRedis, cfg.Credentials.Source)
	assert.Equal(t, "user:42:token", cfg.Credentials.Redis.Key)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, []string{"https://dash.example.com"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.Enabled, "unset keys in a present table keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[client]
endpoint = "wss://rt.example.com/ws"
`)
	t.Setenv("REALTIME_ENDPOINT", "ws://override:9000/ws")
	t.Setenv("REALTIME_CLIENT_HEARTBEAT__INTERVAL", "45s")
	t.Setenv("REALTIME_CREDENTIALS_SOURCE", "static")
	t.Setenv("REALTIME_TOKEN", "secret")
	t.Setenv("REALTIME_ARTICLES", "a1,a2,a3")
	t.Setenv("REALTIME_SERVER_PORT", "9999")
	t.Setenv("REALTIME_SERVER_API__KEYS", "k1,k2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://override:9000/ws", cfg.Client.Endpoint)
	assert.Equal(t, 45*time.Second, cfg.Client.HeartbeatInterval)
	assert.Equal(t, SourceStatic, cfg.Credentials.Source)
	assert.Equal(t, "secret", cfg.Credentials.Token)
	assert.Equal(t, []string{"a1", "a2", "a3"}, cfg.Articles)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("REALTIME_ENDPOINT", "http://rt.example.com/ws")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ws or wss")
}

func TestLoad_RejectsLargeReconnectBudget(t *testing.T) {
	t.Setenv("REALTIME_CLIENT_MAX__RECONNECT__ATTEMPTS", "64")

	cfg, err := Load("")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "client.max_reconnect_attempts")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty endpoint", func(c *Config) { c.Client.Endpoint = "" }, "client.endpoint is required"},
		{"negative heartbeat", func(c *Config) { c.Client.HeartbeatInterval = -time.Second }, "heartbeat_interval"},
		{"zero heartbeat disables", func(c *Config) { c.Client.HeartbeatInterval = 0 }, ""},
		{"zero delay", func(c *Config) { c.Client.ReconnectDelay = 0 }, "reconnect_delay"},
		{"negative attempts", func(c *Config) { c.Client.MaxReconnectAttempts = -1 }, "max_reconnect_attempts"},
		{"attempts at limit", func(c *Config) { c.Client.MaxReconnectAttempts = MaxReconnectAttempts }, ""},
		{"too many attempts", func(c *Config) { c.Client.MaxReconnectAttempts = 64 }, "max_reconnect_attempts must be between 0 and 30"},
		{"static without token", func(c *Config) { c.Credentials.Source = SourceStatic }, "credentials.token"},
		{"file without path", func(c *Config) { c.Credentials.Source = SourceFile }, "credentials.file"},
		{"oauth2 without client", func(c *Config) { c.Credentials.Source = SourceOAuth2 }, "credentials.oauth2"},
		{"unknown source", func(c *Config) { c.Credentials.Source = "vault" }, "credentials.source"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"disabled server ignores port", func(c *Config) { c.Server.Enabled = false; c.Server.Port = 0 }, ""},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "client.endpoint", envKey("REALTIME_ENDPOINT"))
	assert.Equal(t, "client.max_reconnect_attempts", envKey("REALTIME_CLIENT_MAX__RECONNECT__ATTEMPTS"))
	assert.Equal(t, "credentials.redis.addr", envKey("REALTIME_CREDENTIALS_REDIS_ADDR"))
	assert.Equal(t, "logging.level", envKey("REALTIME_LOG_LEVEL"))
}
