package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pairchat.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// FUNCTIONAL VALIDATION TEST: Defaults are valid on their own
func TestConfig_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Contains(t, cfg.Database.Path, "mode=memory")
	assert.Equal(t, int64(1<<20), cfg.WebSocket.MaxMessageSize)
	assert.Less(t, cfg.WebSocket.PingInterval, cfg.WebSocket.ReadTimeout)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown env", func(c *Config) { c.Env = "staging" }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"zero database timeout", func(c *Config) { c.Database.Timeout = 0 }},
		{"zero queue", func(c *Config) { c.Database.QueueSize = 0 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"negative port", func(c *Config) { c.HTTP.Port = -1 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"zero shutdown timeout", func(c *Config) { c.HTTP.ShutdownTimeout = 0 }},
		{"ping slower than read timeout", func(c *Config) { c.WebSocket.PingInterval = 2 * time.Minute }},
		{"zero write timeout", func(c *Config) { c.WebSocket.WriteTimeout = 0 }},
		{"zero buffer", func(c *Config) { c.WebSocket.BufferSize = 0 }},
		{"zero message size", func(c *Config) { c.WebSocket.MaxMessageSize = 0 }},
		{"zero read buffer", func(c *Config) { c.WebSocket.ReadBufferSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// FUNCTIONAL VALIDATION TEST: Environment variables override defaults
func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("PAIRCHAT_ENV", "production")
	t.Setenv("PAIRCHAT_LOG_LEVEL", "debug")
	t.Setenv("PAIRCHAT_HTTP_PORT", "9090")
	t.Setenv("PAIRCHAT_HTTP_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PAIRCHAT_DATABASE_PATH", "/tmp/audit.db")
	t.Setenv("PAIRCHAT_WEBSOCKET_PING_INTERVAL", "15s")
	t.Setenv("PAIRCHAT_WEBSOCKET_MAX_MESSAGE_SIZE", "4096")

	cfg := DefaultConfig()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "/tmp/audit.db", cfg.Database.Path)
	assert.Equal(t, 15*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, int64(4096), cfg.WebSocket.MaxMessageSize)

	// untouched values keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 100, cfg.WebSocket.BufferSize)
}

func TestConfig_LoadFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("PAIRCHAT_HTTP_PORT", "not-a-port")

	assert.Error(t, LoadFromEnv(DefaultConfig()))
}

func TestConfig_LoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"log_level": "warn",
		"http": {"port": 7000, "read_timeout": "5s"},
		"websocket": {"buffer_size": 32, "write_timeout": "2s"},
		"database": {"path": "./audit.db", "timeout": "1s"}
	}`)

	cfg := DefaultConfig()
	require.NoError(t, LoadFromFile(cfg, path))

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, 32, cfg.WebSocket.BufferSize)
	assert.Equal(t, 2*time.Second, cfg.WebSocket.WriteTimeout)
	assert.Equal(t, "./audit.db", cfg.Database.Path)
	assert.Equal(t, time.Second, cfg.Database.Timeout)
}

func TestConfig_LoadFromFileErrors(t *testing.T) {
	assert.Error(t, LoadFromFile(DefaultConfig(), filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, LoadFromFile(DefaultConfig(), writeConfigFile(t, `{not json`)))
	assert.Error(t, LoadFromFile(DefaultConfig(), writeConfigFile(t, `{"websocket": {"ping_interval": "soon"}}`)))
}

// FUNCTIONAL VALIDATION TEST: Configuration precedence is defaults < env < file
func TestConfig_LoadPrecedence(t *testing.T) {
	path := writeConfigFile(t, `{"http": {"port": 7000}}`)
	t.Setenv("PAIRCHAT_HTTP_PORT", "9090")
	t.Setenv("PAIRCHAT_HTTP_HOST", "127.0.0.1")
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTP.Port, "file beats env")
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host, "env beats default")
}

func TestConfig_LoadValidates(t *testing.T) {
	t.Setenv("PAIRCHAT_ENV", "staging")

	_, err := Load("")
	assert.Error(t, err)
}
