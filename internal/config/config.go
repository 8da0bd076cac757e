package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the relay reads
const EnvPrefix = "PAIRCHAT_"

// ConfigFileEnv names the environment variable holding the JSON config file path
const ConfigFileEnv = EnvPrefix + "CONFIG_FILE"

// ARCHITECTURAL DISCOVERY: Configuration layer serves as system-wide settings coordinator.
// Only transport and operations settings live here; relay policy (room
// capacity, send rate, field lengths) is fixed in the code
type Config struct {
	Env       string          `json:"env" env:"ENV"`
	LogLevel  string          `json:"log_level" env:"LOG_LEVEL"`
	Database  DatabaseConfig  `json:"database" envPrefix:"DATABASE_"`
	HTTP      HTTPConfig      `json:"http" envPrefix:"HTTP_"`
	WebSocket WebSocketConfig `json:"websocket" envPrefix:"WEBSOCKET_"`
}

// DatabaseConfig configures the room lifecycle audit log
type DatabaseConfig struct {
	Path      string        `json:"path" env:"PATH"`
	Timeout   time.Duration `json:"timeout" env:"TIMEOUT"`
	QueueSize int           `json:"queue_size" env:"QUEUE_SIZE"`
}

// HTTPConfig configures the HTTP listener
type HTTPConfig struct {
	Host            string        `json:"host" env:"HOST"`
	Port            int           `json:"port" env:"PORT"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string      `json:"cors_origins" env:"CORS_ORIGINS"`
}

// WebSocketConfig configures the connection channel
type WebSocketConfig struct {
	PingInterval    time.Duration `json:"ping_interval" env:"PING_INTERVAL"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	BufferSize      int           `json:"buffer_size" env:"BUFFER_SIZE"`
	MaxMessageSize  int64         `json:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	ReadBufferSize  int           `json:"read_buffer_size" env:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `json:"write_buffer_size" env:"WRITE_BUFFER_SIZE"`
}

// DefaultConfig returns the settings used when nothing overrides them.
// FUNCTIONAL DISCOVERY: The audit database defaults to shared in-memory SQLite,
// so nothing survives a restart unless a path is configured
func DefaultConfig() *Config {
	return &Config{
		Env:      "development",
		LogLevel: "info",
		Database: DatabaseConfig{
			Path:      "file:pairchat?mode=memory&cache=shared",
			Timeout:   5 * time.Second,
			QueueSize: 256,
		},
		HTTP: HTTPConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		WebSocket: WebSocketConfig{
			PingInterval:    25 * time.Second,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    5 * time.Second,
			BufferSize:      100,
			MaxMessageSize:  1 << 20,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// Validate rejects configurations that would fail at runtime
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "production", "test":
	default:
		return fmt.Errorf("env must be development, production or test, got %q", c.Env)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}
	if c.Database.QueueSize <= 0 {
		return fmt.Errorf("database queue size must be positive")
	}

	// Port 0 binds an ephemeral port
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 0 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.IdleTimeout <= 0 || c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}

	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.BufferSize <= 0 {
		return fmt.Errorf("WebSocket buffer size must be positive")
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		return fmt.Errorf("WebSocket max message size must be positive")
	}
	if c.WebSocket.ReadBufferSize <= 0 || c.WebSocket.WriteBufferSize <= 0 {
		return fmt.Errorf("WebSocket read and write buffer sizes must be positive")
	}

	return nil
}

// LoadFromEnv overlays PAIRCHAT_* environment variables onto cfg.
// Unset variables leave the current value alone.
func LoadFromEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ConfigFile represents the JSON structure for file-based configuration
// FUNCTIONAL DISCOVERY: Separate struct for JSON parsing to handle duration strings.
// Pointer and empty fields mean "not set" and leave the current value alone
type ConfigFile struct {
	Env       string               `json:"env"`
	LogLevel  string               `json:"log_level"`
	Database  *DatabaseConfigFile  `json:"database"`
	HTTP      *HTTPConfigFile      `json:"http"`
	WebSocket *WebSocketConfigFile `json:"websocket"`
}

type DatabaseConfigFile struct {
	Path      string `json:"path"`
	Timeout   string `json:"timeout"`
	QueueSize int    `json:"queue_size"`
}

type HTTPConfigFile struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	ReadTimeout     string   `json:"read_timeout"`
	WriteTimeout    string   `json:"write_timeout"`
	IdleTimeout     string   `json:"idle_timeout"`
	ShutdownTimeout string   `json:"shutdown_timeout"`
	CORSOrigins     []string `json:"cors_origins"`
}

type WebSocketConfigFile struct {
	PingInterval    string `json:"ping_interval"`
	ReadTimeout     string `json:"read_timeout"`
	WriteTimeout    string `json:"write_timeout"`
	BufferSize      int    `json:"buffer_size"`
	MaxMessageSize  int64  `json:"max_message_size"`
	ReadBufferSize  int    `json:"read_buffer_size"`
	WriteBufferSize int    `json:"write_buffer_size"`
}

// LoadFromFile overlays the JSON file at path onto cfg
func LoadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file ConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := file.apply(cfg); err != nil {
		return fmt.Errorf("invalid value in config file %s: %w", path, err)
	}
	return nil
}

func (f *ConfigFile) apply(cfg *Config) error {
	setString(&cfg.Env, f.Env)
	setString(&cfg.LogLevel, f.LogLevel)

	if db := f.Database; db != nil {
		setString(&cfg.Database.Path, db.Path)
		setInt(&cfg.Database.QueueSize, db.QueueSize)
		if err := setDuration(&cfg.Database.Timeout, "database.timeout", db.Timeout); err != nil {
			return err
		}
	}

	if h := f.HTTP; h != nil {
		setString(&cfg.HTTP.Host, h.Host)
		setInt(&cfg.HTTP.Port, h.Port)
		if len(h.CORSOrigins) > 0 {
			cfg.HTTP.CORSOrigins = h.CORSOrigins
		}
		for _, d := range []struct {
			dst  *time.Duration
			name string
			raw  string
		}{
			{&cfg.HTTP.ReadTimeout, "http.read_timeout", h.ReadTimeout},
			{&cfg.HTTP.WriteTimeout, "http.write_timeout", h.WriteTimeout},
			{&cfg.HTTP.IdleTimeout, "http.idle_timeout", h.IdleTimeout},
			{&cfg.HTTP.ShutdownTimeout, "http.shutdown_timeout", h.ShutdownTimeout},
		} {
			if err := setDuration(d.dst, d.name, d.raw); err != nil {
				return err
			}
		}
	}

	if ws := f.WebSocket; ws != nil {
		setInt(&cfg.WebSocket.BufferSize, ws.BufferSize)
		setInt(&cfg.WebSocket.ReadBufferSize, ws.ReadBufferSize)
		setInt(&cfg.WebSocket.WriteBufferSize, ws.WriteBufferSize)
		if ws.MaxMessageSize > 0 {
			cfg.WebSocket.MaxMessageSize = ws.MaxMessageSize
		}
		for _, d := range []struct {
			dst  *time.Duration
			name string
			raw  string
		}{
			{&cfg.WebSocket.PingInterval, "websocket.ping_interval", ws.PingInterval},
			{&cfg.WebSocket.ReadTimeout, "websocket.read_timeout", ws.ReadTimeout},
			{&cfg.WebSocket.WriteTimeout, "websocket.write_timeout", ws.WriteTimeout},
		} {
			if err := setDuration(d.dst, d.name, d.raw); err != nil {
				return err
			}
		}
	}

	return nil
}

// Load resolves the configuration with precedence defaults < environment < file.
// A .env file in the working directory is loaded first if present. The file
// path argument wins over PAIRCHAT_CONFIG_FILE.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := LoadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	// ARCHITECTURAL DISCOVERY: Validate configuration after loading to catch errors early
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
