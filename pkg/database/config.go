package database

import (
	"errors"
	"strings"
	"time"
)

// MemoryPath is the default database: an in-memory SQLite database shared by
// every connection of the pool, gone when the process exits
const MemoryPath = "file:pairchat?mode=memory&cache=shared"

// Config holds database configuration
// ARCHITECTURAL DISCOVERY: Configuration struct provides all database settings
// needed for production deployment without hardcoded values
type Config struct {
	DatabasePath    string        `json:"database_path"`
	MaxConnections  int           `json:"max_connections"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`  // 0 keeps connections forever
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"` // 0 keeps idle connections forever
	QueueSize       int           `json:"queue_size"`
	Timeout         time.Duration `json:"timeout"`
}

// DefaultConfig returns the in-memory audit database configuration
// FUNCTIONAL DISCOVERY: An in-memory database is dropped when its last
// connection closes, so connections never expire and the pool is a single
// connection that also serializes shared-cache access
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:    MemoryPath,
		MaxConnections:  1,
		ConnMaxLifetime: 0,
		ConnMaxIdleTime: 0,
		QueueSize:       256,
		Timeout:         5 * time.Second,
	}
}

// FileConfig returns a configuration for an on-disk database at path
func FileConfig(path string) *Config {
	return &Config{
		DatabasePath:    path,
		MaxConnections:  10, // SQLite recommended limit for concurrent access
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 10,
		QueueSize:       256,
		Timeout:         5 * time.Second,
	}
}

// InMemory reports whether the configured database lives only in memory
func (c *Config) InMemory() bool {
	return c.DatabasePath == ":memory:" || strings.Contains(c.DatabasePath, "mode=memory")
}

// DSN returns the go-sqlite3 connection string with driver options appended
func (c *Config) DSN() string {
	params := "_busy_timeout=5000&_foreign_keys=on"
	if !c.InMemory() {
		params += "&_journal_mode=WAL"
	}
	sep := "?"
	if strings.Contains(c.DatabasePath, "?") {
		sep = "&"
	}
	return c.DatabasePath + sep + params
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("database path cannot be empty")
	}
	if c.MaxConnections <= 0 {
		return errors.New("max connections must be greater than 0")
	}
	if c.ConnMaxLifetime < 0 {
		return errors.New("connection max lifetime cannot be negative")
	}
	if c.ConnMaxIdleTime < 0 {
		return errors.New("connection max idle time cannot be negative")
	}
	if c.QueueSize <= 0 {
		return errors.New("queue size must be greater than 0")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	return nil
}
