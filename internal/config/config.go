// Package config provides centralized configuration management for rowimport.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/rowimport/internal/importer"
	"github.com/JonMunkholm/rowimport/internal/rowdata"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Import   ImportConfig
	Database DatabaseConfig
	Server   ServerConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

// ImportConfig holds header/row codec and reader settings.
type ImportConfig struct {
	// Delimiter separates fields (default: ","). The escapes \t and \| are
	// accepted so tabs and pipes survive shell quoting.
	Delimiter string `env:"ROW_DELIMITER" default:","`

	// Offset is the number of leading key columns left unconverted (default: 0)
	Offset int `env:"ROW_OFFSET" default:"0"`

	// Shape is the record form for convert output: map or array (default: map)
	Shape string `env:"ROW_SHAPE" default:"map"`

	// Format is the convert output encoding: json, msgpack, cbor or protobuf (default: json)
	Format string `env:"OUTPUT_FORMAT" default:"json"`

	// SkipInvalid skips lines that fail conversion instead of stopping (default: false)
	SkipInvalid bool `env:"IMPORT_SKIP_INVALID" default:"false"`

	// IncludeKeys copies key columns into the target table on load (default: false)
	IncludeKeys bool `env:"IMPORT_INCLUDE_KEYS" default:"false"`

	// MaxLineBytes bounds a single input line (default: 1MB)
	MaxLineBytes int `env:"IMPORT_MAX_LINE_BYTES" default:"1048576"`

	// MaxConcurrent is the number of files loaded in parallel (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a file waits for a load slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a whole load command (default: 30m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"30m"`

	// SchemaCacheSize is the number of parsed headers shared across loads
	// and previews; 0 disables the cache (default: 256)
	SchemaCacheSize int `env:"SCHEMA_CACHE_SIZE" default:"256"`
}

// DatabaseConfig holds database connection settings. Only the load command
// needs a database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 8)
	MaxConns int `env:"DB_MAX_CONNS" default:"8"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// ServerConfig holds preview HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// MaxBodyBytes caps a preview request body (default: 10MB)
	MaxBodyBytes int64 `env:"PREVIEW_MAX_BODY_BYTES" default:"10485760"`

	// MaxRows caps the sample rows returned by a preview (default: 100)
	MaxRows int `env:"PREVIEW_MAX_ROWS" default:"100"`

	// APIKeys is a comma-separated list of accepted X-API-Key values.
	// Empty disables key checks.
	APIKeys string `env:"PREVIEW_API_KEYS"`

	// TrustedProxies is a comma-separated list of proxy CIDRs or addresses
	// whose X-Real-IP / X-Forwarded-For headers are believed.
	TrustedProxies string `env:"SERVER_TRUSTED_PROXIES"`
}

// RedisConfig holds settings for the push command.
type RedisConfig struct {
	// URL is the Redis connection string (default: redis://localhost:6379/0)
	URL string `env:"REDIS_URL" default:"redis://localhost:6379/0"`

	// BatchSize is the number of records per RPUSH (default: 500)
	BatchSize int `env:"REDIS_BATCH_SIZE" default:"500"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// FieldDelimiter returns Delimiter with the \t and \| escapes resolved.
func (c *ImportConfig) FieldDelimiter() string {
	return UnescapeDelimiter(c.Delimiter)
}

// ReaderOptions returns the importer settings described by c. Shape falls
// back to array if it does not parse; Validate reports that case.
func (c *ImportConfig) ReaderOptions() importer.Options {
	shape, _ := importer.ParseShape(c.Shape)
	return importer.Options{
		Config: rowdata.Config{
			Delimiter: c.FieldDelimiter(),
			Offset:    c.Offset,
		},
		Shape:        shape,
		SkipInvalid:  c.SkipInvalid,
		MaxLineBytes: c.MaxLineBytes,
	}
}

// UnescapeDelimiter resolves the \t and \| escapes accepted for delimiters.
func UnescapeDelimiter(s string) string {
	return strings.NewReplacer(`\t`, "\t", `\|`, "|").Replace(s)
}

// Keys returns the configured API keys.
func (c *ServerConfig) Keys() []string { return splitList(c.APIKeys) }

// Proxies returns the configured trusted proxies.
func (c *ServerConfig) Proxies() []string { return splitList(c.TrustedProxies) }

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
