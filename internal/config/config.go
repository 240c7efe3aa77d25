// Package config provides centralized configuration management for the application.
// It loads configuration from built-in defaults, an optional YAML file and
// environment variables, in that order, and validates all settings on
// startup to fail fast on misconfiguration.
package config

import "time"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Media backends.
const (
	MediaLocal = "local"
	MediaS3    = "s3"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Store    StoreConfig     `yaml:"store"`
	Import   ImportConfig    `yaml:"import"`
	Media    MediaConfig     `yaml:"media"`
	Rate     RateLimitConfig `yaml:"rate"`
	Security SecurityConfig  `yaml:"security"`
	Logging  LoggingConfig   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Watch    WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response.
	// Imports render after the whole run, so this is off by default.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown,
	// including an import in progress (default: 5m)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required for the postgres store)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `yaml:"max_conns" env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `yaml:"min_conns" env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// StoreConfig selects the content store.
type StoreConfig struct {
	// Driver is "postgres" or "memory" (default: postgres)
	Driver string `yaml:"driver" env:"STORE_DRIVER" default:"postgres"`

	// Migrate creates the content tables on startup (default: true)
	Migrate bool `yaml:"migrate" env:"STORE_MIGRATE" default:"true"`
}

// ImportConfig holds import run settings.
type ImportConfig struct {
	// Source is the CSV (or .xlsx) file an import run reads (default: import.csv)
	Source string `yaml:"source" env:"IMPORT_SOURCE" default:"import.csv"`

	// AttachmentsDir is where attachment names resolve.
	// Defaults to "attachments" next to the executable.
	AttachmentsDir string `yaml:"attachments_dir" env:"IMPORT_ATTACHMENTS_DIR"`

	// MaxFileSize is the maximum allowed source size in bytes (default: 100MB)
	MaxFileSize int64 `yaml:"max_file_size" env:"IMPORT_MAX_FILE_SIZE" default:"104857600"`

	// MaxWaitTime is how long a trigger waits for a running import to
	// finish before giving up (default: 0s, fail immediately)
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"IMPORT_MAX_WAIT_TIME" default:"0s"`

	// HistoryLimit is how many runs run history lists (default: 20)
	HistoryLimit int `yaml:"history_limit" env:"IMPORT_HISTORY_LIMIT" default:"20"`
}

// MediaConfig holds media library settings for sideloaded attachments.
type MediaConfig struct {
	// Backend is "local" or "s3" (default: local)
	Backend string `yaml:"backend" env:"MEDIA_BACKEND" default:"local"`

	// Dir is the local media library root (default: uploads)
	Dir string `yaml:"dir" env:"MEDIA_DIR" default:"uploads"`

	// BaseURL is the public URL prefix of stored files (default: /uploads)
	BaseURL string `yaml:"base_url" env:"MEDIA_BASE_URL" default:"/uploads"`

	S3Bucket          string `yaml:"s3_bucket" env:"MEDIA_S3_BUCKET"`
	S3Region          string `yaml:"s3_region" env:"MEDIA_S3_REGION" envAlt:"AWS_REGION"`
	S3Endpoint        string `yaml:"s3_endpoint" env:"MEDIA_S3_ENDPOINT"`
	S3Prefix          string `yaml:"s3_prefix" env:"MEDIA_S3_PREFIX"`
	S3UsePathStyle    bool   `yaml:"s3_use_path_style" env:"MEDIA_S3_USE_PATH_STYLE" default:"false"`
	S3AccessKeyID     string `yaml:"s3_access_key_id" env:"MEDIA_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key" env:"MEDIA_S3_SECRET_ACCESS_KEY"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `yaml:"import_limit" env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAuth rejects requests without credentials (default: true)
	RequireAuth bool `yaml:"require_auth" env:"REQUIRE_AUTH" default:"true"`

	// APIKeys is a comma-separated list of "key:Role[:name]" entries
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`

	// JWTSecret signs and verifies bearer tokens
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`

	// TokenDuration is the lifetime of issued tokens (default: 24h)
	TokenDuration time.Duration `yaml:"token_duration" env:"JWT_TOKEN_DURATION" default:"24h"`

	// ImportRole is the role whose capability an import requires (default: Administrator)
	ImportRole string `yaml:"import_role" env:"IMPORT_ROLE" default:"Administrator"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `yaml:"enable_csp" env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics (default: true)
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" default:"true"`

	// Path is the metrics endpoint (default: /metrics)
	Path string `yaml:"path" env:"METRICS_PATH" default:"/metrics"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	// Debounce is how long the source must be quiet before a run (default: 500ms)
	Debounce time.Duration `yaml:"debounce" env:"WATCH_DEBOUNCE" default:"500ms"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
