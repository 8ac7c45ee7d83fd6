// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Explore  ExploreConfig
	Limits   LimitsConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	// Supports both SERVER_PORT and PORT env vars for hosted platforms
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 10m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"10m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 10m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"10m"`
}

// ExploreConfig holds pipeline settings.
type ExploreConfig struct {
	// DiagnoseLines is how many leading lines the diagnoser parses (default: 20)
	DiagnoseLines int `env:"EXPLORE_DIAGNOSE_LINES" default:"20"`

	// DiagnoseMaxBytes bounds the prefix read for diagnosis (default: 64KB)
	DiagnoseMaxBytes int64 `env:"EXPLORE_DIAGNOSE_MAX_BYTES" default:"65536"`

	// MaxRows caps the rows loaded per file; 0 loads everything (default: 0)
	MaxRows int `env:"EXPLORE_MAX_ROWS" default:"0"`

	// MaxBytes caps the bytes loaded per file; 0 loads everything (default: 100MB)
	MaxBytes int64 `env:"EXPLORE_MAX_BYTES" default:"104857600"`

	// CategoricalThreshold is the largest distinct count treated as categorical (default: 50)
	CategoricalThreshold int `env:"EXPLORE_CATEGORICAL_THRESHOLD" default:"50"`

	// Workers is the number of files explored in parallel by batch runs (default: 4)
	Workers int `env:"EXPLORE_WORKERS" default:"4"`

	// DictionaryPath is an optional YAML repair dictionary
	DictionaryPath string `env:"EXPLORE_DICTIONARY_PATH"`

	// Timeout is the maximum duration for exploring one file (default: 10m)
	Timeout time.Duration `env:"EXPLORE_TIMEOUT" default:"10m"`

	// Retain is how many summaries the server keeps in memory (default: 100)
	Retain int `env:"EXPLORE_RETAIN" default:"100"`
}

// LimitsConfig holds upload admission settings.
type LimitsConfig struct {
	// MaxFileSize is the maximum accepted upload in bytes (default: 100MB)
	MaxFileSize int64 `env:"EXPLORE_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel explorations (default: 4)
	MaxConcurrent int `env:"EXPLORE_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an exploration slot (default: 30s)
	MaxWaitTime time.Duration `env:"EXPLORE_MAX_WAIT_TIME" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects API requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// AllowedOrigins enables CORS on /api for these origins; empty disables CORS
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
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
