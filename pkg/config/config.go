package config

import (
	"time"
)

// Config is the root configuration for the gatehouse service.
type Config struct {
	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// Admission configures operation budgets and the cleanup sweeper.
	Admission AdmissionConfig `yaml:"admission"`

	// Audit configures the denial audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the address the API listens on (e.g., ":8080").
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// keep-alive connection.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AdmissionConfig contains admission control settings.
type AdmissionConfig struct {
	// SweepSchedule is the cron expression for the periodic cleanup sweep.
	SweepSchedule string `yaml:"sweep_schedule"`

	// WatchConfig enables hot reload of operation budgets when the
	// configuration file changes.
	WatchConfig bool `yaml:"watch_config"`

	// Operations maps operation names to budget overrides. Operations not
	// listed here keep their built-in defaults; operations listed here that
	// have no built-in default are registered as new.
	Operations map[string]OperationBudget `yaml:"operations"`
}

// OperationBudget overrides the budget for one operation.
type OperationBudget struct {
	// MaxRequests is the number of requests admitted per window.
	MaxRequests uint `yaml:"max_requests"`

	// Window is the width of the sliding window.
	Window time.Duration `yaml:"window"`

	// BlockDuration is how long an identity is blocked after exceeding
	// the budget.
	BlockDuration time.Duration `yaml:"block_duration"`
}

// AuditConfig contains audit trail settings.
type AuditConfig struct {
	// Enabled turns the audit trail on.
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend ("memory", "sqlite").
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteAuditConfig `yaml:"sqlite"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `yaml:"buffer_size"`

	// WriteTimeout bounds each storage write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RetentionDays is how many days of denial events to keep.
	RetentionDays int `yaml:"retention_days"`
}

// SQLiteAuditConfig contains sqlite backend settings.
type SQLiteAuditConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	// Enabled turns the /metrics endpoint on.
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	Path string `yaml:"path"`
}
