package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatehouse.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// ============================================================================
// Defaults
// ============================================================================

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("Expected default listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("Expected default shutdown timeout, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Admission.SweepSchedule != DefaultSweepSchedule {
		t.Errorf("Expected default sweep schedule, got %q", cfg.Admission.SweepSchedule)
	}
	if cfg.Audit.Backend != DefaultAuditBackend {
		t.Errorf("Expected default audit backend, got %q", cfg.Audit.Backend)
	}
	if cfg.Telemetry.Logging.Level != DefaultLogLevel {
		t.Errorf("Expected default log level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestApplyDefaults_PreservesSetValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.ListenAddress = ":9090"
	cfg.Admission.SweepSchedule = "0 * * * *"
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != ":9090" {
		t.Errorf("Expected explicit listen address to survive, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Admission.SweepSchedule != "0 * * * *" {
		t.Errorf("Expected explicit schedule to survive, got %q", cfg.Admission.SweepSchedule)
	}
}

// ============================================================================
// Loading
// ============================================================================

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: ":9191"
  read_timeout: 5s
admission:
  sweep_schedule: "*/10 * * * *"
  operations:
    login:
      max_requests: 3
      window: 10m
      block_duration: 15m
audit:
  enabled: true
  backend: sqlite
  sqlite:
    path: /tmp/audit.db
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":9191" {
		t.Errorf("Unexpected listen address: %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Unexpected read timeout: %v", cfg.Server.ReadTimeout)
	}
	// Unset fields get defaults.
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("Expected default write timeout, got %v", cfg.Server.WriteTimeout)
	}

	budget, ok := cfg.Admission.Operations["login"]
	if !ok {
		t.Fatal("Expected login operation override")
	}
	if budget.MaxRequests != 3 || budget.Window != 10*time.Minute || budget.BlockDuration != 15*time.Minute {
		t.Errorf("Unexpected login budget: %+v", budget)
	}

	if cfg.Audit.Backend != "sqlite" || cfg.Audit.SQLite.Path != "/tmp/audit.db" {
		t.Errorf("Unexpected audit config: %+v", cfg.Audit)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("Unexpected logging config: %+v", cfg.Telemetry.Logging)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not: a: mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: ":8080"
`)

	t.Setenv("GATEHOUSE_SERVER_LISTEN_ADDRESS", ":7070")
	t.Setenv("GATEHOUSE_ADMISSION_SWEEP_SCHEDULE", "*/1 * * * *")
	t.Setenv("GATEHOUSE_AUDIT_ENABLED", "true")
	t.Setenv("GATEHOUSE_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":7070" {
		t.Errorf("Expected env override for listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Admission.SweepSchedule != "*/1 * * * *" {
		t.Errorf("Expected env override for sweep schedule, got %q", cfg.Admission.SweepSchedule)
	}
	if !cfg.Audit.Enabled {
		t.Error("Expected env override to enable audit")
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Expected env override for log level, got %q", cfg.Telemetry.Logging.Level)
	}
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate_Valid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.ListenAddress = ""
	cfg.Admission.SweepSchedule = "not a cron expression"
	cfg.Audit.Backend = "cassandra"
	cfg.Telemetry.Logging.Level = "loud"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation to fail")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 4 {
		t.Errorf("Expected 4 field errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestValidate_OperationBudgets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Admission.Operations = map[string]OperationBudget{
		"login":  {MaxRequests: 5, Window: time.Minute, BlockDuration: time.Minute},
		"export": {MaxRequests: 0, Window: -time.Second, BlockDuration: 0},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation to fail")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	// The export operation violates all three rules; login is fine.
	if len(verr.Errors) != 3 {
		t.Errorf("Expected 3 field errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestValidate_SQLiteRequiresPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Backend = "sqlite"
	cfg.Audit.SQLite.Path = ""

	if err := Validate(cfg); err == nil {
		t.Error("Expected sqlite backend without path to fail validation")
	}
}

// ============================================================================
// Watcher
// ============================================================================

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: ":8080"
`)

	watcher, err := NewWatcher(path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	var (
		mu       sync.Mutex
		reloaded *Config
	)
	gotReload := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- watcher.Watch(ctx, func(cfg *Config) {
			mu.Lock()
			reloaded = cfg
			mu.Unlock()
			select {
			case gotReload <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to arm before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("server:\n  listen_address: \":9999\"\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case <-gotReload:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	mu.Lock()
	addr := reloaded.Server.ListenAddress
	mu.Unlock()
	if addr != ":9999" {
		t.Errorf("Expected reloaded listen address :9999, got %q", addr)
	}

	if err := watcher.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := <-watchDone; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
}

func TestWatcher_InvalidReloadKeepsWatching(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: ":8080"
`)

	watcher, err := NewWatcher(path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer watcher.Stop()

	gotReload := make(chan string, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = watcher.Watch(ctx, func(cfg *Config) {
			gotReload <- cfg.Server.ListenAddress
		})
	}()

	time.Sleep(100 * time.Millisecond)

	// Broken YAML must not produce a reload.
	if err := os.WriteFile(path, []byte("server: [broken"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	select {
	case addr := <-gotReload:
		t.Fatalf("Unexpected reload with broken config: %q", addr)
	case <-time.After(500 * time.Millisecond):
	}

	// A subsequent valid write still reloads.
	if err := os.WriteFile(path, []byte("server:\n  listen_address: \":6060\"\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	select {
	case addr := <-gotReload:
		if addr != ":6060" {
			t.Errorf("Expected :6060, got %q", addr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for recovery reload")
	}
}

func TestNewWatcher_EmptyPath(t *testing.T) {
	if _, err := NewWatcher("", 0); err == nil {
		t.Error("Expected empty path to be rejected")
	}
}
