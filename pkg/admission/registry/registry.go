package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidConfig is returned when an operation config fails validation.
var ErrInvalidConfig = errors.New("invalid operation config")

// DefaultOperation is the catch-all operation used when a name is not registered.
const DefaultOperation = "api_call"

// OperationConfig defines the admission budget for a single operation class.
//
// A config is immutable once registered: Register stores a copy, and Lookup
// returns values, never pointers into the registry.
type OperationConfig struct {
	// MaxRequests is the maximum number of admitted requests per window.
	MaxRequests uint

	// Window is the trailing time window over which requests are counted.
	Window time.Duration

	// BlockDuration is how long an identity stays blocked after exceeding
	// the budget.
	BlockDuration time.Duration
}

// Validate checks the config bounds.
func (c OperationConfig) Validate() error {
	if c.MaxRequests == 0 {
		return fmt.Errorf("%w: max_requests must be > 0", ErrInvalidConfig)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be > 0", ErrInvalidConfig)
	}
	if c.BlockDuration <= 0 {
		return fmt.Errorf("%w: block_duration must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Registry holds named operation budgets.
//
// Lookup never fails: unknown operation names fall back to the entry
// registered under DefaultOperation. The workload is read-mostly (every
// admission check performs a Lookup), so reads take a shared lock.
type Registry struct {
	configs map[string]OperationConfig
	mu      sync.RWMutex
}

// Defaults returns the builtin budget table.
//
// The table mirrors the operations the application protects: authentication,
// abuse reporting, content mutation, messaging, and a generic catch-all.
func Defaults() map[string]OperationConfig {
	return map[string]OperationConfig{
		"login":          {MaxRequests: 5, Window: 5 * time.Minute, BlockDuration: 5 * time.Minute},
		"register":       {MaxRequests: 3, Window: time.Hour, BlockDuration: 5 * time.Minute},
		"password_reset": {MaxRequests: 3, Window: time.Hour, BlockDuration: 5 * time.Minute},
		"search":         {MaxRequests: 100, Window: time.Hour, BlockDuration: 5 * time.Minute},
		"report":         {MaxRequests: 5, Window: 24 * time.Hour, BlockDuration: 5 * time.Minute},
		"block":          {MaxRequests: 10, Window: time.Hour, BlockDuration: 5 * time.Minute},
		"profile_update": {MaxRequests: 20, Window: time.Hour, BlockDuration: 5 * time.Minute},
		"media_upload":   {MaxRequests: 50, Window: time.Hour, BlockDuration: 5 * time.Minute},
		"message":        {MaxRequests: 100, Window: time.Hour, BlockDuration: 5 * time.Minute},
		DefaultOperation: {MaxRequests: 1000, Window: time.Hour, BlockDuration: 5 * time.Minute},
	}
}

// New creates a registry seeded with the builtin default table.
func New() *Registry {
	return &Registry{
		configs: Defaults(),
	}
}

// Register adds or overwrites the budget for an operation.
// The config is validated before it is stored.
func (r *Registry) Register(operation string, config OperationConfig) error {
	if operation == "" {
		return fmt.Errorf("%w: operation name cannot be empty", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[operation] = config
	return nil
}

// Lookup returns the budget for an operation, falling back to the
// DefaultOperation entry when the name is unknown.
func (r *Registry) Lookup(operation string) OperationConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if config, ok := r.configs[operation]; ok {
		return config
	}
	return r.configs[DefaultOperation]
}

// Operations returns a snapshot of all registered operation names and budgets.
// The returned map is a copy and safe to mutate.
func (r *Registry) Operations() map[string]OperationConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]OperationConfig, len(r.configs))
	for name, config := range r.configs {
		snapshot[name] = config
	}
	return snapshot
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.configs)
}
