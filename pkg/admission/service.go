package admission

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/gatehouse/pkg/admission/block"
	"mercator-hq/gatehouse/pkg/admission/registry"
	"mercator-hq/gatehouse/pkg/admission/window"
)

// Service is the admission facade. It exclusively owns the window and block
// maps and composes the registry, sliding window counter, and block state
// machine under a single concurrency discipline.
//
// Every mutating sequence (consult block, prune, compare, append-or-block)
// runs under one coarse mutex, making each call linearizable with respect to
// every other call. Lock hold time is bounded: pruning is a prefix trim and
// no lock is held across I/O.
//
// A Service is constructed once at process start and handed to callers
// explicitly; there is no package-level singleton.
type Service struct {
	registry *registry.Registry

	mu      sync.Mutex
	windows map[string]map[string]*window.Window // identity -> operation -> window
	blocks  *block.List

	metrics *Metrics
	auditor Auditor
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry replaces the builtin budget registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditor attaches a denial auditor.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates an admission service seeded with the default budgets.
func NewService(opts ...Option) *Service {
	s := &Service{
		registry: registry.New(),
		windows:  make(map[string]map[string]*window.Window),
		blocks:   block.NewList(),
		logger:   slog.Default().With("component", "admission"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check decides whether one more request for (identity, operation) is
// admitted. On admission the request is recorded; on denial the identity is
// blocked for the operation's block duration and the decision carries the
// retry hint. Check never blocks or waits.
//
// A denial is returned as a Decision with Allowed=false and a nil error;
// errors are reserved for caller mistakes (empty identity or operation).
func (s *Service) Check(identity, operation string) (*Decision, error) {
	if err := validateKey(identity, operation); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.metrics.ObserveCheckDuration(operation, time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cfg := s.registry.Lookup(operation)

	// An active block takes precedence over window accounting.
	if state, ok := s.blocks.Get(identity); ok && state.Active(now) {
		retryAfter := state.RetryAfter(now)
		s.metrics.RecordCheck(operation, false)
		s.audit(DenialEvent{
			Time:       now,
			Identity:   identity,
			Operation:  operation,
			RetryAfter: retryAfter,
			NewBlock:   false,
		})
		return &Decision{
			Allowed:    false,
			Reason:     "identity is temporarily blocked",
			Blocked:    true,
			Limit:      cfg.MaxRequests,
			RetryAfter: retryAfter,
		}, nil
	}

	w := s.windowLocked(identity, operation)
	w.Prune(now, cfg.Window)

	if uint(w.Len()) >= cfg.MaxRequests {
		// Budget exceeded: block the identity. A repeat violation restarts
		// the timer from this violation.
		s.blocks.Block(identity, now, cfg.BlockDuration)
		s.logger.Warn("admission budget exceeded, identity blocked",
			"identity", identity,
			"operation", operation,
			"max_requests", cfg.MaxRequests,
			"window", cfg.Window,
			"block_duration", cfg.BlockDuration,
		)
		s.metrics.RecordCheck(operation, false)
		s.metrics.RecordBlock(operation)
		s.updateGaugesLocked()
		s.audit(DenialEvent{
			Time:       now,
			Identity:   identity,
			Operation:  operation,
			RetryAfter: cfg.BlockDuration,
			NewBlock:   true,
		})
		return &Decision{
			Allowed: false,
			Reason: fmt.Sprintf("budget exceeded: maximum %d requests per %s",
				cfg.MaxRequests, cfg.Window),
			Blocked:    true,
			Limit:      cfg.MaxRequests,
			ResetIn:    w.ResetIn(now, cfg.Window),
			RetryAfter: cfg.BlockDuration,
		}, nil
	}

	w.Append(now)
	s.metrics.RecordCheck(operation, true)
	s.updateGaugesLocked()

	return &Decision{
		Allowed:   true,
		Limit:     cfg.MaxRequests,
		Remaining: cfg.MaxRequests - uint(w.Len()),
		ResetIn:   w.ResetIn(now, cfg.Window),
	}, nil
}

// Guard is a convenience wrapper around Check for callers that only need an
// error: nil when admitted, a *DeniedError when denied, a validation error
// on caller mistakes.
func (s *Service) Guard(identity, operation string) error {
	decision, err := s.Check(identity, operation)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &DeniedError{
			Identity:   identity,
			Operation:  operation,
			RetryAfter: decision.RetryAfter,
		}
	}
	return nil
}

// Record unconditionally appends a request timestamp without performing the
// admission check. Used when the caller has already decided to admit by
// other means and only wants the accounting to reflect it.
func (s *Service) Record(identity, operation string) error {
	if err := validateKey(identity, operation); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.windowLocked(identity, operation).Append(s.now())
	s.updateGaugesLocked()
	return nil
}

// Remaining returns how many requests remain in the current window and how
// long until the window resets. Read-only: it never mutates state.
func (s *Service) Remaining(identity, operation string) (remaining uint, resetIn time.Duration, err error) {
	if err := validateKey(identity, operation); err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cfg := s.registry.Lookup(operation)
	return s.remainingLocked(identity, operation, cfg, now)
}

// Reset clears the window for (identity, operation). An active block is NOT
// cleared; a blocked identity stays blocked until expiry or Unblock.
func (s *Service) Reset(identity, operation string) error {
	if err := validateKey(identity, operation); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ops, ok := s.windows[identity]; ok {
		delete(ops, operation)
		if len(ops) == 0 {
			delete(s.windows, identity)
		}
	}
	s.updateGaugesLocked()
	return nil
}

// Unblock removes an active block for an identity. Administrative override;
// window accounting is untouched.
func (s *Service) Unblock(identity string) error {
	if identity == "" {
		return ErrInvalidIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blocks.Remove(identity) {
		s.logger.Info("identity unblocked", "identity", identity)
	}
	s.updateGaugesLocked()
	return nil
}

// Stats returns the remaining/limit/reset/blocked status of every registered
// operation for an identity, for diagnostics.
func (s *Service) Stats(identity string) (map[string]OperationStatus, error) {
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	blocked := s.blocks.Active(identity, now)

	stats := make(map[string]OperationStatus)
	for operation, cfg := range s.registry.Operations() {
		remaining, resetIn, _ := s.remainingLocked(identity, operation, cfg, now)
		stats[operation] = OperationStatus{
			Remaining: remaining,
			Limit:     cfg.MaxRequests,
			Window:    cfg.Window,
			ResetIn:   resetIn,
			Blocked:   blocked,
		}
	}
	return stats, nil
}

// RegisterOperation adds or overwrites an operation budget.
func (s *Service) RegisterOperation(operation string, cfg registry.OperationConfig) error {
	return s.registry.Register(operation, cfg)
}

// Registry exposes the budget registry for read access (config watchers,
// HTTP handlers).
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Sweep prunes every tracked window, removes windows that decayed to empty
// and blocks that expired, and returns the number of removed timestamps and
// block entries. Safe to run concurrently with Check/Record (same critical
// section) and idempotent: a second pass with no new traffic removes nothing.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0

	for identity, ops := range s.windows {
		for operation, w := range ops {
			cfg := s.registry.Lookup(operation)
			removed += w.Prune(now, cfg.Window)
			if w.Len() == 0 {
				delete(ops, operation)
			}
		}
		if len(ops) == 0 {
			delete(s.windows, identity)
		}
	}

	removed += s.blocks.SweepExpired(now)

	s.metrics.RecordSweep(removed)
	s.updateGaugesLocked()
	return removed
}

// windowLocked returns the window for (identity, operation), creating it
// lazily. Caller must hold s.mu.
func (s *Service) windowLocked(identity, operation string) *window.Window {
	ops, ok := s.windows[identity]
	if !ok {
		ops = make(map[string]*window.Window)
		s.windows[identity] = ops
	}
	w, ok := ops[operation]
	if !ok {
		w = window.New()
		ops[operation] = w
	}
	return w
}

// remainingLocked computes remaining budget and reset time without mutating
// any window. Caller must hold s.mu.
func (s *Service) remainingLocked(identity, operation string, cfg registry.OperationConfig, now time.Time) (uint, time.Duration, error) {
	ops, ok := s.windows[identity]
	if !ok {
		return cfg.MaxRequests, 0, nil
	}
	w, ok := ops[operation]
	if !ok {
		return cfg.MaxRequests, 0, nil
	}

	count, resetIn := w.Snapshot(now, cfg.Window)
	if uint(count) >= cfg.MaxRequests {
		return 0, resetIn, nil
	}
	return cfg.MaxRequests - uint(count), resetIn, nil
}

// updateGaugesLocked refreshes the tracked-state gauges. Caller must hold s.mu.
func (s *Service) updateGaugesLocked() {
	pairs := 0
	for _, ops := range s.windows {
		pairs += len(ops)
	}
	s.metrics.SetTracked(pairs, s.blocks.Len())
}

// audit forwards a denial event to the configured auditor, if any.
func (s *Service) audit(event DenialEvent) {
	if s.auditor != nil {
		s.auditor.RecordDenial(event)
	}
}

func validateKey(identity, operation string) error {
	if identity == "" {
		return ErrInvalidIdentity
	}
	if operation == "" {
		return ErrInvalidOperation
	}
	return nil
}
