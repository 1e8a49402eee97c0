package admission

import (
	"errors"
	"fmt"
	"time"

	"mercator-hq/gatehouse/pkg/admission/registry"
)

// Error types for admission decisions and caller mistakes.
var (
	// ErrAdmissionDenied is the base error for denied checks. A denial is a
	// normal business outcome, not a fault; it is never logged at error level.
	ErrAdmissionDenied = errors.New("admission denied")

	// ErrInvalidIdentity is returned when the identity is empty.
	ErrInvalidIdentity = errors.New("identity cannot be empty")

	// ErrInvalidOperation is returned when the operation name is empty.
	ErrInvalidOperation = errors.New("operation cannot be empty")

	// ErrInvalidConfig is returned when an operation budget fails validation.
	// Alias of the registry sentinel so callers only need this package.
	ErrInvalidConfig = registry.ErrInvalidConfig
)

// DeniedError carries the retry hint for a denied admission check.
// It wraps ErrAdmissionDenied so callers can test with errors.Is.
type DeniedError struct {
	// Identity is the denied caller.
	Identity string

	// Operation is the operation class that was checked.
	Operation string

	// RetryAfter is how long the caller should wait before retrying.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *DeniedError) Error() string {
	return fmt.Sprintf("admission denied for %s on %s: retry after %s",
		e.Identity, e.Operation, e.RetryAfter)
}

// Unwrap returns ErrAdmissionDenied for error wrapping.
func (e *DeniedError) Unwrap() error {
	return ErrAdmissionDenied
}

// Decision is the outcome of a single admission check.
type Decision struct {
	// Allowed indicates if the request is admitted.
	Allowed bool

	// Reason explains why the request was denied (if Allowed=false).
	Reason string

	// Blocked indicates the identity carries an active block.
	Blocked bool

	// Limit is the operation's budget (max requests per window).
	Limit uint

	// Remaining is how many requests remain in the window after this check.
	Remaining uint

	// ResetIn is how long until the oldest counted request leaves the window.
	ResetIn time.Duration

	// RetryAfter is how long to wait before retrying (if denied).
	RetryAfter time.Duration
}

// OperationStatus is the per-operation view returned by Stats.
type OperationStatus struct {
	// Remaining is the number of requests left in the current window.
	Remaining uint `json:"remaining"`

	// Limit is the operation's budget.
	Limit uint `json:"limit"`

	// Window is the trailing window duration.
	Window time.Duration `json:"window"`

	// ResetIn is how long until the window fully resets.
	ResetIn time.Duration `json:"reset_in"`

	// Blocked indicates whether the identity is currently blocked.
	Blocked bool `json:"blocked"`
}

// DenialEvent describes one denied admission check, for auditing.
type DenialEvent struct {
	// Time is when the denial happened.
	Time time.Time

	// Identity is the denied caller.
	Identity string

	// Operation is the operation class that was checked.
	Operation string

	// RetryAfter is the hint returned to the caller.
	RetryAfter time.Duration

	// NewBlock is true when this denial created or restarted the block,
	// false when an existing block short-circuited the check.
	NewBlock bool
}

// Auditor receives denial events. Implementations must not block: the
// service calls RecordDenial inside its critical section.
type Auditor interface {
	RecordDenial(event DenialEvent)
}
