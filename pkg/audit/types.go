package audit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error types for the audit trail.
var (
	// ErrStorageFailure is returned when the storage backend fails.
	ErrStorageFailure = errors.New("audit storage failure")

	// ErrInvalidEvent is returned when an event is missing required fields.
	ErrInvalidEvent = errors.New("invalid audit event")
)

// Event is one persisted admission denial.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Time is when the denial happened.
	Time time.Time `json:"time"`

	// Identity is the denied caller.
	Identity string `json:"identity"`

	// Operation is the operation class that was checked.
	Operation string `json:"operation"`

	// RetryAfter is the hint that was returned to the caller.
	RetryAfter time.Duration `json:"retry_after"`

	// NewBlock is true when the denial created or restarted a block.
	NewBlock bool `json:"new_block"`
}

// Validate checks that the event carries its required fields.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: event cannot be nil", ErrInvalidEvent)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidEvent)
	}
	if e.Identity == "" {
		return fmt.Errorf("%w: identity cannot be empty", ErrInvalidEvent)
	}
	if e.Operation == "" {
		return fmt.Errorf("%w: operation cannot be empty", ErrInvalidEvent)
	}
	return nil
}

// Storage persists audit events. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists one event.
	Store(ctx context.Context, event *Event) error

	// ListByIdentity returns the most recent events for an identity,
	// newest first, up to limit.
	ListByIdentity(ctx context.Context, identity string, limit int) ([]*Event, error)

	// Prune deletes events older than the cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
