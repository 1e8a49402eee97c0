package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/gatehouse/pkg/admission"
)

func testEvent(id, identity string, at time.Time) *Event {
	return &Event{
		ID:         id,
		Time:       at,
		Identity:   identity,
		Operation:  "login",
		RetryAfter: 5 * time.Minute,
		NewBlock:   true,
	}
}

// ============================================================================
// Memory storage
// ============================================================================

func TestMemoryStorage_StoreAndList(t *testing.T) {
	storage := NewMemoryStorage(0)
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		event := testEvent(id, "u1", now.Add(time.Duration(i)*time.Second))
		if err := storage.Store(ctx, event); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	if err := storage.Store(ctx, testEvent("d", "u2", now)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	events, err := storage.ListByIdentity(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events for u1, got %d", len(events))
	}
	if events[0].ID != "c" {
		t.Errorf("Expected newest-first order, got %s first", events[0].ID)
	}

	// Limit applies.
	events, _ = storage.ListByIdentity(ctx, "u1", 2)
	if len(events) != 2 {
		t.Errorf("Expected limit of 2, got %d", len(events))
	}
}

func TestMemoryStorage_Validation(t *testing.T) {
	storage := NewMemoryStorage(0)
	ctx := context.Background()

	err := storage.Store(ctx, &Event{Identity: "u1", Operation: "login"})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("Expected ErrInvalidEvent for missing id, got %v", err)
	}
	err = storage.Store(ctx, &Event{ID: "a", Operation: "login"})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("Expected ErrInvalidEvent for missing identity, got %v", err)
	}
}

func TestMemoryStorage_Prune(t *testing.T) {
	storage := NewMemoryStorage(0)
	ctx := context.Background()
	now := time.Now()

	_ = storage.Store(ctx, testEvent("old", "u1", now.Add(-48*time.Hour)))
	_ = storage.Store(ctx, testEvent("new", "u1", now))

	removed, err := storage.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 pruned event, got %d", removed)
	}
	if storage.Len() != 1 {
		t.Errorf("Expected 1 remaining event, got %d", storage.Len())
	}
}

func TestMemoryStorage_EvictsOldestWhenFull(t *testing.T) {
	storage := NewMemoryStorage(2)
	ctx := context.Background()
	now := time.Now()

	_ = storage.Store(ctx, testEvent("a", "u1", now))
	_ = storage.Store(ctx, testEvent("b", "u1", now))
	_ = storage.Store(ctx, testEvent("c", "u1", now))

	if storage.Len() != 2 {
		t.Fatalf("Expected bound of 2, got %d", storage.Len())
	}
	events, _ := storage.ListByIdentity(ctx, "u1", 10)
	for _, event := range events {
		if event.ID == "a" {
			t.Error("Expected oldest event to be evicted")
		}
	}
}

// ============================================================================
// SQLite storage
// ============================================================================

func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()

	storage, err := NewSQLiteStorage(&SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "audit.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	storage := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now()

	event := testEvent("evt-1", "u1", now)
	if err := storage.Store(ctx, event); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	events, err := storage.ListByIdentity(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.ID != "evt-1" || got.Identity != "u1" || got.Operation != "login" {
		t.Errorf("Unexpected event: %+v", got)
	}
	if got.RetryAfter != 5*time.Minute {
		t.Errorf("Expected retry after 5m, got %v", got.RetryAfter)
	}
	if !got.NewBlock {
		t.Error("Expected new_block to round-trip")
	}
	if got.Time.UnixNano() != now.UnixNano() {
		t.Errorf("Expected timestamp to round-trip, got %v want %v", got.Time, now)
	}
}

func TestSQLiteStorage_ListOrderAndLimit(t *testing.T) {
	storage := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		event := testEvent(
			"evt-"+string(rune('a'+i)),
			"u1",
			now.Add(time.Duration(i)*time.Second),
		)
		if err := storage.Store(ctx, event); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	events, err := storage.ListByIdentity(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[0].ID != "evt-e" {
		t.Errorf("Expected newest first, got %s", events[0].ID)
	}
}

func TestSQLiteStorage_Prune(t *testing.T) {
	storage := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now()

	_ = storage.Store(ctx, testEvent("old", "u1", now.Add(-48*time.Hour)))
	_ = storage.Store(ctx, testEvent("new", "u1", now))

	removed, err := storage.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 pruned row, got %d", removed)
	}

	events, _ := storage.ListByIdentity(ctx, "u1", 10)
	if len(events) != 1 || events[0].ID != "new" {
		t.Errorf("Expected only the new event to remain, got %d events", len(events))
	}
}

// ============================================================================
// Recorder
// ============================================================================

func TestRecorder_PersistsDenials(t *testing.T) {
	storage := NewMemoryStorage(0)
	recorder := NewRecorder(storage, nil)

	recorder.RecordDenial(admission.DenialEvent{
		Time:       time.Now(),
		Identity:   "u1",
		Operation:  "login",
		RetryAfter: 5 * time.Minute,
		NewBlock:   true,
	})

	if err := recorder.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events, err := storage.ListByIdentity(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 persisted event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Error("Expected recorder to assign an event ID")
	}
	if !events[0].NewBlock {
		t.Error("Expected NewBlock to carry through")
	}
}

func TestRecorder_DropsWhenBufferFull(t *testing.T) {
	// A blocked storage would stall the worker; here the buffer is simply
	// too small for a burst, so overflow must be dropped, not block.
	storage := NewMemoryStorage(0)
	recorder := NewRecorder(storage, &RecorderConfig{BufferSize: 1, WriteTimeout: time.Second})
	defer recorder.Close()

	for i := 0; i < 500; i++ {
		recorder.RecordDenial(admission.DenialEvent{
			Time:      time.Now(),
			Identity:  "u1",
			Operation: "login",
		})
	}

	// With a burst of 500 into a 1-slot buffer some events must drop; the
	// exact count depends on worker scheduling.
	total := recorder.DroppedCount()
	if total == 0 {
		t.Skip("worker drained the burst; nothing dropped on this run")
	}
}

func TestRecorder_CloseIdempotent(t *testing.T) {
	recorder := NewRecorder(NewMemoryStorage(0), nil)

	if err := recorder.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}
}
