package audit

import (
	"context"
	"testing"
	"time"
)

func TestPruner_PruneOnce(t *testing.T) {
	storage := NewMemoryStorage(0)
	ctx := context.Background()
	now := time.Now()

	_ = storage.Store(ctx, testEvent("stale", "u1", now.AddDate(0, 0, -40)))
	_ = storage.Store(ctx, testEvent("aging", "u1", now.AddDate(0, 0, -20)))
	_ = storage.Store(ctx, testEvent("fresh", "u1", now))

	pruner := NewPruner(storage, &PrunerConfig{RetentionDays: 30})

	removed, err := pruner.PruneOnce(ctx)
	if err != nil {
		t.Fatalf("PruneOnce failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 pruned event, got %d", removed)
	}
	if storage.Len() != 2 {
		t.Errorf("Expected 2 remaining events, got %d", storage.Len())
	}

	events, _ := storage.ListByIdentity(ctx, "u1", 10)
	for _, event := range events {
		if event.ID == "stale" {
			t.Error("Expected the stale event to be pruned")
		}
	}
}

func TestPruner_StartStop(t *testing.T) {
	pruner := NewPruner(NewMemoryStorage(0), &PrunerConfig{RetentionDays: 30})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !pruner.IsRunning() {
		t.Error("Expected pruner to be running after Start")
	}

	// Second start while running is rejected.
	if err := pruner.Start(ctx); err == nil {
		t.Error("Expected error starting an already-running pruner")
	}

	pruner.Stop()
	if pruner.IsRunning() {
		t.Error("Expected pruner to be stopped after Stop")
	}
}

func TestPruner_DisabledRetention(t *testing.T) {
	pruner := NewPruner(NewMemoryStorage(0), &PrunerConfig{RetentionDays: 0})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start with disabled retention failed: %v", err)
	}
	if pruner.IsRunning() {
		t.Error("Expected pruner to stay idle with zero retention")
	}
}

func TestPruner_InvalidSchedule(t *testing.T) {
	pruner := NewPruner(NewMemoryStorage(0), &PrunerConfig{
		RetentionDays: 30,
		Schedule:      "not a cron expression",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err == nil {
		t.Error("Expected error for invalid schedule")
	}
	if pruner.IsRunning() {
		t.Error("Expected pruner not to run with invalid schedule")
	}
}

func TestPruner_DefaultSchedule(t *testing.T) {
	pruner := NewPruner(NewMemoryStorage(0), nil)

	if pruner.config.Schedule != DefaultPruneSchedule {
		t.Errorf("Expected default schedule %q, got %q",
			DefaultPruneSchedule, pruner.config.Schedule)
	}
}
