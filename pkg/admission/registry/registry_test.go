package registry

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistry_Defaults(t *testing.T) {
	reg := New()

	login := reg.Lookup("login")
	if login.MaxRequests != 5 {
		t.Errorf("Expected login max_requests 5, got %d", login.MaxRequests)
	}
	if login.Window != 5*time.Minute {
		t.Errorf("Expected login window 5m, got %v", login.Window)
	}
	if login.BlockDuration != 5*time.Minute {
		t.Errorf("Expected login block_duration 5m, got %v", login.BlockDuration)
	}

	report := reg.Lookup("report")
	if report.MaxRequests != 5 || report.Window != 24*time.Hour {
		t.Errorf("Unexpected report budget: %+v", report)
	}

	if reg.Len() != 10 {
		t.Errorf("Expected 10 builtin operations, got %d", reg.Len())
	}
}

func TestRegistry_UnknownFallsBackToDefault(t *testing.T) {
	reg := New()

	got := reg.Lookup("no_such_operation")
	want := reg.Lookup(DefaultOperation)
	if got != want {
		t.Errorf("Expected fallback to %s budget %+v, got %+v", DefaultOperation, want, got)
	}
	if got.MaxRequests != 1000 || got.Window != time.Hour {
		t.Errorf("Unexpected generic default: %+v", got)
	}
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	reg := New()

	custom := OperationConfig{MaxRequests: 2, Window: time.Minute, BlockDuration: time.Minute}
	if err := reg.Register("login", custom); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if got := reg.Lookup("login"); got != custom {
		t.Errorf("Expected overwritten budget %+v, got %+v", custom, got)
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	reg := New()

	cases := []struct {
		name      string
		operation string
		config    OperationConfig
	}{
		{"zero max_requests", "op", OperationConfig{MaxRequests: 0, Window: time.Minute, BlockDuration: time.Minute}},
		{"zero window", "op", OperationConfig{MaxRequests: 1, Window: 0, BlockDuration: time.Minute}},
		{"negative window", "op", OperationConfig{MaxRequests: 1, Window: -time.Second, BlockDuration: time.Minute}},
		{"zero block duration", "op", OperationConfig{MaxRequests: 1, Window: time.Minute, BlockDuration: 0}},
		{"empty name", "", OperationConfig{MaxRequests: 1, Window: time.Minute, BlockDuration: time.Minute}},
	}

	for _, tc := range cases {
		err := reg.Register(tc.operation, tc.config)
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}
}

func TestRegistry_OperationsSnapshot(t *testing.T) {
	reg := New()

	snapshot := reg.Operations()
	if len(snapshot) != reg.Len() {
		t.Fatalf("Expected snapshot of %d entries, got %d", reg.Len(), len(snapshot))
	}

	// Mutating the snapshot must not affect the registry.
	snapshot["login"] = OperationConfig{MaxRequests: 1, Window: time.Second, BlockDuration: time.Second}
	if reg.Lookup("login").MaxRequests != 5 {
		t.Error("Snapshot mutation leaked into registry")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = reg.Lookup("login")
		}()
		go func() {
			defer wg.Done()
			_ = reg.Register("custom", OperationConfig{
				MaxRequests:   10,
				Window:        time.Minute,
				BlockDuration: time.Minute,
			})
		}()
	}
	wg.Wait()

	if got := reg.Lookup("custom"); got.MaxRequests != 10 {
		t.Errorf("Expected custom budget after concurrent registration, got %+v", got)
	}
}
