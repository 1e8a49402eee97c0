package main

import (
	"testing"
	"time"

	"mercator-hq/gatehouse/pkg/admission/registry"
	"mercator-hq/gatehouse/pkg/config"
)

func TestEffectiveLogLevel(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		flagLevel  string
		verbose    bool
		want       string
	}{
		{"config only", "info", "", false, "info"},
		{"verbose bumps to debug", "info", "", true, "debug"},
		{"explicit flag wins", "info", "warn", false, "warn"},
		{"explicit flag beats verbose", "info", "warn", true, "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := effectiveLogLevel(tt.configured, tt.flagLevel, tt.verbose)
			if got != tt.want {
				t.Errorf("effectiveLogLevel(%q, %q, %v) = %q, want %q",
					tt.configured, tt.flagLevel, tt.verbose, got, tt.want)
			}
		})
	}
}

func TestRegisterBudgets(t *testing.T) {
	reg := registry.New()

	budgets := map[string]config.OperationBudget{
		"login":  {MaxRequests: 2, Window: time.Minute, BlockDuration: 5 * time.Minute},
		"export": {MaxRequests: 10, Window: time.Hour, BlockDuration: 10 * time.Minute},
	}
	if err := registerBudgets(reg, budgets); err != nil {
		t.Fatalf("registerBudgets failed: %v", err)
	}

	got := reg.Lookup("login")
	if got.MaxRequests != 2 || got.Window != time.Minute {
		t.Errorf("Expected login override to apply, got %+v", got)
	}
	got = reg.Lookup("export")
	if got.MaxRequests != 10 {
		t.Errorf("Expected export budget to register, got %+v", got)
	}
}

func TestRegisterBudgets_InvalidBudget(t *testing.T) {
	reg := registry.New()

	budgets := map[string]config.OperationBudget{
		"login": {MaxRequests: 0, Window: time.Minute, BlockDuration: 5 * time.Minute},
	}
	if err := registerBudgets(reg, budgets); err == nil {
		t.Error("Expected error for zero max_requests")
	}
}
