package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs the retention prune daily at 3 AM.
const DefaultPruneSchedule = "0 3 * * *"

// PrunerConfig contains configuration for the retention pruner.
type PrunerConfig struct {
	// RetentionDays is how many days of denial events to keep.
	RetentionDays int

	// Schedule is the cron expression for the prune pass.
	// Default: DefaultPruneSchedule
	Schedule string
}

// Pruner deletes audit events older than the retention period on a cron
// schedule. Without it the trail grows without bound; pruning is purely a
// storage concern and never affects admission decisions.
type Pruner struct {
	storage Storage
	config  *PrunerConfig
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewPruner creates a retention pruner for the given storage backend.
func NewPruner(storage Storage, config *PrunerConfig) *Pruner {
	if config == nil {
		config = &PrunerConfig{}
	}
	if config.Schedule == "" {
		config.Schedule = DefaultPruneSchedule
	}
	return &Pruner{
		storage: storage,
		config:  config,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "audit.retention"),
	}
}

// Start begins scheduled pruning. A non-positive retention disables the
// pruner: Start is a no-op and IsRunning stays false.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("retention pruner already running")
	}
	if p.config.RetentionDays <= 0 {
		p.logger.Info("audit retention disabled, pruner not started")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.config.Schedule, err)
	}

	if _, err := p.cron.AddFunc(p.config.Schedule, p.runPrune); err != nil {
		return fmt.Errorf("failed to schedule prune: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("retention pruner started",
		"schedule", p.config.Schedule,
		"retention_days", p.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// runPrune executes one prune pass on the cron goroutine.
func (p *Pruner) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := p.PruneOnce(ctx)
	if err != nil {
		p.logger.Error("retention prune failed", "error", err)
		return
	}
	if removed > 0 {
		p.logger.Info("retention prune completed", "removed", removed)
	} else {
		p.logger.Debug("retention prune completed, nothing to remove")
	}
}

// PruneOnce deletes events older than the retention period and returns how
// many were removed.
func (p *Pruner) PruneOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
	return p.storage.Prune(ctx, cutoff)
}

// Stop stops the pruner and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil && p.running {
		ctx := p.cron.Stop()
		<-ctx.Done()
		p.running = false
		p.logger.Info("retention pruner stopped")
	}
}

// IsRunning returns true while the pruner is active.
func (p *Pruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
