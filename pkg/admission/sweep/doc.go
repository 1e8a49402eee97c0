// Package sweep schedules periodic cleanup of decayed admission state.
//
// Windows that pruned down to empty and blocks that expired are only memory;
// the scheduler invokes the admission service's Sweep on a cron expression
// so long-running processes stay bounded. Sweeping is idempotent and shares
// the service's critical section, so it is safe alongside live traffic.
package sweep
