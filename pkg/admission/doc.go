// Package admission implements rate-limiting admission control for the
// operations the application protects.
//
// # Overview
//
// The admission service bounds how many times an identity (user ID, IP
// address, composite key) may invoke an operation class inside a trailing
// time window, and temporarily blocks identities that exceed their budget:
//
//   - registry: named per-operation budgets with a builtin default table
//   - window: sliding window counters per (identity, operation)
//   - block: per-identity temporary blocks with lazy expiry
//   - sweep: scheduled cleanup bounding memory growth
//
// # Usage
//
//	svc := admission.NewService()
//
//	decision, err := svc.Check("user-123", "login")
//	if err != nil {
//	    // caller mistake: empty identity or operation
//	}
//	if !decision.Allowed {
//	    // deny with decision.RetryAfter
//	}
//
// Callers that only need an error can use Guard:
//
//	if err := svc.Guard(clientIP, "search"); err != nil {
//	    var denied *admission.DeniedError
//	    if errors.As(err, &denied) {
//	        // 429 with denied.RetryAfter
//	    }
//	}
//
// # Concurrency
//
// The service owns all window and block state behind a single mutex. The
// entire read-check-mutate sequence inside Check runs in one critical
// section, so N concurrent checks against a budget of K admit exactly K.
// Calls are synchronous and never block on I/O; lock hold time is bounded
// by the prefix-trim prune.
//
// # Scope
//
// State lives in process memory only. Restarts clear all counters and a
// multi-instance deployment would need a shared counter store behind the
// window layer; the facade contract would not change.
package admission
