// Package window implements the sliding window counter behind admission checks.
//
// # Algorithm
//
//  1. Prune timestamps that fell outside the trailing window (prefix trim)
//  2. Compare the remaining count against the operation budget
//  3. Append the current timestamp when the request is admitted
//
// The window is half-open: a request made exactly window-width ago no longer
// counts against the budget.
//
// # Ownership
//
// Unlike a general-purpose limiter, a Window carries no lock of its own. The
// admission service owns every Window instance and serializes access, which
// is what makes the check-then-append sequence race-free.
package window
