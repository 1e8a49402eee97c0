package window

import "time"

// Window holds the ordered timestamps of admitted requests for a single
// (identity, operation) pair.
//
// Timestamps are appended in time order, so pruning expired entries is a
// prefix trim: O(expired count), not O(total). The window is half-open,
// (now-W, now]: a timestamp exactly at the boundary (now - t == W) is
// already outside and gets pruned.
//
// # Thread Safety
//
// Window is NOT internally synchronized. It is owned exclusively by the
// admission service, which guards every access with its own lock so that the
// whole consult-prune-decide-append sequence stays atomic.
type Window struct {
	stamps []time.Time
}

// New creates an empty window.
func New() *Window {
	return &Window{}
}

// Prune removes timestamps that have fallen outside the trailing window
// ending at now. Returns the number of removed entries.
func (w *Window) Prune(now time.Time, width time.Duration) int {
	cutoff := now.Add(-width)

	removed := 0
	for removed < len(w.stamps) && !w.stamps[removed].After(cutoff) {
		removed++
	}
	if removed > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[removed:]...)
	}
	return removed
}

// Append records a request at the given time. Timestamps must be appended
// in non-decreasing order; the admission service's lock guarantees this.
func (w *Window) Append(t time.Time) {
	w.stamps = append(w.stamps, t)
}

// Len returns the number of timestamps currently held.
func (w *Window) Len() int {
	return len(w.stamps)
}

// Oldest returns the oldest timestamp, or the zero time if empty.
func (w *Window) Oldest() time.Time {
	if len(w.stamps) == 0 {
		return time.Time{}
	}
	return w.stamps[0]
}

// Remaining returns how many requests are still admissible given the budget,
// after pruning against now. Never negative.
func (w *Window) Remaining(now time.Time, width time.Duration, maxRequests uint) uint {
	w.Prune(now, width)
	if uint(len(w.stamps)) >= maxRequests {
		return 0
	}
	return maxRequests - uint(len(w.stamps))
}

// ResetIn returns how long until the oldest entry leaves the window, i.e.
// when one budget slot frees up. Zero when the window is empty or the oldest
// entry has already expired.
func (w *Window) ResetIn(now time.Time, width time.Duration) time.Duration {
	if len(w.stamps) == 0 {
		return 0
	}
	d := w.stamps[0].Add(width).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Snapshot returns the live count and the time until the oldest live entry
// leaves the window, without mutating the sequence. Used by read-only
// queries that must not have side effects.
func (w *Window) Snapshot(now time.Time, width time.Duration) (count int, resetIn time.Duration) {
	cutoff := now.Add(-width)

	first := 0
	for first < len(w.stamps) && !w.stamps[first].After(cutoff) {
		first++
	}
	count = len(w.stamps) - first
	if count > 0 {
		resetIn = w.stamps[first].Add(width).Sub(now)
	}
	return count, resetIn
}

// Clear drops all timestamps.
func (w *Window) Clear() {
	w.stamps = w.stamps[:0]
}
