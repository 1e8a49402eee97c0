package block

import "time"

// State is the block marker for a single identity.
//
// An identity is blocked iff now - BlockedAt < Duration. Expiry is lazy:
// it is computed from the recorded timestamp on every read, so no timer has
// to fire for a block to end. The sweeper only exists to reclaim the map
// entry afterwards.
type State struct {
	// BlockedAt is when the block was (re)entered.
	BlockedAt time.Time

	// Duration is how long the block lasts from BlockedAt.
	Duration time.Duration
}

// Active reports whether the block is still in effect at now.
func (s State) Active(now time.Time) bool {
	return now.Sub(s.BlockedAt) < s.Duration
}

// RetryAfter returns how long the identity must wait from now until the
// block expires. Zero once expired.
func (s State) RetryAfter(now time.Time) time.Duration {
	remaining := s.Duration - now.Sub(s.BlockedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// List tracks temporarily blocked identities.
//
// Blocks are per identity, not per operation: one violation denies every
// operation for that identity until the block expires.
//
// # Thread Safety
//
// List is NOT internally synchronized; the admission service owns it and
// guards access together with the window map so that block consultation and
// window accounting happen under one critical section.
type List struct {
	states map[string]State
}

// NewList creates an empty block list.
func NewList() *List {
	return &List{
		states: make(map[string]State),
	}
}

// Block marks an identity blocked for the given duration starting at now.
// Re-blocking an already blocked identity restarts the timer from now; it
// does not extend the original block.
func (l *List) Block(identity string, now time.Time, duration time.Duration) {
	l.states[identity] = State{BlockedAt: now, Duration: duration}
}

// Get returns the block state for an identity and whether one exists.
// An expired state may still be returned until the sweeper removes it;
// callers decide with State.Active.
func (l *List) Get(identity string) (State, bool) {
	s, ok := l.states[identity]
	return s, ok
}

// Active reports whether the identity is blocked at now.
func (l *List) Active(identity string, now time.Time) bool {
	s, ok := l.states[identity]
	return ok && s.Active(now)
}

// Remove deletes the block for an identity, if any. Returns true when an
// entry was removed.
func (l *List) Remove(identity string) bool {
	if _, ok := l.states[identity]; !ok {
		return false
	}
	delete(l.states, identity)
	return true
}

// SweepExpired deletes every block whose duration has elapsed at now.
// Returns the number of removed entries. Idempotent.
func (l *List) SweepExpired(now time.Time) int {
	removed := 0
	for identity, s := range l.states {
		if !s.Active(now) {
			delete(l.states, identity)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identities, expired entries included.
func (l *List) Len() int {
	return len(l.states)
}
