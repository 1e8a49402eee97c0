package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage implements Storage with a bounded in-memory buffer.
// Oldest events are evicted once the bound is reached. All data is lost
// when the process exits; intended for tests and development.
type MemoryStorage struct {
	events     []*Event
	maxEntries int
	mu         sync.RWMutex
}

// NewMemoryStorage creates an in-memory backend holding at most maxEntries
// events. A non-positive bound selects the default of 10000.
func NewMemoryStorage(maxEntries int) *MemoryStorage {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryStorage{
		maxEntries: maxEntries,
	}
}

// Store persists one event, evicting the oldest when full.
func (m *MemoryStorage) Store(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.events) >= m.maxEntries {
		m.events = m.events[1:]
	}
	m.events = append(m.events, event)
	return nil
}

// ListByIdentity returns the most recent events for an identity, newest first.
func (m *MemoryStorage) ListByIdentity(ctx context.Context, identity string, limit int) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Event
	for i := len(m.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.events[i].Identity == identity {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

// Prune deletes events older than the cutoff.
func (m *MemoryStorage) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	removed := 0
	for _, event := range m.events {
		if event.Time.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	m.events = kept
	return removed, nil
}

// Len returns the number of stored events. Useful for tests.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Close is a no-op for the memory backend.
func (m *MemoryStorage) Close() error {
	return nil
}
