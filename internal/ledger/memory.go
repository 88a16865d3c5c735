package ledger

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in a slice for the lifetime of the process.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make([]Entry, 0)}
}

func (m *MemoryStore) SaveEntry(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	return nil
}

// GetEntries returns a copy so callers can't modify internal state.
func (m *MemoryStore) GetEntries(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]Entry, len(m.entries))
	copy(copied, m.entries)
	return copied, nil
}

func (m *MemoryStore) GetEntriesByKind(_ context.Context, kind Kind) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Entry, 0)
	for _, e := range m.entries {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	return result, nil
}

var _ Store = (*MemoryStore)(nil)
