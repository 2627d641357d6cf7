package history

import (
	"context"
	"sync"

	"alfred/internal/types"
)

// MemoryStore keeps history for the life of the process
type MemoryStore struct {
	mu      sync.RWMutex
	entries []types.HistoryEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store
func (s *MemoryStore) Append(_ context.Context, entry types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Recent implements Store
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(s.entries) {
		start = len(s.entries) - limit
	}
	return append([]types.HistoryEntry(nil), s.entries[start:]...), nil
}

// Len implements Store
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
