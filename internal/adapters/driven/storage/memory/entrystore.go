// Package memory contains in-memory store implementations, used when
// persistence is disabled and as lightweight test doubles.
package memory

import (
	"context"
	"sync"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure EntryStore implements the interface.
var _ driven.EntryStore = (*EntryStore)(nil)

// EntryStore is an in-memory implementation of driven.EntryStore.
type EntryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.UnifiedEntry
	order   []string
}

// NewEntryStore creates an empty in-memory entry store.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		entries: make(map[string]domain.UnifiedEntry),
	}
}

// SaveEntries stores a batch of unified entries, upserting on ID.
func (s *EntryStore) SaveEntries(_ context.Context, entries []domain.UnifiedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if _, exists := s.entries[entry.ID]; !exists {
			s.order = append(s.order, entry.ID)
		}
		s.entries[entry.ID] = entry
	}
	return nil
}

// ListBySource returns stored entries for one source, most recent first.
func (s *EntryStore) ListBySource(_ context.Context, source string, limit int) ([]domain.UnifiedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var result []domain.UnifiedEntry
	// Walk insertion order backwards so the newest come first.
	for i := len(s.order) - 1; i >= 0 && len(result) < limit; i-- {
		entry := s.entries[s.order[i]]
		if entry.Source == source {
			result = append(result, entry)
		}
	}
	return result, nil
}

// Count returns the total number of stored entries.
func (s *EntryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// Close releases resources.
func (s *EntryStore) Close() error {
	return nil
}
