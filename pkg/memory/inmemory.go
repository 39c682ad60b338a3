package memory

import (
	"context"
	"sort"
	"sync"
)

// InMemory keeps entries for the life of the process
type InMemory struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty in-process store
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string][]Entry)}
}

func (s *InMemory) Append(_ context.Context, key, text string) (Entry, error) {
	e, err := newEntry(key, text)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Key] = append(s.entries[e.Key], e)
	return e, nil
}

func (s *InMemory) Read(_ context.Context, key string) ([]Entry, error) {
	key = NormalizeKey(key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.entries[key]
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *InMemory) Keys(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *InMemory) Close() error {
	return nil
}
