package database

import (
	"context"
	"sync"
)

// MemoryKVStore is an in-process KV store for tests and ephemeral runs.
type MemoryKVStore struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{values: make(map[string]string)}
}

func (s *MemoryKVStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryKVStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.writes++
	return nil
}

// Writes reports how many Set calls have been made.
func (s *MemoryKVStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
