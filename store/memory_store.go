package store

import (
	"context"
	"sync"
)

// MemoryStore is a concurrency-safe in-memory PersistentStore. Used in tests
// and as the default when no external store is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Load(ctx context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, exists := s.data[key]
	if !exists {
		return nil, false
	}

	out := make([]byte, len(blob))
	copy(out, blob)
	return out, true
}

func (s *MemoryStore) Save(ctx context.Context, key string, blob []byte) error {
	if blob == nil {
		return nil
	}

	stored := make([]byte, len(blob))
	copy(stored, blob)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)
	return nil
}
