package answercache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore is the in-process fallback backend, used when no Redis URL is
// configured and throughout tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, time.Time{}, false, nil
	}
	return entry.payload, entry.createdAt, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.entries[key] = memoryEntry{
		payload:   payload,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	return nil
}
