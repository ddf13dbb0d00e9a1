package cache

import (
	"context"
	"sync"
	"time"
)

// memoryStore is the tier-1 volatile map. All mutations are serialized by
// the mutex so the periodic sweep never races entry inserts or deletes.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*Entry)}
}

func (s *memoryStore) Level() string { return LevelMemory }

func (s *memoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	// Copy so callers never mutate the stored entry outside the lock.
	cp := *e
	return &cp, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, e *Entry) error {
	cp := *e
	cp.Level = LevelMemory
	s.mu.Lock()
	s.entries[key] = &cp
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *memoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// touch bumps read metadata on the stored entry in place.
func (s *memoryStore) touch(key string, now time.Time) {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		e.Touch(now)
	}
	s.mu.Unlock()
}

// sizeBytes approximates payload memory held by the tier.
func (s *memoryStore) sizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.entries {
		total += int64(len(e.Data))
	}
	return total
}
