package query

import (
	"context"
	"sync"
	"time"
)

// Store holds encoded query results together with a generation counter per
// key. Implementations must be safe for concurrent use, and every Cache
// sharing a Store sees the same generations.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Generation reports how many times key has been invalidated.
	Generation(ctx context.Context, key string) (uint64, error)
	// SetIfGeneration stores value only while key is still at gen. It
	// reports whether the value was written.
	SetIfGeneration(ctx context.Context, key string, gen uint64, value []byte, ttl time.Duration) (bool, error)
	// Invalidate bumps the generation of each key and drops its entry in
	// one step.
	Invalidate(ctx context.Context, keys ...string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in process. Expired entries are dropped lazily
// on read and by the janitor started with NewMemoryStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	gens    map[string]uint64
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates the store and starts a janitor sweeping expired
// entries every interval. A non-positive interval disables the janitor.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		gens:    make(map[string]uint64),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if interval > 0 {
		go s.janitor(interval)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Generation(_ context.Context, key string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[key], nil
}

func (s *MemoryStore) SetIfGeneration(_ context.Context, key string, gen uint64, value []byte, ttl time.Duration) (bool, error) {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key] != gen {
		return false, nil
	}
	s.entries[key] = entry
	return true, nil
}

func (s *MemoryStore) Invalidate(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		s.gens[k]++
		delete(s.entries, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		close(s.stop)
		s.mu.Lock()
		s.entries = make(map[string]memoryEntry)
		s.mu.Unlock()
	})
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.now()
	s.mu.Lock()
	for key, entry := range s.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}
