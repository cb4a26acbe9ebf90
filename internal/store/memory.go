package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
	hasTTL    bool
}

// MemoryStore is an in-process Store, grounded on the teacher's
// engine/simple.MemoryStore: a mutex-guarded map standing in for the
// SQLite-backed store in tests and single-process deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]entry)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || (e.hasTTL && e.expiresAt.Before(time.Now())) {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var keys []string
	for k, e := range s.data {
		if e.hasTTL && e.expiresAt.Before(now) {
			continue
		}
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemoryStore) BumpTTL(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	e.hasTTL = true
	e.expiresAt = time.Now().Add(ttl)
	s.data[key] = e
	return nil
}

func (s *MemoryStore) ExpiresAt(ctx context.Context, key string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || !e.hasTTL {
		return time.Time{}, false, nil
	}
	return e.expiresAt, true, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	return &memoryTx{store: s, writes: make(map[string]*entry)}, nil
}

// memoryTx buffers writes in a local map and only applies them to the
// backing store on Commit, giving all-or-nothing visibility without a
// real WAL.
type memoryTx struct {
	store  *MemoryStore
	writes map[string]*entry // nil value means delete
	done   bool
}

func (t *memoryTx) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if e, ok := t.writes[key]; ok {
		if e == nil {
			return nil, false, nil
		}
		return e.value, true, nil
	}
	return t.store.Get(ctx, key)
}

func (t *memoryTx) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := &entry{value: value}
	if ttl > 0 {
		e.hasTTL = true
		e.expiresAt = time.Now().Add(ttl)
	}
	t.writes[key] = e
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, key string) error {
	t.writes[key] = nil
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for k, e := range t.writes {
		if e == nil {
			delete(t.store.data, k)
			continue
		}
		t.store.data[k] = *e
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	t.done = true
	t.writes = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
