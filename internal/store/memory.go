package store

import (
	"context"
	"sync"

	"github.com/golang/groupcache/lru"
)

const defaultCapacity = 128

// MemoryStore keeps the most recently used derivatives in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache
	keys  map[string]string
}

// NewMemoryStore creates an LRU store holding up to capacity derivatives.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	s := &MemoryStore{
		cache: lru.New(capacity),
		keys:  make(map[string]string),
	}
	s.cache.OnEvicted = func(_ lru.Key, value interface{}) {
		d := value.(*Derivative)
		if s.keys[d.Key] == d.ID {
			delete(s.keys, d.Key)
		}
	}
	return s
}

func (s *MemoryStore) Put(_ context.Context, d *Derivative) (string, error) {
	prepare(d)
	stored := *d
	stored.Body = append([]byte(nil), d.Body...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(stored.ID, &stored)
	if stored.Key != "" {
		s.keys[stored.Key] = stored.ID
	}
	return stored.ID, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Derivative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *MemoryStore) get(id string) (*Derivative, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	d := *v.(*Derivative)
	return &d, nil
}

func (s *MemoryStore) GetByKey(_ context.Context, key string) (*Derivative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.keys[key]
	if !ok {
		return nil, ErrNotFound
	}
	return s.get(id)
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache.Get(id); !ok {
		return ErrNotFound
	}
	s.cache.Remove(id)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Clear()
	return nil
}
