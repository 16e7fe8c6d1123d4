package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// MemoryStore is an in-memory Store for tests and local usage. Records are
// serialized on save so restore paths see the same bytes they would from a
// durable backend.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string][]byte{}}
}

func (s *MemoryStore) Save(ctx context.Context, id string, rec *Record) error {
	rec.Metadata = Metadata{SavedAt: time.Now(), SessionID: id, Version: Version}
	data, err := sonic.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.m[id] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	data, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, id string) bool {
	s.mu.RLock()
	_, ok := s.m[id]
	s.mu.RUnlock()
	return ok
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.m))
	for id := range s.m {
		ids = append(ids, id)
	}
	return ids, nil
}

var _ Store = (*MemoryStore)(nil)
