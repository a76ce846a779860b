package incident

import (
	"context"
	"sort"
	"sync"
)

// Store persists incidents one record per ID. Save creates or overwrites.
type Store interface {
	Save(ctx context.Context, inc Incident) error
	List(ctx context.Context) ([]Incident, error)
	Close() error
}

// MemoryStore keeps incidents for the life of the process only.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Incident
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Incident)}
}

func (s *MemoryStore) Save(_ context.Context, inc Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[inc.ID] = inc.clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Incident, 0, len(s.items))
	for _, inc := range s.items {
		out = append(out, inc.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
