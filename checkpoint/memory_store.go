package checkpoint

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store implementation.
//
// Suitable for development, testing, and single-process deployments.
// Data is lost when the process exits.
type MemoryStore struct {
	mu          sync.Mutex
	checkpoints map[string]*Checkpoint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]*Checkpoint)}
}

func (s *MemoryStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.CorrelationID] = cp.Clone()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cp.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checkpoints[id]; !ok {
		return ErrNotFound
	}
	delete(s.checkpoints, id)
	return nil
}

// List returns pending checkpoints, oldest first.
func (s *MemoryStore) List(ctx context.Context) ([]*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		out = append(out, cp.Clone())
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(cps []*Checkpoint) {
	sort.Slice(cps, func(i, j int) bool {
		if cps[i].CreatedAt.Equal(cps[j].CreatedAt) {
			return cps[i].CorrelationID < cps[j].CorrelationID
		}
		return cps[i].CreatedAt.Before(cps[j].CreatedAt)
	})
}
