package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

// MemoryStore implements Store in process memory.
// Intended for demos and testing, nothing survives a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	portfolios map[string]Portfolio
	now        func() time.Time
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{portfolios: make(map[string]Portfolio), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, portfolioID string, snap types.Snapshot) (Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Portfolio{ID: portfolioID, UpdatedAt: s.now().UTC(), Snapshot: snap}
	s.portfolios[portfolioID] = p
	return p, nil
}

func (s *MemoryStore) Get(_ context.Context, portfolioID string) (Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[portfolioID]
	if !ok {
		return Portfolio{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.portfolios))
	for id := range s.portfolios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
