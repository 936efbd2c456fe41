// Package memory provides in-process implementations of the storage ports.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/corefollow/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.ReactorState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.ReactorState),
	}
}

// Save stores a deep copy so later mutations of the live state do not leak in.
func (s *Store) Save(ctx context.Context, id string, state *domain.ReactorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; ok {
		return fmt.Errorf("%w: %s", domain.ErrSnapshotExists, id)
	}
	s.data[id] = state.Clone()
	return nil
}

// Load returns a copy so the caller can't mutate the stored snapshot by pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.ReactorState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, id)
	}
	return state.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored snapshot ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
