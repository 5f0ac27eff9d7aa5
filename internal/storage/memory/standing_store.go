package memory

import (
	"context"
	"sort"
	"sync"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// StandingStore is an in-memory implementation of storage.StandingStore.
type StandingStore struct {
	mu    sync.RWMutex
	data  map[string][]*domain.LeagueStanding // keyed by game_id
	valid map[string]bool
}

// NewStandingStore creates a new in-memory standing store.
func NewStandingStore() *StandingStore {
	return &StandingStore{
		data:  make(map[string][]*domain.LeagueStanding),
		valid: make(map[string]bool),
	}
}

// Compile-time interface check.
var _ storage.StandingStore = (*StandingStore)(nil)

// PutAll atomically replaces the cached rows for a game and marks the
// cache valid.
func (s *StandingStore) PutAll(_ context.Context, gameID string, rows []*domain.LeagueStanding) error {
	if gameID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]*domain.LeagueStanding, 0, len(rows))
	for _, row := range rows {
		rowCopy := *row
		stored = append(stored, &rowCopy)
	}
	s.data[gameID] = stored
	s.valid[gameID] = true
	return nil
}

// GetByGame retrieves the cached rows for a game, ordered by rank ASC
// then team_id ASC. Returns ErrNotFound when nothing is cached.
func (s *StandingStore) GetByGame(_ context.Context, gameID string) ([]*domain.LeagueStanding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, exists := s.data[gameID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	result := make([]*domain.LeagueStanding, 0, len(rows))
	for _, row := range rows {
		rowCopy := *row
		result = append(result, &rowCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Rank != result[j].Rank {
			return result[i].Rank < result[j].Rank
		}
		return result[i].TeamID < result[j].TeamID
	})

	return result, nil
}

// IsValid reports whether the cached rows for a game are current.
func (s *StandingStore) IsValid(_ context.Context, gameID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid[gameID], nil
}

// Invalidate marks a game's cache stale without discarding rows.
func (s *StandingStore) Invalidate(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid[gameID] = false
	return nil
}
