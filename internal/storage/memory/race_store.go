package memory

import (
	"context"
	"sort"
	"sync"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// RaceStore is an in-memory implementation of storage.RaceStore.
type RaceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Race // keyed by race_id
}

// NewRaceStore creates a new in-memory race store.
func NewRaceStore() *RaceStore {
	return &RaceStore{
		data: make(map[string]*domain.Race),
	}
}

// Compile-time interface check.
var _ storage.RaceStore = (*RaceStore)(nil)

// Insert adds a new race. Returns ErrDuplicateKey if race_id exists.
func (s *RaceStore) Insert(_ context.Context, r *domain.Race) error {
	if r == nil || r.RaceID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RaceID]; exists {
		return storage.ErrDuplicateKey
	}

	raceCopy := *r
	s.data[r.RaceID] = &raceCopy
	return nil
}

// GetByID retrieves a race by its ID. Returns ErrNotFound if not exists.
func (s *RaceStore) GetByID(_ context.Context, raceID string) (*domain.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[raceID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	raceCopy := *r
	return &raceCopy, nil
}

// SetRulesVersion records the rules version the race is currently scored
// under. Returns ErrNotFound if the race does not exist.
func (s *RaceStore) SetRulesVersion(_ context.Context, raceID string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[raceID]
	if !exists {
		return storage.ErrNotFound
	}
	r.RulesVersion = version
	return nil
}

// GetByGame retrieves all races for a game, ordered by start_time ASC.
func (s *RaceStore) GetByGame(_ context.Context, gameID string) ([]*domain.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Race
	for _, r := range s.data {
		if r.GameID == gameID {
			raceCopy := *r
			result = append(result, &raceCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].RaceID < result[j].RaceID
	})

	return result, nil
}
