package memory

import (
	"context"
	"sync"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// RulesStore is an in-memory implementation of storage.RulesStore.
type RulesStore struct {
	mu   sync.RWMutex
	data map[int]*domain.ScoringRules // keyed by version
}

// NewRulesStore creates a new in-memory rules store.
func NewRulesStore() *RulesStore {
	return &RulesStore{
		data: make(map[int]*domain.ScoringRules),
	}
}

// Compile-time interface check.
var _ storage.RulesStore = (*RulesStore)(nil)

// Insert adds a new rules version. Returns ErrDuplicateKey if the version exists.
func (s *RulesStore) Insert(_ context.Context, r *domain.ScoringRules) error {
	if r == nil || r.Version <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Version]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.Version] = copyRules(r)
	return nil
}

// GetByVersion retrieves one version. Returns ErrNotFound if it does not exist.
func (s *RulesStore) GetByVersion(_ context.Context, version int) (*domain.ScoringRules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[version]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRules(r), nil
}

// Latest retrieves the highest version. Returns ErrNotFound when no rules exist.
func (s *RulesStore) Latest(_ context.Context) (*domain.ScoringRules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.ScoringRules
	for _, r := range s.data {
		if latest == nil || r.Version > latest.Version {
			latest = r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return copyRules(latest), nil
}

// copyRules deep-copies a rule set so callers never share slices with the store.
func copyRules(r *domain.ScoringRules) *domain.ScoringRules {
	c := *r
	c.PlacementPoints = append([]int(nil), r.PlacementPoints...)
	c.TimeGapWindows = append([]domain.TimeGapWindow(nil), r.TimeGapWindows...)
	return &c
}
