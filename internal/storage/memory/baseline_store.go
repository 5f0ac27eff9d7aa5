package memory

import (
	"context"
	"sync"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// BaselineStore is an in-memory implementation of storage.BaselineStore.
type BaselineStore struct {
	mu   sync.RWMutex
	data map[baselineKey]*domain.RecordBaseline
}

type baselineKey struct {
	raceID string
	gender domain.Gender
	typ    domain.RecordType
}

// NewBaselineStore creates a new in-memory baseline store.
func NewBaselineStore() *BaselineStore {
	return &BaselineStore{
		data: make(map[baselineKey]*domain.RecordBaseline),
	}
}

// Compile-time interface check.
var _ storage.BaselineStore = (*BaselineStore)(nil)

// Put inserts or replaces the baseline for (race, gender, type).
func (s *BaselineStore) Put(_ context.Context, b *domain.RecordBaseline) error {
	if b == nil || b.RaceID == "" || !b.Gender.IsValid() || b.TimeMs <= 0 {
		return storage.ErrInvalidInput
	}
	if b.Type != domain.RecordCourse && b.Type != domain.RecordWorld {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	baselineCopy := *b
	s.data[baselineKey{b.RaceID, b.Gender, b.Type}] = &baselineCopy
	return nil
}

// Get retrieves a baseline. Returns ErrNotFound when none is known.
func (s *BaselineStore) Get(_ context.Context, raceID string, gender domain.Gender, t domain.RecordType) (*domain.RecordBaseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[baselineKey{raceID, gender, t}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	baselineCopy := *b
	return &baselineCopy, nil
}
