package memory

import (
	"context"
	"sort"
	"sync"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// FinishStore is an in-memory implementation of storage.FinishStore.
type FinishStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FinishRecord // keyed by finish_id
}

// NewFinishStore creates a new in-memory finish store.
func NewFinishStore() *FinishStore {
	return &FinishStore{
		data: make(map[string]*domain.FinishRecord),
	}
}

// Compile-time interface check.
var _ storage.FinishStore = (*FinishStore)(nil)

// Insert adds a new finish record. Returns ErrDuplicateKey if finish_id exists.
func (s *FinishStore) Insert(_ context.Context, f *domain.FinishRecord) error {
	if f == nil || f.FinishID == "" || f.RaceID == "" || f.CompetitorID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[f.FinishID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[f.FinishID] = copyFinish(f)
	return nil
}

// Correct replaces a non-finalized record's result fields.
func (s *FinishStore) Correct(_ context.Context, f *domain.FinishRecord) error {
	if f == nil || f.FinishID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[f.FinishID]
	if !exists {
		return storage.ErrNotFound
	}
	if existing.Finalized {
		return storage.ErrFinalized
	}

	corrected := copyFinish(f)
	corrected.RaceID = existing.RaceID
	corrected.CompetitorID = existing.CompetitorID
	corrected.CreatedAt = existing.CreatedAt
	corrected.Finalized = false
	s.data[f.FinishID] = corrected
	return nil
}

// Finalize marks every finish record of a race immutable.
func (s *FinishStore) Finalize(_ context.Context, raceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.data {
		if f.RaceID == raceID {
			f.Finalized = true
		}
	}
	return nil
}

// GetByID retrieves a finish record. Returns ErrNotFound if not exists.
func (s *FinishStore) GetByID(_ context.Context, finishID string) (*domain.FinishRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.data[finishID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyFinish(f), nil
}

// GetByRace retrieves all finish records for a race as one snapshot,
// ordered by finish_time_ms ASC then competitor_id ASC.
func (s *FinishStore) GetByRace(_ context.Context, raceID string) ([]*domain.FinishRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FinishRecord
	for _, f := range s.data {
		if f.RaceID == raceID {
			result = append(result, copyFinish(f))
		}
	}

	sortFinishes(result)
	return result, nil
}

// GetByDivision retrieves the finish records for one race+gender division.
func (s *FinishStore) GetByDivision(_ context.Context, raceID string, gender domain.Gender) ([]*domain.FinishRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FinishRecord
	for _, f := range s.data {
		if f.RaceID == raceID && f.Gender == gender {
			result = append(result, copyFinish(f))
		}
	}

	sortFinishes(result)
	return result, nil
}

func sortFinishes(finishes []*domain.FinishRecord) {
	sort.Slice(finishes, func(i, j int) bool {
		if finishes[i].FinishTimeMs != finishes[j].FinishTimeMs {
			return finishes[i].FinishTimeMs < finishes[j].FinishTimeMs
		}
		return finishes[i].CompetitorID < finishes[j].CompetitorID
	})
}

// copyFinish deep-copies a finish record including its optional splits.
func copyFinish(f *domain.FinishRecord) *domain.FinishRecord {
	c := *f
	c.FirstHalfMs = copyInt64(f.FirstHalfMs)
	c.SecondHalfMs = copyInt64(f.SecondHalfMs)
	c.Last5kMs = copyInt64(f.Last5kMs)
	return &c
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
