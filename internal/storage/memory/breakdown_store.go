package memory

import (
	"context"
	"sort"
	"sync"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// BreakdownStore is an in-memory implementation of storage.BreakdownStore.
// Put replaces the whole row under one lock acquisition, so concurrent
// rescoring and confirmation of the same breakdown can never interleave
// into a partially written row.
type BreakdownStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PointBreakdown // keyed by breakdown_id
}

// NewBreakdownStore creates a new in-memory breakdown store.
func NewBreakdownStore() *BreakdownStore {
	return &BreakdownStore{
		data: make(map[string]*domain.PointBreakdown),
	}
}

// Compile-time interface check.
var _ storage.BreakdownStore = (*BreakdownStore)(nil)

// Put inserts or replaces a breakdown as one atomic write.
func (s *BreakdownStore) Put(_ context.Context, b *domain.PointBreakdown) error {
	if b == nil || b.BreakdownID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.data[b.BreakdownID]; exists && b.CreatedAt == 0 {
		// Preserve the original creation timestamp across replacements.
		bCopy := copyBreakdown(b)
		bCopy.CreatedAt = existing.CreatedAt
		s.data[b.BreakdownID] = bCopy
		return nil
	}

	s.data[b.BreakdownID] = copyBreakdown(b)
	return nil
}

// GetByID retrieves a breakdown. Returns ErrNotFound if not exists.
func (s *BreakdownStore) GetByID(_ context.Context, breakdownID string) (*domain.PointBreakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[breakdownID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyBreakdown(b), nil
}

// GetByRace retrieves all breakdowns for a race, ordered by placement ASC
// then competitor_id ASC.
func (s *BreakdownStore) GetByRace(_ context.Context, raceID string) ([]*domain.PointBreakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PointBreakdown
	for _, b := range s.data {
		if b.RaceID == raceID {
			result = append(result, copyBreakdown(b))
		}
	}

	sortBreakdowns(result)
	return result, nil
}

// GetByRaceVersion retrieves the breakdowns for a race computed under one
// rules version.
func (s *BreakdownStore) GetByRaceVersion(_ context.Context, raceID string, rulesVersion int) ([]*domain.PointBreakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PointBreakdown
	for _, b := range s.data {
		if b.RaceID == raceID && b.RulesVersion == rulesVersion {
			result = append(result, copyBreakdown(b))
		}
	}

	sortBreakdowns(result)
	return result, nil
}

func sortBreakdowns(breakdowns []*domain.PointBreakdown) {
	sort.Slice(breakdowns, func(i, j int) bool {
		pi, pj := breakdowns[i].Placement, breakdowns[j].Placement
		// Unplaced rows (placement 0) sort after placed ones.
		if pi == 0 {
			pi = int(^uint(0) >> 1)
		}
		if pj == 0 {
			pj = int(^uint(0) >> 1)
		}
		if pi != pj {
			return pi < pj
		}
		return breakdowns[i].CompetitorID < breakdowns[j].CompetitorID
	})
}

// copyBreakdown deep-copies a breakdown including its bonus name slice.
func copyBreakdown(b *domain.PointBreakdown) *domain.PointBreakdown {
	c := *b
	if b.BonusesTriggered != nil {
		c.BonusesTriggered = append([]string(nil), b.BonusesTriggered...)
	}
	return &c
}
