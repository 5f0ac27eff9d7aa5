package memory

import (
	"context"
	"sort"
	"sync"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// AuditStore is an in-memory implementation of storage.AuditStore.
// Used by tests and by deployments without a ClickHouse sink.
type AuditStore struct {
	mu   sync.RWMutex
	data []*domain.ScoreAuditEvent
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Compile-time interface check.
var _ storage.AuditStore = (*AuditStore)(nil)

// Insert appends one audit event.
func (s *AuditStore) Insert(_ context.Context, e *domain.ScoreAuditEvent) error {
	if e == nil || e.EventID == "" || e.BreakdownID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.data = append(s.data, &eventCopy)
	return nil
}

// GetByBreakdown retrieves the events for a breakdown, ordered by
// occurred_at ASC.
func (s *AuditStore) GetByBreakdown(_ context.Context, breakdownID string) ([]*domain.ScoreAuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreAuditEvent
	for _, e := range s.data {
		if e.BreakdownID == breakdownID {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].OccurredAt != result[j].OccurredAt {
			return result[i].OccurredAt < result[j].OccurredAt
		}
		return result[i].EventID < result[j].EventID
	})

	return result, nil
}
