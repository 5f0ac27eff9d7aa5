package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon-league/internal/domain"
)

func auditEvent(eventID string, action domain.AuditAction, delta int, occurredAt int64) *domain.ScoreAuditEvent {
	return &domain.ScoreAuditEvent{
		EventID:      eventID,
		BreakdownID:  "bd-1",
		RaceID:       "race-1",
		CompetitorID: "athlete-1",
		Action:       action,
		RecordType:   domain.RecordCourse,
		PointsDelta:  delta,
		TotalAfter:   15 + delta,
		RulesVersion: 1,
		OccurredAt:   occurredAt,
	}
}

func TestAuditStore_InsertAndGetByBreakdown(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, auditEvent("ev-2", domain.AuditConfirmed, 5, 2000)))
	require.NoError(t, store.Insert(ctx, auditEvent("ev-1", domain.AuditScored, 15, 1000)))

	events, err := store.GetByBreakdown(ctx, "bd-1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Ordered by occurred_at ASC.
	assert.Equal(t, domain.AuditScored, events[0].Action)
	assert.Equal(t, int64(1000), events[0].OccurredAt)
	assert.Equal(t, domain.AuditConfirmed, events[1].Action)
	assert.Equal(t, 5, events[1].PointsDelta)
	assert.Equal(t, 20, events[1].TotalAfter)
	assert.Equal(t, domain.RecordCourse, events[1].RecordType)
}

func TestAuditStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditStore(conn)
	ctx := context.Background()

	events := []*domain.ScoreAuditEvent{
		auditEvent("ev-1", domain.AuditScored, 15, 1000),
		auditEvent("ev-2", domain.AuditSuperseded, -15, 2000),
	}
	require.NoError(t, store.InsertBulk(ctx, events))

	retrieved, err := store.GetByBreakdown(ctx, "bd-1")
	require.NoError(t, err)
	assert.Len(t, retrieved, 2)
}

func TestAuditStore_GetByBreakdownEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditStore(conn)

	events, err := store.GetByBreakdown(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, events)
}
