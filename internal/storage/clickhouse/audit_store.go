package clickhouse

import (
	"context"
	"fmt"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// AuditStore implements storage.AuditStore using ClickHouse. The table is
// append-only MergeTree; there is no update or delete path.
type AuditStore struct {
	conn *Conn
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(conn *Conn) *AuditStore {
	return &AuditStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditStore = (*AuditStore)(nil)

// Insert appends one audit event.
func (s *AuditStore) Insert(ctx context.Context, e *domain.ScoreAuditEvent) error {
	if e == nil || e.EventID == "" || e.BreakdownID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO score_audit_events (
			event_id, breakdown_id, race_id, competitor_id, action,
			record_type, points_delta, total_after, rules_version, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.EventID,
		e.BreakdownID,
		e.RaceID,
		e.CompetitorID,
		string(e.Action),
		string(e.RecordType),
		int32(e.PointsDelta),
		int32(e.TotalAfter),
		int32(e.RulesVersion),
		uint64(e.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// InsertBulk appends multiple events in one batch.
func (s *AuditStore) InsertBulk(ctx context.Context, events []*domain.ScoreAuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO score_audit_events (
			event_id, breakdown_id, race_id, competitor_id, action,
			record_type, points_delta, total_after, rules_version, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.EventID, e.BreakdownID, e.RaceID, e.CompetitorID,
			string(e.Action), string(e.RecordType),
			int32(e.PointsDelta), int32(e.TotalAfter), int32(e.RulesVersion),
			uint64(e.OccurredAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByBreakdown retrieves the events for a breakdown, ordered by
// occurred_at ASC.
func (s *AuditStore) GetByBreakdown(ctx context.Context, breakdownID string) ([]*domain.ScoreAuditEvent, error) {
	query := `
		SELECT event_id, breakdown_id, race_id, competitor_id, action,
			record_type, points_delta, total_after, rules_version, occurred_at
		FROM score_audit_events
		WHERE breakdown_id = ?
		ORDER BY occurred_at ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, breakdownID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ScoreAuditEvent
	for rows.Next() {
		var e domain.ScoreAuditEvent
		var actionStr, recordTypeStr string
		var pointsDelta, totalAfter, rulesVersion int32
		var occurredAt uint64

		err := rows.Scan(
			&e.EventID, &e.BreakdownID, &e.RaceID, &e.CompetitorID,
			&actionStr, &recordTypeStr,
			&pointsDelta, &totalAfter, &rulesVersion, &occurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event row: %w", err)
		}

		e.Action = domain.AuditAction(actionStr)
		e.RecordType = domain.RecordType(recordTypeStr)
		e.PointsDelta = int(pointsDelta)
		e.TotalAfter = int(totalAfter)
		e.RulesVersion = int(rulesVersion)
		e.OccurredAt = int64(occurredAt)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit event rows: %w", err)
	}

	return events, nil
}
