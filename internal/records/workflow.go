package records

import (
	"context"
	"fmt"
	"log/slog"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// Workflow applies confirmation decisions to persisted breakdowns.
// Every mutation replaces the whole breakdown row, so a concurrent
// rescoring and a confirmation can never interleave into a row that
// violates the total-points invariant.
type Workflow struct {
	breakdowns storage.BreakdownStore
	logger     *slog.Logger
}

// NewWorkflow creates a confirmation workflow over a breakdown store.
func NewWorkflow(breakdowns storage.BreakdownStore, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{breakdowns: breakdowns, logger: logger}
}

// Confirm finalizes a provisional record: PROVISIONAL → CONFIRMED.
// Withheld points are awarded now; provisionally granted points simply
// become final. Confirming an already-confirmed breakdown is a no-op.
// Returns the updated breakdown and the point delta the transition caused.
func (w *Workflow) Confirm(ctx context.Context, breakdownID string) (*domain.PointBreakdown, int, error) {
	b, err := w.breakdowns.GetByID(ctx, breakdownID)
	if err != nil {
		return nil, 0, fmt.Errorf("load breakdown %s: %w", breakdownID, err)
	}

	noop, err := guardTransition(b.RecordStatus, domain.RecordStatusConfirmed)
	if err != nil {
		return nil, 0, err
	}
	if noop {
		return b, 0, nil
	}
	if b.RecordStatus != domain.RecordStatusProvisional {
		// NONE → CONFIRMED is only for the detector's AUTO_CONFIRM path,
		// never for an authority action on a persisted breakdown.
		return nil, 0, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, b.RecordStatus, domain.RecordStatusConfirmed)
	}

	delta := b.PendingRecordPoints
	b.RecordBonusPoints += b.PendingRecordPoints
	b.PendingRecordPoints = 0
	b.RecordStatus = domain.RecordStatusConfirmed
	b.TotalPoints = b.ComponentSum()

	if err := w.breakdowns.Put(ctx, b); err != nil {
		return nil, 0, fmt.Errorf("store confirmed breakdown: %w", err)
	}

	w.logger.Info("record confirmed",
		"breakdown_id", b.BreakdownID,
		"record_type", b.RecordType,
		"points_delta", delta,
		"total_points", b.TotalPoints)

	return b, delta, nil
}

// Reject dismisses a provisional record: PROVISIONAL → REJECTED. Any
// provisionally granted points are retracted. Rejecting an
// already-rejected breakdown is a no-op.
func (w *Workflow) Reject(ctx context.Context, breakdownID string) (*domain.PointBreakdown, int, error) {
	b, err := w.breakdowns.GetByID(ctx, breakdownID)
	if err != nil {
		return nil, 0, fmt.Errorf("load breakdown %s: %w", breakdownID, err)
	}

	noop, err := guardTransition(b.RecordStatus, domain.RecordStatusRejected)
	if err != nil {
		return nil, 0, err
	}
	if noop {
		return b, 0, nil
	}

	delta := -b.RecordBonusPoints
	b.RecordBonusPoints = 0
	b.PendingRecordPoints = 0
	b.RecordStatus = domain.RecordStatusRejected
	b.TotalPoints = b.ComponentSum()

	if err := w.breakdowns.Put(ctx, b); err != nil {
		return nil, 0, fmt.Errorf("store rejected breakdown: %w", err)
	}

	w.logger.Info("record rejected",
		"breakdown_id", b.BreakdownID,
		"record_type", b.RecordType,
		"points_delta", delta,
		"total_points", b.TotalPoints)

	return b, delta, nil
}
