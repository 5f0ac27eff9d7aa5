package records

import (
	"errors"
	"fmt"

	"marathon-league/internal/domain"
)

// ErrInvalidTransition is returned when a confirmation action targets a
// breakdown whose record status does not permit it. The operation fails
// closed: no state is mutated.
var ErrInvalidTransition = errors.New("invalid record status transition")

// transitions is the full set of permitted status changes. Absence means
// forbidden; CONFIRMED and REJECTED are terminal.
var transitions = map[domain.RecordStatus]map[domain.RecordStatus]bool{
	domain.RecordStatusNone: {
		domain.RecordStatusProvisional: true,
		domain.RecordStatusConfirmed:   true, // AUTO_CONFIRM skips PROVISIONAL
	},
	domain.RecordStatusProvisional: {
		domain.RecordStatusConfirmed: true,
		domain.RecordStatusRejected:  true,
	},
}

// CanTransition reports whether from → to is a permitted status change.
func CanTransition(from, to domain.RecordStatus) bool {
	return transitions[from][to]
}

// guardTransition validates from → to, treating a re-application of an
// already-reached terminal state as an idempotent no-op.
func guardTransition(from, to domain.RecordStatus) (noop bool, err error) {
	if from == to && from.Terminal() {
		return true, nil
	}
	if !CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}
	return false, nil
}
