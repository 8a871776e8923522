package matching

import (
	"time"

	"github.com/shieldops/rollcall/internal/store"
)

// ValidationError reports an invalid assignment transition or a conflict
// override missing its required metadata.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "assignment validation: " + e.Reason
}

// Override carries the manager authorization for confirming an assignment
// despite blocking conflicts.
type Override struct {
	Reason string
	By     string
}

// validTransitions is the assignment status machine. confirmed, declined,
// expired, and cancelled are terminal.
var validTransitions = map[store.AssignmentStatus][]store.AssignmentStatus{
	store.AssignmentPending: {
		store.AssignmentAccepted,
		store.AssignmentDeclined,
		store.AssignmentExpired,
		store.AssignmentCancelled,
	},
	store.AssignmentAccepted: {
		store.AssignmentConfirmed,
		store.AssignmentCancelled,
	},
}

// CanTransition reports whether the status machine permits from -> to.
// Cancellation by manager action is allowed from any non-terminal state.
func CanTransition(from, to store.AssignmentStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// HasBlockingConflicts reports whether any unresolved conflict requires an
// override before confirmation.
func HasBlockingConflicts(a *store.ShiftAssignment) bool {
	if a.ConflictOverridden {
		return false
	}
	for _, c := range a.Conflicts {
		if c.OverrideRequired || c.Severity == store.SeverityCritical {
			return true
		}
	}
	return false
}

// Transition applies a status change to the assignment, enforcing the
// status machine and the conflict-override gate on confirmation. The
// override, when supplied, is recorded on the assignment rather than as a
// separate state.
func Transition(a *store.ShiftAssignment, to store.AssignmentStatus, override *Override) error {
	if !CanTransition(a.Status, to) {
		return &ValidationError{Reason: "cannot transition from " + string(a.Status) + " to " + string(to)}
	}

	if to == store.AssignmentConfirmed && HasBlockingConflicts(a) {
		if override == nil || override.Reason == "" || override.By == "" {
			return &ValidationError{Reason: "confirmation blocked by critical conflicts; override reason and approver required"}
		}
		a.ConflictOverridden = true
		a.OverrideReason = override.Reason
		a.OverrideBy = override.By
	}

	now := time.Now()
	switch to {
	case store.AssignmentAccepted, store.AssignmentDeclined:
		a.RespondedAt = &now
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}
