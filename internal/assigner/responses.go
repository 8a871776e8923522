package assigner

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/shieldops/rollcall/internal/events"
	"github.com/shieldops/rollcall/internal/matching"
	"github.com/shieldops/rollcall/internal/store"
)

// subscribeResponses wires guard accept/decline messages from the event bus
// into the assignment status machine.
func (a *Assigner) subscribeResponses(ctx context.Context) error {
	return a.events.Subscribe(events.SubjectAssignmentResponse, func(subject string, data []byte) {
		var ev events.AssignmentResponseEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			a.logger.Warn("malformed assignment response", "subject", subject, "error", err)
			return
		}
		if err := a.ApplyResponse(ctx, ev); err != nil {
			a.logger.Warn("failed to apply assignment response",
				"assignment_id", ev.AssignmentID, "error", err)
		}
	})
}

// ApplyResponse records a guard's accept or decline on a pending assignment.
func (a *Assigner) ApplyResponse(ctx context.Context, ev events.AssignmentResponseEvent) error {
	id, err := uuid.Parse(ev.AssignmentID)
	if err != nil {
		return err
	}

	assignment, err := a.store.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if assignment == nil {
		return store.NotFound("assignment", ev.AssignmentID)
	}
	if assignment.GuardID.String() != ev.GuardID {
		return &matching.ValidationError{Reason: "response guard does not match assignment"}
	}

	target := store.AssignmentDeclined
	if ev.Accepted {
		target = store.AssignmentAccepted
	}
	if err := matching.Transition(assignment, target, nil); err != nil {
		return err
	}
	assignment.ResponseNotes = ev.Reason

	if err := a.store.UpdateAssignment(ctx, assignment); err != nil {
		return err
	}
	_ = a.store.CreateAssignmentEvent(ctx, &store.AssignmentEvent{
		AssignmentID: assignment.ID,
		Event:        string(target),
		Actor:        "guard:" + ev.GuardID,
		Payload:      map[string]interface{}{"reason": ev.Reason},
	})

	if a.events != nil {
		subject := events.SubjectAssignmentDeclined(assignment.ID.String())
		if ev.Accepted {
			subject = events.SubjectAssignmentAccepted(assignment.ID.String())
		}
		_ = a.events.Publish(subject, events.AssignmentStatusEvent{
			AssignmentID: assignment.ID.String(),
			ShiftID:      assignment.ShiftID.String(),
			GuardID:      ev.GuardID,
			Status:       string(target),
		})
	}

	a.logger.Info("assignment response applied",
		"assignment_id", assignment.ID, "status", target)
	return nil
}
