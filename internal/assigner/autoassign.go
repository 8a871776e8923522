package assigner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shieldops/rollcall/internal/events"
	"github.com/shieldops/rollcall/internal/matching"
	"github.com/shieldops/rollcall/internal/store"
)

func (a *Assigner) autoAssignLoop(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.processOpenShifts(ctx)
		}
	}
}

func (a *Assigner) processOpenShifts(ctx context.Context) {
	shifts, err := a.store.ListOpenShifts(ctx)
	if err != nil {
		a.logger.Error("failed to list open shifts", "error", err)
		return
	}

	for _, shift := range shifts {
		if err := a.autoAssignShift(ctx, shift); err != nil {
			a.logger.Warn("auto-assign failed", "shift_id", shift.ID, "error", err)
		}
	}
}

// autoAssignShift offers the shift to its top-ranked guard, but only when the
// ranker recommends auto assignment. Anything weaker stays open for a manager.
func (a *Assigner) autoAssignShift(ctx context.Context, shift *store.Shift) error {
	candidates, err := a.GatherCandidates(ctx, shift)
	if err != nil {
		return err
	}

	results := a.ranker.RankGuards(shift, candidates)
	if len(results) == 0 {
		a.publishUnfilled(shift, 0, "no active guards")
		return nil
	}

	top := results[0]
	if top.Action != matching.ActionAutoAssign {
		a.publishUnfilled(shift, len(results), "top candidate is "+string(top.Action))
		return nil
	}

	guardID, err := uuid.Parse(top.GuardID)
	if err != nil {
		return err
	}

	respondBy := time.Now().Add(a.cfg.ResponseTimeout())
	assignment := &store.ShiftAssignment{
		ID:         uuid.New(),
		ShiftID:    shift.ID,
		GuardID:    guardID,
		Status:     store.AssignmentPending,
		Method:     store.MethodAuto,
		MatchScore: top.MatchScore,
		Conflicts:  top.Eligibility.Conflicts,
		RespondBy:  &respondBy,
	}
	if err := a.store.CreateAssignment(ctx, assignment); err != nil {
		return err
	}
	_ = a.store.CreateAssignmentEvent(ctx, &store.AssignmentEvent{
		AssignmentID: assignment.ID,
		Event:        "created",
		Actor:        "system",
		Payload:      map[string]interface{}{"method": "auto", "match_score": top.MatchScore},
	})

	if a.events != nil {
		_ = a.events.Publish(events.SubjectShiftAutoAssigned(shift.ID.String()), events.ShiftAutoAssignedEvent{
			ShiftID:      shift.ID.String(),
			AssignmentID: assignment.ID.String(),
			GuardID:      top.GuardID,
			MatchScore:   top.MatchScore,
		})
		_ = a.events.Publish(events.SubjectAssignmentCreated(assignment.ID.String()), events.AssignmentCreatedEvent{
			AssignmentID: assignment.ID.String(),
			ShiftID:      shift.ID.String(),
			GuardID:      top.GuardID,
			Method:       string(store.MethodAuto),
			MatchScore:   top.MatchScore,
			RespondBy:    respondBy,
		})
	}

	a.logger.Info("shift auto-assigned",
		"shift_id", shift.ID,
		"guard_id", top.GuardID,
		"match_score", top.MatchScore)
	return nil
}

// GatherCandidates loads every active guard with the availability windows and
// overlapping commitments the ranker needs for one shift.
func (a *Assigner) GatherCandidates(ctx context.Context, shift *store.Shift) ([]matching.Candidate, error) {
	guards, err := a.store.ListActiveGuards(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]matching.Candidate, 0, len(guards))
	for _, guard := range guards {
		windows, err := a.store.GetGuardAvailability(ctx, guard.ID)
		if err != nil {
			a.logger.Warn("failed to load availability", "guard_id", guard.ID, "error", err)
			continue
		}
		existing, err := a.store.GetActiveAssignmentsForGuard(ctx, guard.ID, shift.StartTime, shift.EndTime)
		if err != nil {
			a.logger.Warn("failed to load existing assignments", "guard_id", guard.ID, "error", err)
			continue
		}
		candidates = append(candidates, matching.Candidate{
			Guard:    guard,
			Windows:  windows,
			Existing: existing,
		})
	}
	return candidates, nil
}

func (a *Assigner) publishUnfilled(shift *store.Shift, candidates int, reason string) {
	if a.events == nil {
		return
	}
	_ = a.events.Publish(events.SubjectShiftUnfilled(shift.ID.String()), events.ShiftUnfilledEvent{
		ShiftID:    shift.ID.String(),
		Candidates: candidates,
		Reason:     reason,
	})
}
