package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shieldops/rollcall/internal/assigner"
	"github.com/shieldops/rollcall/internal/events"
	"github.com/shieldops/rollcall/internal/matching"
	"github.com/shieldops/rollcall/internal/store"
)

type AssignmentsHandler struct {
	store    store.Store
	events   events.Client
	assigner *assigner.Assigner
}

func NewAssignmentsHandler(s store.Store, ev events.Client, asg *assigner.Assigner) *AssignmentsHandler {
	return &AssignmentsHandler{store: s, events: ev, assigner: asg}
}

func (h *AssignmentsHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	shiftID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift id"})
		return
	}
	guardID, err := uuid.Parse(chi.URLParam(r, "guard_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guard id"})
		return
	}

	shift, guard, windows, existing, status, errMsg := h.loadPair(r, shiftID, guardID)
	if errMsg != "" {
		writeJSON(w, status, map[string]string{"error": errMsg})
		return
	}

	result := matching.CheckEligibility(shift, guard, windows, existing)
	writeJSON(w, http.StatusOK, result)
}

func (h *AssignmentsHandler) Rank(w http.ResponseWriter, r *http.Request) {
	shiftID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift id"})
		return
	}

	shift, err := h.store.GetShift(r.Context(), shiftID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if shift == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "shift not found"})
		return
	}

	candidates, err := h.assigner.GatherCandidates(r.Context(), shift)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	results := h.assigner.Ranker().RankGuards(shift, candidates)
	writeJSON(w, http.StatusOK, results)
}

type CreateAssignmentRequest struct {
	ShiftID        string `json:"shift_id"`
	GuardID        string `json:"guard_id"`
	Method         string `json:"method,omitempty"`
	RespondByHours int    `json:"respond_by_hours,omitempty"`
}

func (h *AssignmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	shiftID, err := uuid.Parse(req.ShiftID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift_id"})
		return
	}
	guardID, err := uuid.Parse(req.GuardID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guard_id"})
		return
	}

	method := store.MethodManual
	switch store.AssignmentMethod(req.Method) {
	case store.MethodSuggested:
		method = store.MethodSuggested
	case store.MethodBatch:
		method = store.MethodBatch
	case store.MethodManual, "":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid method"})
		return
	}

	shift, guard, windows, existing, status, errMsg := h.loadPair(r, shiftID, guardID)
	if errMsg != "" {
		writeJSON(w, status, map[string]string{"error": errMsg})
		return
	}

	ranked := h.assigner.Ranker().RankGuards(shift, []matching.Candidate{
		{Guard: guard, Windows: windows, Existing: existing},
	})
	match := ranked[0]

	hours := req.RespondByHours
	if hours <= 0 {
		hours = 4
	}
	respondBy := time.Now().Add(time.Duration(hours) * time.Hour)

	assignment := &store.ShiftAssignment{
		ID:         uuid.New(),
		ShiftID:    shiftID,
		GuardID:    guardID,
		Status:     store.AssignmentPending,
		Method:     method,
		MatchScore: match.MatchScore,
		Conflicts:  match.Eligibility.Conflicts,
		RespondBy:  &respondBy,
	}
	if err := h.store.CreateAssignment(r.Context(), assignment); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	_ = h.store.CreateAssignmentEvent(r.Context(), &store.AssignmentEvent{
		AssignmentID: assignment.ID,
		Event:        "created",
		Actor:        "recruiter:" + r.Header.Get("X-Recruiter-ID"),
		Payload:      map[string]interface{}{"method": string(method)},
	})

	if h.events != nil {
		_ = h.events.Publish(events.SubjectAssignmentCreated(assignment.ID.String()), events.AssignmentCreatedEvent{
			AssignmentID: assignment.ID.String(),
			ShiftID:      shiftID.String(),
			GuardID:      guardID.String(),
			Method:       string(method),
			MatchScore:   match.MatchScore,
			RespondBy:    respondBy,
		})
	}

	writeJSON(w, http.StatusCreated, assignment)
}

func (h *AssignmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment id"})
		return
	}
	assignment, err := h.store.GetAssignment(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if assignment == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assignment not found"})
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

type RespondRequest struct {
	GuardID  string `json:"guard_id"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

func (h *AssignmentsHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment id"})
		return
	}
	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.assigner.ApplyResponse(r.Context(), events.AssignmentResponseEvent{
		AssignmentID: id.String(),
		GuardID:      req.GuardID,
		Accepted:     req.Accepted,
		Reason:       req.Reason,
	}); err != nil {
		writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
		return
	}

	assignment, err := h.store.GetAssignment(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

type ConfirmRequest struct {
	OverrideReason string `json:"override_reason,omitempty"`
	OverrideBy     string `json:"override_by,omitempty"`
}

func (h *AssignmentsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment id"})
		return
	}
	var req ConfirmRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	var override *matching.Override
	if req.OverrideReason != "" || req.OverrideBy != "" {
		override = &matching.Override{Reason: req.OverrideReason, By: req.OverrideBy}
	}

	assignment, status, errMsg := h.transition(r, id, store.AssignmentConfirmed, override)
	if errMsg != "" {
		writeJSON(w, status, map[string]string{"error": errMsg})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectAssignmentConfirmed(id.String()), events.AssignmentStatusEvent{
			AssignmentID: id.String(),
			ShiftID:      assignment.ShiftID.String(),
			GuardID:      assignment.GuardID.String(),
			Status:       string(store.AssignmentConfirmed),
		})
	}
	writeJSON(w, http.StatusOK, assignment)
}

func (h *AssignmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment id"})
		return
	}

	assignment, status, errMsg := h.transition(r, id, store.AssignmentCancelled, nil)
	if errMsg != "" {
		writeJSON(w, status, map[string]string{"error": errMsg})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectAssignmentCancelled(id.String()), events.AssignmentStatusEvent{
			AssignmentID: id.String(),
			ShiftID:      assignment.ShiftID.String(),
			GuardID:      assignment.GuardID.String(),
			Status:       string(store.AssignmentCancelled),
		})
	}
	writeJSON(w, http.StatusOK, assignment)
}

func (h *AssignmentsHandler) transition(r *http.Request, id uuid.UUID, to store.AssignmentStatus, override *matching.Override) (*store.ShiftAssignment, int, string) {
	assignment, err := h.store.GetAssignment(r.Context(), id)
	if err != nil {
		return nil, http.StatusInternalServerError, err.Error()
	}
	if assignment == nil {
		return nil, http.StatusNotFound, "assignment not found"
	}

	if err := matching.Transition(assignment, to, override); err != nil {
		return nil, errorStatus(err), err.Error()
	}
	if err := h.store.UpdateAssignment(r.Context(), assignment); err != nil {
		return nil, http.StatusInternalServerError, err.Error()
	}
	_ = h.store.CreateAssignmentEvent(r.Context(), &store.AssignmentEvent{
		AssignmentID: assignment.ID,
		Event:        string(to),
		Actor:        "recruiter:" + r.Header.Get("X-Recruiter-ID"),
	})
	return assignment, 0, ""
}

func (h *AssignmentsHandler) loadPair(r *http.Request, shiftID, guardID uuid.UUID) (*store.Shift, *store.Guard, []*store.GuardAvailability, []*store.ShiftAssignment, int, string) {
	shift, err := h.store.GetShift(r.Context(), shiftID)
	if err != nil {
		return nil, nil, nil, nil, http.StatusInternalServerError, err.Error()
	}
	if shift == nil {
		return nil, nil, nil, nil, http.StatusNotFound, "shift not found"
	}

	guard, err := h.store.GetGuard(r.Context(), guardID)
	if err != nil {
		return nil, nil, nil, nil, http.StatusInternalServerError, err.Error()
	}
	if guard == nil {
		return nil, nil, nil, nil, http.StatusNotFound, "guard not found"
	}

	windows, err := h.store.GetGuardAvailability(r.Context(), guardID)
	if err != nil {
		return nil, nil, nil, nil, http.StatusInternalServerError, err.Error()
	}
	existing, err := h.store.GetActiveAssignmentsForGuard(r.Context(), guardID, shift.StartTime, shift.EndTime)
	if err != nil {
		return nil, nil, nil, nil, http.StatusInternalServerError, err.Error()
	}
	return shift, guard, windows, existing, 0, ""
}
