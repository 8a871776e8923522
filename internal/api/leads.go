package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shieldops/rollcall/internal/events"
	"github.com/shieldops/rollcall/internal/matching"
	"github.com/shieldops/rollcall/internal/scoring"
	"github.com/shieldops/rollcall/internal/store"
)

type LeadsHandler struct {
	store  store.Store
	events events.Client
	calc   *scoring.Calculator
}

func NewLeadsHandler(s store.Store, ev events.Client, calc *scoring.Calculator) *LeadsHandler {
	return &LeadsHandler{store: s, events: ev, calc: calc}
}

type CreateLeadRequest struct {
	Name                  string  `json:"name"`
	Email                 string  `json:"email,omitempty"`
	Phone                 string  `json:"phone,omitempty"`
	YearsExperience       float64 `json:"years_experience"`
	HasSecurityExperience bool    `json:"has_security_experience"`
	HasLicense            bool    `json:"has_license"`
	HasTransportation     bool    `json:"has_transportation"`
	WillingToRelocate     bool    `json:"willing_to_relocate"`
	SalaryExpectation     float64 `json:"salary_expectation"`
	CertificationCount    int     `json:"certification_count"`
	FullTime              bool    `json:"full_time"`
	PartTime              bool    `json:"part_time"`
	Weekends              bool    `json:"weekends"`
	Nights                bool    `json:"nights"`
	Source                string  `json:"source,omitempty"`
	Referred              bool    `json:"referred"`
	DistanceMiles         float64 `json:"distance_miles"`
}

func (h *LeadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	lead := &store.Lead{
		Name:                  req.Name,
		Email:                 req.Email,
		Phone:                 req.Phone,
		YearsExperience:       req.YearsExperience,
		HasSecurityExperience: req.HasSecurityExperience,
		HasLicense:            req.HasLicense,
		HasTransportation:     req.HasTransportation,
		WillingToRelocate:     req.WillingToRelocate,
		SalaryExpectation:     req.SalaryExpectation,
		CertificationCount:    req.CertificationCount,
		FullTime:              req.FullTime,
		PartTime:              req.PartTime,
		Weekends:              req.Weekends,
		Nights:                req.Nights,
		Source:                req.Source,
		Referred:              req.Referred,
		DistanceMiles:         req.DistanceMiles,
		Status:                store.StatusLeadCaptured,
		RecruiterID:           r.Header.Get("X-Recruiter-ID"),
	}

	if err := h.store.CreateLead(r.Context(), lead); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *LeadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lead id"})
		return
	}
	lead, err := h.store.GetLead(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if lead == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.LeadFilter{
		RecruiterID: r.URL.Query().Get("recruiter_id"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.LeadStatus(s)
		filter.Status = &status
	}
	leads, err := h.store.ListLeads(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

type ScoreRequest struct {
	ConfigID string `json:"config_id,omitempty"`
}

func (h *LeadsHandler) Score(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lead id"})
		return
	}

	var req ScoreRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	var configID *uuid.UUID
	if req.ConfigID != "" {
		id, err := uuid.Parse(req.ConfigID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid config_id"})
			return
		}
		configID = &id
	}

	calc, err := h.calc.CalculateLeadScore(r.Context(), leadID, configID)
	if err != nil {
		writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectLeadScored(leadID.String()), events.LeadScoredEvent{
			LeadID:        leadID.String(),
			Score:         calc.Normalized,
			Qualified:     calc.Qualified,
			Priority:      string(calc.Priority),
			ConfigVersion: calc.ConfigVersion,
		})
		if calc.Qualified {
			_ = h.events.Publish(events.SubjectLeadQualified(leadID.String()), events.LeadScoredEvent{
				LeadID:        leadID.String(),
				Score:         calc.Normalized,
				Qualified:     true,
				Priority:      string(calc.Priority),
				ConfigVersion: calc.ConfigVersion,
			})
		}
	}

	writeJSON(w, http.StatusOK, calc)
}

type BatchScoreRequest struct {
	LeadIDs  []string `json:"lead_ids"`
	ConfigID string   `json:"config_id,omitempty"`
}

func (h *LeadsHandler) BatchScore(w http.ResponseWriter, r *http.Request) {
	var req BatchScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.LeadIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lead_ids required"})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.LeadIDs))
	for _, s := range req.LeadIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lead id: " + s})
			return
		}
		ids = append(ids, id)
	}

	var configID *uuid.UUID
	if req.ConfigID != "" {
		id, err := uuid.Parse(req.ConfigID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid config_id"})
			return
		}
		configID = &id
	}

	result := h.calc.BatchScoreLeads(r.Context(), ids, configID)

	if h.events != nil {
		_ = h.events.Publish(events.SubjectBatchScored(), events.BatchScoredEvent{
			Requested: len(ids),
			Scored:    len(result.Scored),
			Errors:    result.Errors,
		})
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *LeadsHandler) Prioritized(w http.ResponseWriter, r *http.Request) {
	var statusFilter *store.LeadStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.LeadStatus(s)
		statusFilter = &status
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	leads, err := h.calc.PrioritizedLeads(r.Context(), r.URL.Query().Get("recruiter_id"), statusFilter, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

// FactorExplanation is the human-readable view of one factor's contribution.
type FactorExplanation struct {
	Factor       string   `json:"factor"`
	Category     string   `json:"category"`
	Score        float64  `json:"score"`
	MaxScore     float64  `json:"max_score"`
	Weight       float64  `json:"weight"`
	Contribution float64  `json:"weighted_contribution"`
	Reasons      []string `json:"reasons,omitempty"`
}

type ScoreExplanation struct {
	LeadID                 string              `json:"lead_id"`
	NormalizedScore        float64             `json:"normalized_score"`
	Qualified              bool                `json:"qualified"`
	Priority               store.Priority      `json:"priority"`
	ApplicationProbability float64             `json:"application_probability"`
	HireProbability        float64             `json:"hire_probability"`
	ProbabilitySource      string              `json:"probability_source"`
	Factors                []FactorExplanation `json:"factors"`
}

func (h *LeadsHandler) Explain(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lead id"})
		return
	}

	calc, err := h.store.GetLatestCalculation(r.Context(), leadID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if calc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead has not been scored"})
		return
	}

	explanation := ScoreExplanation{
		LeadID:                 leadID.String(),
		NormalizedScore:        calc.Normalized,
		Qualified:              calc.Qualified,
		Priority:               calc.Priority,
		ApplicationProbability: calc.ApplicationProbability,
		HireProbability:        calc.HireProbability,
		ProbabilitySource:      calc.ProbabilitySource,
	}
	for _, fb := range calc.Breakdown {
		fe := FactorExplanation{
			Factor:       fb.FactorName,
			Category:     string(fb.Category),
			Score:        fb.Score,
			MaxScore:     fb.MaxScore,
			Weight:       fb.Weight,
			Contribution: fb.Score * fb.Weight,
		}
		for _, rule := range fb.AppliedRules {
			fe.Reasons = append(fe.Reasons, rule.Reason)
		}
		explanation.Factors = append(explanation.Factors, fe)
	}

	writeJSON(w, http.StatusOK, explanation)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps domain error types onto HTTP status codes.
func errorStatus(err error) int {
	var notFound *store.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}
	var confErr *scoring.ConfigurationError
	if errors.As(err, &confErr) {
		return http.StatusUnprocessableEntity
	}
	var insufficient *scoring.InsufficientDataError
	if errors.As(err, &insufficient) {
		return http.StatusUnprocessableEntity
	}
	var validation *matching.ValidationError
	if errors.As(err, &validation) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
