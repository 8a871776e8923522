package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shieldops/rollcall/internal/scoring"
	"github.com/shieldops/rollcall/internal/store"
)

type AdminHandler struct {
	store     store.Store
	estimator *scoring.Estimator
}

func NewAdminHandler(s store.Store, est *scoring.Estimator) *AdminHandler {
	return &AdminHandler{store: s, estimator: est}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) Accuracy(w http.ResponseWriter, r *http.Request) {
	report, err := h.estimator.AnalyzeAccuracy(r.Context())
	if err != nil {
		writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.store.ListScoringConfigs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

type CreateConfigRequest struct {
	Name                   string        `json:"name"`
	QualificationThreshold float64       `json:"qualification_threshold"`
	HighPriorityThreshold  float64       `json:"high_priority_threshold"`
	Factors                []FactorInput `json:"factors"`
}

type FactorInput struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Weight   float64     `json:"weight"`
	Rules    []RuleInput `json:"rules"`
}

type RuleInput struct {
	Condition   json.RawMessage `json:"condition"`
	Points      float64         `json:"points"`
	Description string          `json:"description"`
}

func (h *AdminHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req CreateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" || len(req.Factors) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and factors required"})
		return
	}
	if req.QualificationThreshold <= 0 {
		req.QualificationThreshold = scoring.DefaultQualificationThreshold
	}
	if req.HighPriorityThreshold <= 0 {
		req.HighPriorityThreshold = scoring.DefaultHighPriorityThreshold
	}

	cfg := &store.ScoringConfig{
		Name:                   req.Name,
		QualificationThreshold: req.QualificationThreshold,
		HighPriorityThreshold:  req.HighPriorityThreshold,
	}
	for _, f := range req.Factors {
		if f.Weight <= 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "factor " + f.Name + " has non-positive weight"})
			return
		}
		factor := store.Factor{
			Name:     f.Name,
			Category: store.FactorCategory(f.Category),
			Weight:   f.Weight,
		}
		for _, rule := range f.Rules {
			if _, err := scoring.ParseCondition(rule.Condition); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid condition in factor " + f.Name + ": " + err.Error()})
				return
			}
			factor.Rules = append(factor.Rules, store.Rule{
				Condition:   rule.Condition,
				Points:      rule.Points,
				Description: rule.Description,
			})
		}
		cfg.Factors = append(cfg.Factors, factor)
	}

	if err := h.store.CreateScoringConfig(r.Context(), cfg); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (h *AdminHandler) ActivateConfig(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid config id"})
		return
	}
	if err := h.store.ActivateScoringConfig(r.Context(), id); err != nil {
		writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "activated"})
}
