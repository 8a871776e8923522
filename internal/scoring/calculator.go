package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shieldops/rollcall/internal/store"
)

// BatchChunkSize is the default bound on how many leads are scored
// concurrently within a batch. Chunks run serially to bound simultaneous
// load on the store.
const BatchChunkSize = 10

// Calculator orchestrates factor scoring for whole leads. Dependencies are
// injected explicitly; there is no package-level instance.
type Calculator struct {
	store     store.Store
	estimator *Estimator
	logger    *slog.Logger
	chunkSize int
}

// NewCalculator builds a Calculator. chunkSize <= 0 falls back to
// BatchChunkSize.
func NewCalculator(s store.Store, e *Estimator, logger *slog.Logger, chunkSize int) *Calculator {
	if chunkSize <= 0 {
		chunkSize = BatchChunkSize
	}
	return &Calculator{store: s, estimator: e, logger: logger, chunkSize: chunkSize}
}

// CalculateLeadScore scores one lead against the requested config, or the
// active config when configID is nil. The computed calculation is persisted
// and the lead's cached fields updated best-effort: a write failure is
// logged and the in-memory result still returned.
func (c *Calculator) CalculateLeadScore(ctx context.Context, leadID uuid.UUID, configID *uuid.UUID) (*store.ScoreCalculation, error) {
	lead, err := c.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}
	if lead == nil {
		return nil, store.NotFound("lead", leadID.String())
	}

	cfg, err := c.loadConfig(ctx, configID)
	if err != nil {
		return nil, err
	}

	calc := &store.ScoreCalculation{
		LeadID:        lead.ID,
		ConfigID:      cfg.ID,
		ConfigVersion: cfg.Version,
		CreatedAt:     time.Now(),
	}

	for i := range cfg.Factors {
		factor := &cfg.Factors[i]
		fs := ScoreFactor(lead, factor)
		calc.RawScore += fs.Score * factor.Weight
		calc.MaxPossible += fs.MaxScore * factor.Weight
		calc.Breakdown = append(calc.Breakdown, fs)
	}

	if calc.MaxPossible > 0 {
		calc.Normalized = (calc.RawScore / calc.MaxPossible) * 100
	}
	calc.Qualified = calc.Normalized >= cfg.QualificationThreshold
	switch {
	case calc.Normalized >= cfg.HighPriorityThreshold:
		calc.Priority = store.PriorityHigh
	case calc.Qualified:
		calc.Priority = store.PriorityMedium
	default:
		calc.Priority = store.PriorityLow
	}

	probs := c.estimator.Estimate(ctx, lead, calc.Normalized)
	calc.ApplicationProbability = probs.Application
	calc.HireProbability = probs.Hire
	calc.ProbabilitySource = probs.Source

	// Best-effort persistence: the computed result is valid regardless.
	if err := c.store.CreateScoreCalculation(ctx, calc); err != nil {
		c.logger.Warn("failed to persist score calculation", "lead_id", lead.ID, "error", err)
	}
	if err := c.store.UpdateLeadCachedFields(ctx, lead.ID, calc); err != nil {
		c.logger.Warn("failed to update lead cached fields", "lead_id", lead.ID, "error", err)
	}

	c.logger.Info("lead scored",
		"lead_id", lead.ID, "config_version", cfg.Version,
		"normalized_score", calc.Normalized, "qualified", calc.Qualified, "priority", calc.Priority)
	return calc, nil
}

func (c *Calculator) loadConfig(ctx context.Context, configID *uuid.UUID) (*store.ScoringConfig, error) {
	if configID != nil {
		cfg, err := c.store.GetScoringConfig(ctx, *configID)
		if err != nil {
			return nil, fmt.Errorf("load scoring config: %w", err)
		}
		if cfg == nil {
			return nil, &ConfigurationError{Reason: "config " + configID.String() + " not found"}
		}
		if !cfg.Active {
			return nil, &ConfigurationError{Reason: "config " + configID.String() + " is not active"}
		}
		return cfg, nil
	}

	cfg, err := c.store.GetActiveScoringConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active scoring config: %w", err)
	}
	if cfg == nil {
		return nil, &ConfigurationError{Reason: "no active scoring config"}
	}
	return cfg, nil
}

// BatchResult summarizes a batch scoring run. Per-lead failures are
// collected as strings and never abort sibling computations.
type BatchResult struct {
	Scored []*store.ScoreCalculation `json:"scored"`
	Errors []string                  `json:"errors,omitempty"`
}

// BatchScoreLeads scores leads in chunks of the configured chunk size:
// concurrent within a chunk, serial chunk to chunk.
func (c *Calculator) BatchScoreLeads(ctx context.Context, leadIDs []uuid.UUID, configID *uuid.UUID) *BatchResult {
	result := &BatchResult{}
	var mu sync.Mutex

	for start := 0; start < len(leadIDs); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(leadIDs) {
			end = len(leadIDs)
		}

		var wg sync.WaitGroup
		for _, id := range leadIDs[start:end] {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				calc, err := c.CalculateLeadScore(ctx, id, configID)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("lead %s: %v", id, err))
					return
				}
				result.Scored = append(result.Scored, calc)
			}(id)
		}
		wg.Wait()
	}

	return result
}

// PrioritizedLead pairs a lead with its current calculation for ranking.
type PrioritizedLead struct {
	Lead        *store.Lead             `json:"lead"`
	Calculation *store.ScoreCalculation `json:"calculation,omitempty"`
}

var priorityRank = map[store.Priority]int{
	store.PriorityHigh:   3,
	store.PriorityMedium: 2,
	store.PriorityLow:    1,
}

// PrioritizedLeads returns leads ordered by priority tier then normalized
// score descending. Leads without a calculation sort last.
func (c *Calculator) PrioritizedLeads(ctx context.Context, recruiterID string, statusFilter *store.LeadStatus, limit int) ([]*PrioritizedLead, error) {
	leads, err := c.store.ListLeads(ctx, store.LeadFilter{
		Status:      statusFilter,
		RecruiterID: recruiterID,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	out := make([]*PrioritizedLead, 0, len(leads))
	for _, lead := range leads {
		pl := &PrioritizedLead{Lead: lead}
		calc, err := c.store.GetLatestCalculation(ctx, lead.ID)
		if err != nil {
			c.logger.Warn("failed to load latest calculation", "lead_id", lead.ID, "error", err)
		} else {
			pl.Calculation = calc
		}
		out = append(out, pl)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i].Calculation, out[j].Calculation
		if ci == nil || cj == nil {
			return cj == nil && ci != nil
		}
		if priorityRank[ci.Priority] != priorityRank[cj.Priority] {
			return priorityRank[ci.Priority] > priorityRank[cj.Priority]
		}
		return ci.Normalized > cj.Normalized
	})

	return out, nil
}
