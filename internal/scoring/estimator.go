package scoring

import (
	"context"
	"log/slog"
	"math"

	"github.com/shieldops/rollcall/internal/store"
)

const (
	// ScoreWindow bounds the cohort to leads scored within ± this many points.
	ScoreWindow = 10.0
	// MinCohortSize is the smallest cohort the empirical estimate trusts.
	MinCohortSize = 10

	SourceCohort     = "cohort"
	SourceStaticBand = "static_band"
)

// Probabilities is the estimator's advisory output.
type Probabilities struct {
	Application float64 `json:"application_probability"`
	Hire        float64 `json:"hire_probability"`
	Source      string  `json:"source"`
	CohortSize  int     `json:"cohort_size"`
}

// Estimator predicts application-completion and hire probabilities from
// historical cohorts of similarly scored leads. Estimation is advisory:
// store failures degrade to the static band table, never to an error.
type Estimator struct {
	store  store.Store
	logger *slog.Logger
}

func NewEstimator(s store.Store, logger *slog.Logger) *Estimator {
	return &Estimator{store: s, logger: logger}
}

// Estimate computes probabilities for a lead at the given normalized score.
func (e *Estimator) Estimate(ctx context.Context, lead *store.Lead, normalizedScore float64) Probabilities {
	outcomes, err := e.store.GetHistoricalOutcomes(ctx, normalizedScore-ScoreWindow, normalizedScore+ScoreWindow)
	if err != nil {
		e.logger.Warn("historical outcome query failed, using static bands",
			"lead_id", lead.ID, "error", err)
		return staticBand(normalizedScore)
	}

	// The store already excludes lead_captured; filter again so mock stores
	// and future queries cannot widen the cohort.
	cohort := outcomes[:0:0]
	for _, o := range outcomes {
		if o.Status != store.StatusLeadCaptured {
			cohort = append(cohort, o)
		}
	}

	if len(cohort) < MinCohortSize {
		p := staticBand(normalizedScore)
		p.CohortSize = len(cohort)
		return p
	}

	var entered, hired int
	for _, o := range cohort {
		if store.PipelineStatuses[o.Status] {
			entered++
		}
		if o.Status == store.StatusHireCompleted {
			hired++
		}
	}

	n := float64(len(cohort))
	return Probabilities{
		Application: round2(clamp01(float64(entered) / n)),
		Hire:        round2(clamp01(float64(hired) / n)),
		Source:      SourceCohort,
		CohortSize:  len(cohort),
	}
}

// staticBand is the score-banded default table used when the cohort is too
// small to trust.
func staticBand(score float64) Probabilities {
	p := Probabilities{Source: SourceStaticBand}
	switch {
	case score >= 80:
		p.Application, p.Hire = 0.85, 0.65
	case score >= 70:
		p.Application, p.Hire = 0.70, 0.45
	case score >= 60:
		p.Application, p.Hire = 0.55, 0.30
	case score >= 50:
		p.Application, p.Hire = 0.40, 0.18
	case score >= 40:
		p.Application, p.Hire = 0.25, 0.10
	default:
		p.Application, p.Hire = 0.10, 0.03
	}
	return p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
