package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shieldops/rollcall/internal/store"
)

// DefaultThresholds for the seed config: qualified at 60, high priority at 80.
const (
	DefaultQualificationThreshold = 60
	DefaultHighPriorityThreshold  = 80
)

// DefaultConfig returns the seed scoring configuration used when a
// deployment has no config yet. Weights are relative, not fractional
// shares; normalization divides by the config's own ceiling.
func DefaultConfig() *store.ScoringConfig {
	return &store.ScoringConfig{
		Name:                   "default",
		Version:                1,
		Active:                 true,
		QualificationThreshold: DefaultQualificationThreshold,
		HighPriorityThreshold:  DefaultHighPriorityThreshold,
		Factors: []store.Factor{
			{
				Name:     "Experience",
				Category: store.CategoryExperience,
				Weight:   3,
				Rules: []store.Rule{
					rule(`{">=": ["yearsExperience", 5]}`, 30, "5+ years of experience"),
					rule(`{">=": ["yearsExperience", 2]}`, 20, "2+ years of experience"),
					rule(`{"==": ["hasSecurityExperience", true]}`, 25, "Prior security experience"),
				},
			},
			{
				Name:     "Certifications",
				Category: store.CategoryCertifications,
				Weight:   2,
				Rules: []store.Rule{
					rule(`{"==": ["hasLicense", true]}`, 30, "Holds a valid guard license"),
					rule(`{">=": ["certificationCount", 2]}`, 10, "Multiple certifications"),
				},
			},
			{
				Name:     "Location",
				Category: store.CategoryLocation,
				Weight:   2,
				Rules: []store.Rule{
					rule(`{"==": ["hasTransportation", true]}`, 25, "Has own transportation"),
					rule(`{"==": ["localCandidate", true]}`, 5, "Lives within commuting distance"),
				},
			},
			{
				Name:     "Availability",
				Category: store.CategoryAvailability,
				Weight:   1,
				Rules: []store.Rule{
					rule(`{"==": ["fullTime", true]}`, 15, "Available full time"),
					rule(`{"==": ["weekends", true]}`, 10, "Available weekends"),
					rule(`{"==": ["nights", true]}`, 5, "Available nights"),
				},
			},
			{
				Name:     "Salary Expectations",
				Category: store.CategorySalaryExpectations,
				Weight:   1,
				Rules: []store.Rule{
					rule(`{"<=": ["salaryExpectation", 22]}`, 15, "Salary expectation within range"),
				},
			},
			{
				Name:     "Source Quality",
				Category: store.CategorySourceQuality,
				Weight:   1,
				Rules: []store.Rule{
					rule(`{"==": ["isReferral", true]}`, 20, "Referred candidate"),
					rule(`{"in": ["source", ["agency", "website"]]}`, 5, "Direct-channel lead"),
				},
			},
		},
	}
}

// EnsureActiveConfig installs and activates the seed config when no scoring
// config is active yet, so a fresh deployment can score leads immediately.
// Non-zero thresholds from deployment config override the seed's.
func EnsureActiveConfig(ctx context.Context, s store.Store, logger *slog.Logger, qualThreshold, highThreshold float64) error {
	active, err := s.GetActiveScoringConfig(ctx)
	if err != nil {
		return fmt.Errorf("load active scoring config: %w", err)
	}
	if active != nil {
		return nil
	}

	cfg := DefaultConfig()
	if qualThreshold > 0 {
		cfg.QualificationThreshold = qualThreshold
	}
	if highThreshold > 0 {
		cfg.HighPriorityThreshold = highThreshold
	}
	if err := s.CreateScoringConfig(ctx, cfg); err != nil {
		return fmt.Errorf("create seed scoring config: %w", err)
	}
	if err := s.ActivateScoringConfig(ctx, cfg.ID); err != nil {
		return fmt.Errorf("activate seed scoring config: %w", err)
	}

	logger.Info("installed seed scoring config",
		"config_id", cfg.ID,
		"qualification_threshold", cfg.QualificationThreshold,
		"high_priority_threshold", cfg.HighPriorityThreshold)
	return nil
}

func rule(condition string, points float64, description string) store.Rule {
	return store.Rule{
		Condition:   json.RawMessage(condition),
		Points:      points,
		Description: description,
	}
}
