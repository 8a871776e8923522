package scoring

import (
	"github.com/shieldops/rollcall/internal/store"
)

// ScoreFactor applies every rule of one factor to a lead and returns the
// factor's contribution. MaxScore counts only positive-point rules so
// non-positive rules never inflate the normalization ceiling; the final
// score is clamped to non-negative.
func ScoreFactor(lead *store.Lead, factor *store.Factor) store.FactorBreakdown {
	result := store.FactorBreakdown{
		FactorID:   factor.ID,
		FactorName: factor.Name,
		Category:   factor.Category,
		Weight:     factor.Weight,
	}

	ctx := BuildContext(lead, factor.Category)

	var total float64
	for _, rule := range factor.Rules {
		if rule.Points > 0 {
			result.MaxScore += rule.Points
		}
		if MustParse(rule.Condition).Eval(ctx) {
			total += rule.Points
			result.AppliedRules = append(result.AppliedRules, store.AppliedRule{
				RuleID: rule.ID,
				Points: rule.Points,
				Reason: rule.Description,
			})
		}
	}

	if total < 0 {
		total = 0
	}
	result.Score = total
	return result
}
