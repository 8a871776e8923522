package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/shieldops/rollcall/internal/store"
)

// MatchWeights defines the relative importance of the five ranking
// sub-scores. All weights must sum to 1.0 (±0.001 tolerance).
type MatchWeights struct {
	Certification float64
	Availability  float64
	Proximity     float64
	Performance   float64
	Preference    float64
}

// DefaultMatchWeights returns the standard sub-score distribution.
func DefaultMatchWeights() MatchWeights {
	return MatchWeights{
		Certification: 0.30,
		Availability:  0.25,
		Proximity:     0.20,
		Performance:   0.15,
		Preference:    0.10,
	}
}

func (w MatchWeights) Sum() float64 {
	return w.Certification + w.Availability + w.Proximity + w.Performance + w.Preference
}

// Validate checks that weights sum to 1.0 and none are negative.
func (w MatchWeights) Validate() error {
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("match weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	for _, v := range []float64{w.Certification, w.Availability, w.Proximity, w.Performance, w.Preference} {
		if v < 0 {
			return fmt.Errorf("negative match weight: %f", v)
		}
	}
	return nil
}

// ProximityRadiusMiles is the distance at which the proximity sub-score
// reaches zero.
const ProximityRadiusMiles = 50.0

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type RecommendedAction string

const (
	ActionAutoAssign     RecommendedAction = "auto_assign"
	ActionManagerReview  RecommendedAction = "manager_review"
	ActionNotRecommended RecommendedAction = "not_recommended"
)

// SubScores holds the five weighted components of a match score, each 0–1.
type SubScores struct {
	Certification float64 `json:"certification"`
	Availability  float64 `json:"availability"`
	Proximity     float64 `json:"proximity"`
	Performance   float64 `json:"performance"`
	Preference    float64 `json:"preference"`
}

// MatchResult is one guard's ranked fit for a shift.
type MatchResult struct {
	GuardID     string            `json:"guard_id"`
	GuardName   string            `json:"guard_name"`
	Eligibility EligibilityResult `json:"eligibility"`
	SubScores   SubScores         `json:"sub_scores"`
	MatchScore  float64           `json:"match_score"`
	Ranking     int               `json:"ranking"`
	Confidence  Confidence        `json:"confidence"`
	Action      RecommendedAction `json:"recommended_action"`
}

// Candidate bundles the inputs needed to rank one guard against a shift.
type Candidate struct {
	Guard    *store.Guard
	Windows  []*store.GuardAvailability
	Existing []*store.ShiftAssignment
}

// Ranker combines eligibility and the five weighted sub-scores into a
// ranked match list.
type Ranker struct {
	weights MatchWeights
}

func NewRanker(weights MatchWeights) *Ranker {
	return &Ranker{weights: weights}
}

// RankGuards scores every candidate, sorts descending by match score, and
// assigns 1-based rankings.
func (r *Ranker) RankGuards(shift *store.Shift, candidates []Candidate) []MatchResult {
	results := make([]MatchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, r.scoreCandidate(shift, c))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	for i := range results {
		results[i].Ranking = i + 1
	}
	return results
}

func (r *Ranker) scoreCandidate(shift *store.Shift, c Candidate) MatchResult {
	elig := CheckEligibility(shift, c.Guard, c.Windows, c.Existing)

	sub := SubScores{
		Certification: elig.Certification.MatchPercentage / 100,
		Availability:  availabilityScore(elig.Availability),
		Proximity:     proximityScore(shift, c.Guard),
		Performance:   clamp(c.Guard.PerformanceRating/5, 0, 1),
		Preference:    preferenceScore(shift, elig.Availability, c.Windows),
	}

	score := sub.Certification*r.weights.Certification +
		sub.Availability*r.weights.Availability +
		sub.Proximity*r.weights.Proximity +
		sub.Performance*r.weights.Performance +
		sub.Preference*r.weights.Preference

	result := MatchResult{
		GuardID:     c.Guard.ID.String(),
		GuardName:   c.Guard.Name,
		Eligibility: elig,
		SubScores:   sub,
		MatchScore:  score,
	}

	switch {
	case score >= 0.8:
		result.Confidence = ConfidenceHigh
	case score >= 0.6:
		result.Confidence = ConfidenceMedium
	default:
		result.Confidence = ConfidenceLow
	}

	switch {
	case !elig.Eligible:
		result.Action = ActionNotRecommended
	case result.Confidence == ConfidenceHigh && len(elig.Conflicts) == 0:
		result.Action = ActionAutoAssign
	default:
		result.Action = ActionManagerReview
	}

	return result
}

func availabilityScore(m AvailabilityMatch) float64 {
	score := clamp(m.OverlapPercentage, 0, 1)
	if m.EmergencyOnly {
		// Emergency-only coverage counts, but never as a strong match.
		if score > 0.3 {
			score = 0.3
		}
	}
	return score
}

func proximityScore(shift *store.Shift, guard *store.Guard) float64 {
	dist := haversineMiles(guard.HomeLatitude, guard.HomeLongitude, shift.SiteLatitude, shift.SiteLongitude)
	return clamp(1-dist/ProximityRadiusMiles, 0, 1)
}

// preferenceScore reflects the guard's declared preference for the shift's
// window: preferred coverage scores highest, boosted by a must-work priority.
// Windows outside the shift carry no signal about this shift and are skipped.
func preferenceScore(shift *store.Shift, m AvailabilityMatch, windows []*store.GuardAvailability) float64 {
	if m.Preferred {
		return 1.0
	}

	best := 0.0
	for _, w := range windows {
		if !w.Start.Before(shift.EndTime) || !w.End.After(shift.StartTime) {
			continue
		}
		var s float64
		switch w.Type {
		case store.AvailabilityPreferred:
			s = 0.9
		case store.AvailabilityAvailable:
			s = 0.6
		case store.AvailabilityEmergencyOnly:
			s = 0.2
		default:
			continue
		}
		// Priority 1 (must work) boosts, 5 (prefer not) dampens.
		if w.Priority >= 1 && w.Priority <= 5 {
			s *= 1.2 - 0.1*float64(w.Priority)
		}
		if s > best {
			best = s
		}
	}
	return clamp(best, 0, 1)
}

const earthRadiusMiles = 3958.8

func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
