package matching

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shieldops/rollcall/internal/store"
)

// CertificationMatch compares a shift's required certifications against the
// certifications a guard holds.
type CertificationMatch struct {
	MatchPercentage float64  `json:"match_percentage"`
	Missing         []string `json:"missing,omitempty"`
	CriticalMissing []string `json:"critical_missing,omitempty"`
}

// AvailabilityMatch describes how much of a shift's window the guard's
// declared availability covers.
type AvailabilityMatch struct {
	OverlapPercentage float64 `json:"overlap_percentage"`
	EmergencyOnly     bool    `json:"emergency_only"`
	Preferred         bool    `json:"preferred"`
}

// EligibilityResult is the full eligibility picture for one guard–shift pair.
type EligibilityResult struct {
	ShiftID       string                     `json:"shift_id"`
	GuardID       string                     `json:"guard_id"`
	Eligible      bool                       `json:"eligible"`
	Certification CertificationMatch         `json:"certification"`
	Availability  AvailabilityMatch          `json:"availability"`
	Conflicts     []store.AssignmentConflict `json:"conflicts,omitempty"`
}

// CheckEligibility computes certification match, availability overlap, and
// conflicts for a guard against a shift. existing must hold the guard's
// assignments whose shifts overlap the window (the store query scopes them).
func CheckEligibility(shift *store.Shift, guard *store.Guard, windows []*store.GuardAvailability, existing []*store.ShiftAssignment) EligibilityResult {
	result := EligibilityResult{
		ShiftID:       shift.ID.String(),
		GuardID:       guard.ID.String(),
		Certification: matchCertifications(shift.RequiredCertifications, guard.Certifications),
		Availability:  matchAvailability(shift, windows),
	}

	// Certification conflicts
	for _, name := range result.Certification.CriticalMissing {
		result.Conflicts = append(result.Conflicts, store.AssignmentConflict{
			Type:             store.ConflictCertificationMissing,
			Severity:         store.SeverityCritical,
			Detail:           "missing critical certification: " + name,
			CanOverride:      false,
			OverrideRequired: true,
		})
	}
	for _, name := range result.Certification.Missing {
		if contains(result.Certification.CriticalMissing, name) {
			continue
		}
		result.Conflicts = append(result.Conflicts, store.AssignmentConflict{
			Type:        store.ConflictCertificationMissing,
			Severity:    store.SeverityWarning,
			Detail:      "missing certification: " + name,
			CanOverride: true,
		})
	}

	// Existing-commitment conflicts
	for _, a := range existing {
		result.Conflicts = append(result.Conflicts, store.AssignmentConflict{
			Type:        store.ConflictTimeOverlap,
			Severity:    store.SeverityError,
			Detail:      fmt.Sprintf("overlaps existing assignment %s", a.ID),
			CanOverride: true,
		})
	}

	// Availability conflicts
	if hasUnavailableOverlap(shift, windows) {
		result.Conflicts = append(result.Conflicts, store.AssignmentConflict{
			Type:        store.ConflictAvailability,
			Severity:    store.SeverityError,
			Detail:      "guard declared unavailable during shift window",
			CanOverride: true,
		})
	} else if result.Availability.EmergencyOnly {
		result.Conflicts = append(result.Conflicts, store.AssignmentConflict{
			Type:        store.ConflictAvailability,
			Severity:    store.SeverityWarning,
			Detail:      "coverage comes only from emergency-only windows",
			CanOverride: true,
		})
	}

	result.Eligible = len(result.Certification.CriticalMissing) == 0
	for _, c := range result.Conflicts {
		if c.OverrideRequired {
			result.Eligible = false
		}
	}
	return result
}

func matchCertifications(required []store.RequiredCertification, held []string) CertificationMatch {
	if len(required) == 0 {
		return CertificationMatch{MatchPercentage: 100}
	}

	var matched int
	match := CertificationMatch{}
	for _, req := range required {
		found := false
		for _, cert := range held {
			if strings.EqualFold(cert, req.Name) {
				found = true
				break
			}
		}
		if found {
			matched++
			continue
		}
		match.Missing = append(match.Missing, req.Name)
		if req.Critical {
			match.CriticalMissing = append(match.CriticalMissing, req.Name)
		}
	}
	match.MatchPercentage = float64(matched) / float64(len(required)) * 100
	return match
}

func matchAvailability(shift *store.Shift, windows []*store.GuardAvailability) AvailabilityMatch {
	duration := shift.EndTime.Sub(shift.StartTime)
	if duration <= 0 {
		return AvailabilityMatch{}
	}

	regular := coveredDuration(shift, windows, func(t store.AvailabilityType) bool {
		return t == store.AvailabilityAvailable || t == store.AvailabilityPreferred
	})
	emergency := coveredDuration(shift, windows, func(t store.AvailabilityType) bool {
		return t == store.AvailabilityEmergencyOnly
	})
	preferred := coveredDuration(shift, windows, func(t store.AvailabilityType) bool {
		return t == store.AvailabilityPreferred
	})

	match := AvailabilityMatch{
		OverlapPercentage: float64(regular) / float64(duration),
		Preferred:         preferred >= duration,
	}
	if match.OverlapPercentage > 1 {
		match.OverlapPercentage = 1
	}
	if regular == 0 && emergency > 0 {
		match.EmergencyOnly = true
		match.OverlapPercentage = float64(emergency) / float64(duration)
		if match.OverlapPercentage > 1 {
			match.OverlapPercentage = 1
		}
	}
	return match
}

// coveredDuration merges qualifying windows and returns how much of the
// shift they cover.
func coveredDuration(shift *store.Shift, windows []*store.GuardAvailability, qualifies func(store.AvailabilityType) bool) time.Duration {
	type interval struct{ start, end time.Time }
	var overlaps []interval

	for _, w := range windows {
		if !qualifies(w.Type) {
			continue
		}
		start := maxTime(w.Start, shift.StartTime)
		end := minTime(w.End, shift.EndTime)
		if end.After(start) {
			overlaps = append(overlaps, interval{start, end})
		}
	}
	if len(overlaps) == 0 {
		return 0
	}

	sort.Slice(overlaps, func(i, j int) bool { return overlaps[i].start.Before(overlaps[j].start) })

	var total time.Duration
	current := overlaps[0]
	for _, iv := range overlaps[1:] {
		if iv.start.After(current.end) {
			total += current.end.Sub(current.start)
			current = iv
			continue
		}
		if iv.end.After(current.end) {
			current.end = iv.end
		}
	}
	total += current.end.Sub(current.start)
	return total
}

func hasUnavailableOverlap(shift *store.Shift, windows []*store.GuardAvailability) bool {
	for _, w := range windows {
		if w.Type != store.AvailabilityUnavailable {
			continue
		}
		if w.Start.Before(shift.EndTime) && w.End.After(shift.StartTime) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
