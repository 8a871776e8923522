package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shieldops/rollcall/internal/store"
)

func testShift(certs ...store.RequiredCertification) *store.Shift {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return &store.Shift{
		ID:                     uuid.New(),
		ClientName:             "Harbor Mall",
		StartTime:              start,
		EndTime:                start.Add(8 * time.Hour),
		RequiredCertifications: certs,
		Status:                 store.ShiftOpen,
	}
}

func testGuard(certs ...string) *store.Guard {
	return &store.Guard{
		ID:             uuid.New(),
		Name:           "Dana Reyes",
		Certifications: certs,
		Active:         true,
	}
}

func window(shift *store.Shift, typ store.AvailabilityType, startOffset, endOffset time.Duration) *store.GuardAvailability {
	return &store.GuardAvailability{
		ID:       uuid.New(),
		Start:    shift.StartTime.Add(startOffset),
		End:      shift.EndTime.Add(endOffset),
		Type:     typ,
		Priority: 3,
	}
}

func TestCheckEligibilityCriticalCertBlocks(t *testing.T) {
	shift := testShift(
		store.RequiredCertification{Name: "Armed Guard License", Critical: true},
		store.RequiredCertification{Name: "First Aid", Critical: false},
	)
	guard := testGuard("First Aid")
	windows := []*store.GuardAvailability{window(shift, store.AvailabilityAvailable, 0, 0)}

	result := CheckEligibility(shift, guard, windows, nil)

	if result.Eligible {
		t.Fatal("guard missing a critical certification must not be eligible")
	}
	if len(result.Certification.CriticalMissing) != 1 || result.Certification.CriticalMissing[0] != "Armed Guard License" {
		t.Fatalf("unexpected critical missing: %v", result.Certification.CriticalMissing)
	}
	if result.Certification.MatchPercentage != 50 {
		t.Fatalf("expected 50%% cert match, got %v", result.Certification.MatchPercentage)
	}

	var found bool
	for _, c := range result.Conflicts {
		if c.Type == store.ConflictCertificationMissing && c.Severity == store.SeverityCritical {
			found = true
			if c.CanOverride {
				t.Fatal("critical certification conflict must not be overridable")
			}
			if !c.OverrideRequired {
				t.Fatal("critical certification conflict must require override")
			}
		}
	}
	if !found {
		t.Fatal("expected a critical certification conflict")
	}
}

func TestCheckEligibilityNonCriticalCertWarns(t *testing.T) {
	shift := testShift(
		store.RequiredCertification{Name: "Unarmed Guard Card", Critical: true},
		store.RequiredCertification{Name: "CPR", Critical: false},
	)
	guard := testGuard("unarmed guard card")
	windows := []*store.GuardAvailability{window(shift, store.AvailabilityAvailable, 0, 0)}

	result := CheckEligibility(shift, guard, windows, nil)

	if !result.Eligible {
		t.Fatal("missing only a non-critical certification should stay eligible")
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 warning conflict, got %d", len(result.Conflicts))
	}
	if result.Conflicts[0].Severity != store.SeverityWarning || !result.Conflicts[0].CanOverride {
		t.Fatalf("unexpected conflict: %+v", result.Conflicts[0])
	}
}

func TestCheckEligibilityCaseInsensitiveCerts(t *testing.T) {
	shift := testShift(store.RequiredCertification{Name: "First Aid", Critical: true})
	guard := testGuard("FIRST AID")
	windows := []*store.GuardAvailability{window(shift, store.AvailabilityAvailable, 0, 0)}

	result := CheckEligibility(shift, guard, windows, nil)
	if !result.Eligible {
		t.Fatal("certification match must be case-insensitive")
	}
	if result.Certification.MatchPercentage != 100 {
		t.Fatalf("expected 100%% match, got %v", result.Certification.MatchPercentage)
	}
}

func TestCheckEligibilityNoCertsRequired(t *testing.T) {
	shift := testShift()
	guard := testGuard()
	result := CheckEligibility(shift, guard, nil, nil)
	if result.Certification.MatchPercentage != 100 {
		t.Fatalf("no required certifications must mean 100%% match, got %v", result.Certification.MatchPercentage)
	}
}

func TestCheckEligibilityTimeOverlapConflict(t *testing.T) {
	shift := testShift()
	guard := testGuard()
	windows := []*store.GuardAvailability{window(shift, store.AvailabilityAvailable, 0, 0)}
	existing := []*store.ShiftAssignment{{
		ID:      uuid.New(),
		GuardID: guard.ID,
		Status:  store.AssignmentConfirmed,
	}}

	result := CheckEligibility(shift, guard, windows, existing)

	var overlap bool
	for _, c := range result.Conflicts {
		if c.Type == store.ConflictTimeOverlap && c.Severity == store.SeverityError {
			overlap = true
		}
	}
	if !overlap {
		t.Fatal("expected a time overlap conflict")
	}
	if !result.Eligible {
		t.Fatal("overridable overlap should not hard-block eligibility")
	}
}

func TestAvailabilityOverlapMergesWindows(t *testing.T) {
	shift := testShift()
	// Two overlapping windows covering the first half of the shift.
	windows := []*store.GuardAvailability{
		window(shift, store.AvailabilityAvailable, 0, -6*time.Hour),
		window(shift, store.AvailabilityAvailable, time.Hour, -4*time.Hour),
	}

	m := matchAvailability(shift, windows)
	if m.OverlapPercentage != 0.5 {
		t.Fatalf("expected 50%% overlap after merge, got %v", m.OverlapPercentage)
	}
	if m.EmergencyOnly {
		t.Fatal("regular coverage must not be flagged emergency-only")
	}
}

func TestAvailabilityEmergencyOnly(t *testing.T) {
	shift := testShift()
	guard := testGuard()
	windows := []*store.GuardAvailability{window(shift, store.AvailabilityEmergencyOnly, 0, 0)}

	result := CheckEligibility(shift, guard, windows, nil)
	if !result.Availability.EmergencyOnly {
		t.Fatal("expected emergency-only availability")
	}

	var warned bool
	for _, c := range result.Conflicts {
		if c.Type == store.ConflictAvailability && c.Severity == store.SeverityWarning {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected an emergency-only availability warning")
	}
}

func TestUnavailableWindowConflicts(t *testing.T) {
	shift := testShift()
	guard := testGuard()
	windows := []*store.GuardAvailability{
		window(shift, store.AvailabilityAvailable, 0, 0),
		window(shift, store.AvailabilityUnavailable, 2*time.Hour, -2*time.Hour),
	}

	result := CheckEligibility(shift, guard, windows, nil)

	var conflicted bool
	for _, c := range result.Conflicts {
		if c.Type == store.ConflictAvailability && c.Severity == store.SeverityError {
			conflicted = true
		}
	}
	if !conflicted {
		t.Fatal("expected an unavailable-window conflict")
	}
}

func TestAvailabilityPreferredFullCoverage(t *testing.T) {
	shift := testShift()
	windows := []*store.GuardAvailability{window(shift, store.AvailabilityPreferred, 0, 0)}

	m := matchAvailability(shift, windows)
	if !m.Preferred {
		t.Fatal("full preferred coverage should set Preferred")
	}
	if m.OverlapPercentage != 1 {
		t.Fatalf("expected full overlap, got %v", m.OverlapPercentage)
	}
}
