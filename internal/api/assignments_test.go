package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldops/rollcall/internal/matching"
	"github.com/shieldops/rollcall/internal/store"
)

func (ts *testServer) seedShift(certs ...store.RequiredCertification) *store.Shift {
	start := time.Now().Add(24 * time.Hour)
	shift := &store.Shift{
		ID:                     uuid.New(),
		ClientName:             "Bayview Plaza",
		StartTime:              start,
		EndTime:                start.Add(8 * time.Hour),
		RequiredCertifications: certs,
		Status:                 store.ShiftOpen,
	}
	ts.store.shifts[shift.ID] = shift
	return shift
}

func (ts *testServer) seedGuard(shift *store.Shift, certs ...string) *store.Guard {
	guard := &store.Guard{
		ID:                uuid.New(),
		Name:              "Dana Reyes",
		Certifications:    certs,
		HomeLatitude:      shift.SiteLatitude,
		HomeLongitude:     shift.SiteLongitude,
		PerformanceRating: 4.5,
		Active:            true,
	}
	ts.store.guards[guard.ID] = guard
	ts.store.availability[guard.ID] = []*store.GuardAvailability{{
		ID:       uuid.New(),
		GuardID:  guard.ID,
		Start:    shift.StartTime,
		End:      shift.EndTime,
		Type:     store.AvailabilityPreferred,
		Priority: 2,
	}}
	return guard
}

func TestEligibilityEndpoint(t *testing.T) {
	ts := newTestServer("")
	defer ts.Close()

	shift := ts.seedShift(store.RequiredCertification{Name: "Armed License", Critical: true})
	guard := ts.seedGuard(shift) // no certifications

	resp, err := ts.request(http.MethodGet,
		"/api/v1/shifts/"+shift.ID.String()+"/eligibility/"+guard.ID.String(), nil, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result matching.EligibilityResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Eligible)
	assert.Contains(t, result.Certification.CriticalMissing, "Armed License")
}

func TestEligibilityShiftNotFound(t *testing.T) {
	ts := newTestServer("")
	defer ts.Close()

	resp, err := ts.request(http.MethodGet,
		"/api/v1/shifts/"+uuid.NewString()+"/eligibility/"+uuid.NewString(), nil, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRankEndpoint(t *testing.T) {
	ts := newTestServer("")
	defer ts.Close()

	shift := ts.seedShift(store.RequiredCertification{Name: "Guard Card", Critical: true})
	qualified := ts.seedGuard(shift, "Guard Card")
	ts.seedGuard(shift) // unqualified

	resp, err := ts.request(http.MethodPost, "/api/v1/shifts/"+shift.ID.String()+"/rank", nil, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results []matching.MatchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 2)
	assert.Equal(t, qualified.ID.String(), results[0].GuardID)
	assert.Equal(t, 1, results[0].Ranking)
	assert.Equal(t, matching.ActionNotRecommended, results[1].Action)
}

func TestAssignmentLifecycle(t *testing.T) {
	ts := newTestServer("")
	defer ts.Close()

	shift := ts.seedShift()
	guard := ts.seedGuard(shift)

	body, _ := json.Marshal(CreateAssignmentRequest{
		ShiftID: shift.ID.String(),
		GuardID: guard.ID.String(),
	})
	resp, err := ts.request(http.MethodPost, "/api/v1/assignments", bytes.NewReader(body), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created store.ShiftAssignment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, store.AssignmentPending, created.Status)
	assert.Equal(t, store.MethodManual, created.Method)
	assert.Greater(t, created.MatchScore, 0.9, "manual assignment should record the computed match score")
	require.NotNil(t, created.RespondBy)

	// Guard accepts.
	respond, _ := json.Marshal(RespondRequest{GuardID: guard.ID.String(), Accepted: true})
	resp, err = ts.request(http.MethodPost,
		"/api/v1/assignments/"+created.ID.String()+"/respond", bytes.NewReader(respond), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var accepted store.ShiftAssignment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	assert.Equal(t, store.AssignmentAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	// Manager confirms.
	resp, err = ts.request(http.MethodPost,
		"/api/v1/assignments/"+created.ID.String()+"/confirm", nil, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var confirmed store.ShiftAssignment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&confirmed))
	assert.Equal(t, store.AssignmentConfirmed, confirmed.Status)
}

func TestConfirmBlockedWithoutOverride(t *testing.T) {
	ts := newTestServer("")
	defer ts.Close()

	shift := ts.seedShift(store.RequiredCertification{Name: "Armed License", Critical: true})
	guard := ts.seedGuard(shift) // missing the critical cert

	body, _ := json.Marshal(CreateAssignmentRequest{
		ShiftID: shift.ID.String(),
		GuardID: guard.ID.String(),
	})
	resp, err := ts.request(http.MethodPost, "/api/v1/assignments", bytes.NewReader(body), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created store.ShiftAssignment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	respond, _ := json.Marshal(RespondRequest{GuardID: guard.ID.String(), Accepted: true})
	resp, err = ts.request(http.MethodPost,
		"/api/v1/assignments/"+created.ID.String()+"/respond", bytes.NewReader(respond), nil)
	require.NoError(t, err)
	resp.Body.Close()

	// Confirmation without override metadata is rejected.
	resp, err = ts.request(http.MethodPost,
		"/api/v1/assignments/"+created.ID.String()+"/confirm", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// With a reason and approver it goes through.
	override, _ := json.Marshal(ConfirmRequest{
		OverrideReason: "client waived the requirement",
		OverrideBy:     "ops-manager",
	})
	resp, err = ts.request(http.MethodPost,
		"/api/v1/assignments/"+created.ID.String()+"/confirm", bytes.NewReader(override), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var confirmed store.ShiftAssignment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&confirmed))
	assert.True(t, confirmed.ConflictOverridden)
	assert.Equal(t, "ops-manager", confirmed.OverrideBy)
}

func TestRespondWrongGuard(t *testing.T) {
	ts := newTestServer("")
	defer ts.Close()

	shift := ts.seedShift()
	guard := ts.seedGuard(shift)

	body, _ := json.Marshal(CreateAssignmentRequest{
		ShiftID: shift.ID.String(),
		GuardID: guard.ID.String(),
	})
	resp, err := ts.request(http.MethodPost, "/api/v1/assignments", bytes.NewReader(body), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var created store.ShiftAssignment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	respond, _ := json.Marshal(RespondRequest{GuardID: uuid.NewString(), Accepted: true})
	resp, err = ts.request(http.MethodPost,
		"/api/v1/assignments/"+created.ID.String()+"/respond", bytes.NewReader(respond), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCancelAssignment(t *testing.T) {
	ts := newTestServer("")
	defer ts.Close()

	shift := ts.seedShift()
	guard := ts.seedGuard(shift)

	body, _ := json.Marshal(CreateAssignmentRequest{
		ShiftID: shift.ID.String(),
		GuardID: guard.ID.String(),
	})
	resp, err := ts.request(http.MethodPost, "/api/v1/assignments", bytes.NewReader(body), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var created store.ShiftAssignment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp, err = ts.request(http.MethodPost,
		"/api/v1/assignments/"+created.ID.String()+"/cancel", nil, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Cancelled is terminal.
	respond, _ := json.Marshal(RespondRequest{GuardID: guard.ID.String(), Accepted: true})
	resp, err = ts.request(http.MethodPost,
		"/api/v1/assignments/"+created.ID.String()+"/respond", bytes.NewReader(respond), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
