package assigner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shieldops/rollcall/internal/config"
	"github.com/shieldops/rollcall/internal/events"
	"github.com/shieldops/rollcall/internal/matching"
	"github.com/shieldops/rollcall/internal/store"
)

// Mock implementations

type mockStore struct {
	guards       map[uuid.UUID]*store.Guard
	shifts       map[uuid.UUID]*store.Shift
	availability map[uuid.UUID][]*store.GuardAvailability
	assignments  map[uuid.UUID]*store.ShiftAssignment
	assignEvents []*store.AssignmentEvent
}

func newMockStore() *mockStore {
	return &mockStore{
		guards:       make(map[uuid.UUID]*store.Guard),
		shifts:       make(map[uuid.UUID]*store.Shift),
		availability: make(map[uuid.UUID][]*store.GuardAvailability),
		assignments:  make(map[uuid.UUID]*store.ShiftAssignment),
	}
}

func (m *mockStore) CreateLead(_ context.Context, _ *store.Lead) error { return nil }
func (m *mockStore) GetLead(_ context.Context, _ uuid.UUID) (*store.Lead, error) {
	return nil, nil
}
func (m *mockStore) ListLeads(_ context.Context, _ store.LeadFilter) ([]*store.Lead, error) {
	return nil, nil
}
func (m *mockStore) UpdateLeadCachedFields(_ context.Context, _ uuid.UUID, _ *store.ScoreCalculation) error {
	return nil
}
func (m *mockStore) GetScoringConfig(_ context.Context, _ uuid.UUID) (*store.ScoringConfig, error) {
	return nil, nil
}
func (m *mockStore) GetActiveScoringConfig(_ context.Context) (*store.ScoringConfig, error) {
	return nil, nil
}
func (m *mockStore) ListScoringConfigs(_ context.Context) ([]*store.ScoringConfig, error) {
	return nil, nil
}
func (m *mockStore) CreateScoringConfig(_ context.Context, _ *store.ScoringConfig) error { return nil }
func (m *mockStore) ActivateScoringConfig(_ context.Context, _ uuid.UUID) error          { return nil }
func (m *mockStore) CreateScoreCalculation(_ context.Context, _ *store.ScoreCalculation) error {
	return nil
}
func (m *mockStore) GetLatestCalculation(_ context.Context, _ uuid.UUID) (*store.ScoreCalculation, error) {
	return nil, nil
}
func (m *mockStore) GetHistoricalOutcomes(_ context.Context, _, _ float64) ([]*store.OutcomeRecord, error) {
	return nil, nil
}
func (m *mockStore) GetGuard(_ context.Context, id uuid.UUID) (*store.Guard, error) {
	return m.guards[id], nil
}
func (m *mockStore) GetShift(_ context.Context, id uuid.UUID) (*store.Shift, error) {
	return m.shifts[id], nil
}
func (m *mockStore) ListOpenShifts(_ context.Context) ([]*store.Shift, error) {
	var out []*store.Shift
	for _, s := range m.shifts {
		if s.Status == store.ShiftOpen {
			out = append(out, s)
		}
	}
	return out, nil
}
func (m *mockStore) ListActiveGuards(_ context.Context) ([]*store.Guard, error) {
	var out []*store.Guard
	for _, g := range m.guards {
		if g.Active {
			out = append(out, g)
		}
	}
	return out, nil
}
func (m *mockStore) GetGuardAvailability(_ context.Context, guardID uuid.UUID) ([]*store.GuardAvailability, error) {
	return m.availability[guardID], nil
}
func (m *mockStore) GetActiveAssignmentsForGuard(_ context.Context, guardID uuid.UUID, _, _ time.Time) ([]*store.ShiftAssignment, error) {
	var out []*store.ShiftAssignment
	for _, a := range m.assignments {
		if a.GuardID != guardID {
			continue
		}
		switch a.Status {
		case store.AssignmentPending, store.AssignmentAccepted, store.AssignmentConfirmed:
			out = append(out, a)
		}
	}
	return out, nil
}
func (m *mockStore) CreateAssignment(_ context.Context, a *store.ShiftAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	m.assignments[a.ID] = a
	return nil
}
func (m *mockStore) GetAssignment(_ context.Context, id uuid.UUID) (*store.ShiftAssignment, error) {
	return m.assignments[id], nil
}
func (m *mockStore) UpdateAssignment(_ context.Context, a *store.ShiftAssignment) error {
	m.assignments[a.ID] = a
	return nil
}
func (m *mockStore) GetExpiredPendingAssignments(_ context.Context, now time.Time) ([]*store.ShiftAssignment, error) {
	var out []*store.ShiftAssignment
	for _, a := range m.assignments {
		if a.Status == store.AssignmentPending && a.RespondBy != nil && a.RespondBy.Before(now) {
			out = append(out, a)
		}
	}
	return out, nil
}
func (m *mockStore) CreateAssignmentEvent(_ context.Context, e *store.AssignmentEvent) error {
	e.ID = uuid.New()
	m.assignEvents = append(m.assignEvents, e)
	return nil
}
func (m *mockStore) GetStats(_ context.Context) (*store.Stats, error) {
	pending := 0
	for _, a := range m.assignments {
		if a.Status == store.AssignmentPending {
			pending++
		}
	}
	return &store.Stats{PendingAssignments: pending}, nil
}
func (m *mockStore) Close() error                                     { return nil }

type published struct {
	subject string
	data    interface{}
}

type mockEvents struct {
	published []published
}

func (m *mockEvents) Publish(subject string, data interface{}) error {
	m.published = append(m.published, published{subject, data})
	return nil
}
func (m *mockEvents) Subscribe(_ string, _ func(string, []byte)) error { return nil }
func (m *mockEvents) Close()                                           {}

func (m *mockEvents) hasSubject(subject string) bool {
	for _, p := range m.published {
		if p.subject == subject {
			return true
		}
	}
	return false
}

func testConfig() *config.Config {
	cfg, _ := config.Load("")
	cfg.Assignment.AutoAssignEnabled = true
	return cfg
}

func newTestAssigner(m *mockStore, ev *mockEvents) *Assigner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(m, ev, testConfig(), logger)
}

func seedShift(m *mockStore) *store.Shift {
	start := time.Now().Add(24 * time.Hour)
	shift := &store.Shift{
		ID:         uuid.New(),
		ClientName: "Bayview Plaza",
		StartTime:  start,
		EndTime:    start.Add(8 * time.Hour),
		RequiredCertifications: []store.RequiredCertification{
			{Name: "Guard Card", Critical: true},
		},
		Status: store.ShiftOpen,
	}
	m.shifts[shift.ID] = shift
	return shift
}

func seedGuard(m *mockStore, shift *store.Shift, rating float64, certs ...string) *store.Guard {
	guard := &store.Guard{
		ID:                uuid.New(),
		Name:              "Guard " + uuid.NewString()[:8],
		Certifications:    certs,
		HomeLatitude:      shift.SiteLatitude,
		HomeLongitude:     shift.SiteLongitude,
		PerformanceRating: rating,
		Active:            true,
	}
	m.guards[guard.ID] = guard
	m.availability[guard.ID] = []*store.GuardAvailability{{
		ID:       uuid.New(),
		GuardID:  guard.ID,
		Start:    shift.StartTime,
		End:      shift.EndTime,
		Type:     store.AvailabilityPreferred,
		Priority: 2,
	}}
	return guard
}

func TestExpirePending(t *testing.T) {
	m := newMockStore()
	ev := &mockEvents{}
	a := newTestAssigner(m, ev)

	past := time.Now().Add(-time.Hour)
	stale := &store.ShiftAssignment{
		ID:        uuid.New(),
		ShiftID:   uuid.New(),
		GuardID:   uuid.New(),
		Status:    store.AssignmentPending,
		RespondBy: &past,
	}
	m.assignments[stale.ID] = stale

	future := time.Now().Add(time.Hour)
	fresh := &store.ShiftAssignment{
		ID:        uuid.New(),
		ShiftID:   uuid.New(),
		GuardID:   uuid.New(),
		Status:    store.AssignmentPending,
		RespondBy: &future,
	}
	m.assignments[fresh.ID] = fresh

	a.expirePending(context.Background())

	if m.assignments[stale.ID].Status != store.AssignmentExpired {
		t.Fatalf("stale assignment not expired: %s", m.assignments[stale.ID].Status)
	}
	if m.assignments[fresh.ID].Status != store.AssignmentPending {
		t.Fatal("fresh assignment must stay pending")
	}
	if !ev.hasSubject(events.SubjectAssignmentExpired(stale.ID.String())) {
		t.Fatal("expiry event not published")
	}
}

func TestAutoAssignShiftTopCandidate(t *testing.T) {
	m := newMockStore()
	ev := &mockEvents{}
	a := newTestAssigner(m, ev)

	shift := seedShift(m)
	strong := seedGuard(m, shift, 5.0, "Guard Card")
	seedGuard(m, shift, 1.0) // missing the critical cert

	if err := a.autoAssignShift(context.Background(), shift); err != nil {
		t.Fatal(err)
	}

	if len(m.assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(m.assignments))
	}
	for _, created := range m.assignments {
		if created.GuardID != strong.ID {
			t.Fatal("assignment should go to the top-ranked guard")
		}
		if created.Method != store.MethodAuto {
			t.Fatalf("expected auto method, got %s", created.Method)
		}
		if created.Status != store.AssignmentPending {
			t.Fatalf("auto assignment starts pending, got %s", created.Status)
		}
		if created.RespondBy == nil {
			t.Fatal("auto assignment missing response deadline")
		}
	}
	if !ev.hasSubject(events.SubjectShiftAutoAssigned(shift.ID.String())) {
		t.Fatal("auto-assign event not published")
	}
}

func TestAutoAssignSkipsWeakCandidates(t *testing.T) {
	m := newMockStore()
	ev := &mockEvents{}
	a := newTestAssigner(m, ev)

	shift := seedShift(m)
	// Eligible on certs but only emergency-only coverage, so confidence stays low.
	guard := seedGuard(m, shift, 2.0, "Guard Card")
	m.availability[guard.ID][0].Type = store.AvailabilityEmergencyOnly

	if err := a.autoAssignShift(context.Background(), shift); err != nil {
		t.Fatal(err)
	}

	if len(m.assignments) != 0 {
		t.Fatal("weak candidates must be left to a manager")
	}
	if !ev.hasSubject(events.SubjectShiftUnfilled(shift.ID.String())) {
		t.Fatal("unfilled event not published")
	}
}

func TestPublishStats(t *testing.T) {
	m := newMockStore()
	ev := &mockEvents{}
	a := newTestAssigner(m, ev)

	future := time.Now().Add(time.Hour)
	pending := &store.ShiftAssignment{
		ID:        uuid.New(),
		ShiftID:   uuid.New(),
		GuardID:   uuid.New(),
		Status:    store.AssignmentPending,
		RespondBy: &future,
	}
	m.assignments[pending.ID] = pending

	a.publishStats(context.Background())

	if !ev.hasSubject(events.SubjectStats) {
		t.Fatal("stats event not published")
	}
	for _, p := range ev.published {
		if p.subject != events.SubjectStats {
			continue
		}
		stats, ok := p.data.(events.StatsEvent)
		if !ok {
			t.Fatalf("unexpected stats payload type: %T", p.data)
		}
		if stats.PendingAssignments != 1 {
			t.Fatalf("expected 1 pending assignment in snapshot, got %d", stats.PendingAssignments)
		}
	}
}

func TestApplyResponseAccept(t *testing.T) {
	m := newMockStore()
	ev := &mockEvents{}
	a := newTestAssigner(m, ev)

	guard := uuid.New()
	future := time.Now().Add(time.Hour)
	assignment := &store.ShiftAssignment{
		ID:        uuid.New(),
		ShiftID:   uuid.New(),
		GuardID:   guard,
		Status:    store.AssignmentPending,
		RespondBy: &future,
	}
	m.assignments[assignment.ID] = assignment

	err := a.ApplyResponse(context.Background(), events.AssignmentResponseEvent{
		AssignmentID: assignment.ID.String(),
		GuardID:      guard.String(),
		Accepted:     true,
	})
	if err != nil {
		t.Fatal(err)
	}

	updated := m.assignments[assignment.ID]
	if updated.Status != store.AssignmentAccepted {
		t.Fatalf("expected accepted, got %s", updated.Status)
	}
	if updated.RespondedAt == nil {
		t.Fatal("response must stamp RespondedAt")
	}
	if !ev.hasSubject(events.SubjectAssignmentAccepted(assignment.ID.String())) {
		t.Fatal("accepted event not published")
	}
}

func TestApplyResponseWrongGuardRejected(t *testing.T) {
	m := newMockStore()
	a := newTestAssigner(m, &mockEvents{})

	assignment := &store.ShiftAssignment{
		ID:      uuid.New(),
		ShiftID: uuid.New(),
		GuardID: uuid.New(),
		Status:  store.AssignmentPending,
	}
	m.assignments[assignment.ID] = assignment

	err := a.ApplyResponse(context.Background(), events.AssignmentResponseEvent{
		AssignmentID: assignment.ID.String(),
		GuardID:      uuid.NewString(),
		Accepted:     true,
	})
	if err == nil {
		t.Fatal("response from the wrong guard must be rejected")
	}
	if m.assignments[assignment.ID].Status != store.AssignmentPending {
		t.Fatal("assignment must be untouched after a rejected response")
	}
}

func TestApplyResponseDeclineRecordsReason(t *testing.T) {
	m := newMockStore()
	a := newTestAssigner(m, &mockEvents{})

	guard := uuid.New()
	assignment := &store.ShiftAssignment{
		ID:      uuid.New(),
		ShiftID: uuid.New(),
		GuardID: guard,
		Status:  store.AssignmentPending,
	}
	m.assignments[assignment.ID] = assignment

	err := a.ApplyResponse(context.Background(), events.AssignmentResponseEvent{
		AssignmentID: assignment.ID.String(),
		GuardID:      guard.String(),
		Accepted:     false,
		Reason:       "family conflict",
	})
	if err != nil {
		t.Fatal(err)
	}

	updated := m.assignments[assignment.ID]
	if updated.Status != store.AssignmentDeclined {
		t.Fatalf("expected declined, got %s", updated.Status)
	}
	if updated.ResponseNotes != "family conflict" {
		t.Fatalf("decline reason not recorded: %q", updated.ResponseNotes)
	}
}

func TestApplyResponseTerminalAssignment(t *testing.T) {
	m := newMockStore()
	a := newTestAssigner(m, &mockEvents{})

	guard := uuid.New()
	assignment := &store.ShiftAssignment{
		ID:      uuid.New(),
		ShiftID: uuid.New(),
		GuardID: guard,
		Status:  store.AssignmentExpired,
	}
	m.assignments[assignment.ID] = assignment

	err := a.ApplyResponse(context.Background(), events.AssignmentResponseEvent{
		AssignmentID: assignment.ID.String(),
		GuardID:      guard.String(),
		Accepted:     true,
	})
	var verr *matching.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
