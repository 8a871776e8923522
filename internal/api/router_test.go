package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"

	"github.com/shieldops/rollcall/internal/assigner"
	"github.com/shieldops/rollcall/internal/config"
	"github.com/shieldops/rollcall/internal/scoring"
	"github.com/shieldops/rollcall/internal/store"
)

// mockStore implements store.Store in memory for handler tests.
type mockStore struct {
	leads        map[uuid.UUID]*store.Lead
	configs      map[uuid.UUID]*store.ScoringConfig
	active       *store.ScoringConfig
	calcs        []*store.ScoreCalculation
	outcomes     []*store.OutcomeRecord
	guards       map[uuid.UUID]*store.Guard
	shifts       map[uuid.UUID]*store.Shift
	availability map[uuid.UUID][]*store.GuardAvailability
	assignments  map[uuid.UUID]*store.ShiftAssignment
	assignEvents []*store.AssignmentEvent
}

func newMockStore() *mockStore {
	return &mockStore{
		leads:        make(map[uuid.UUID]*store.Lead),
		configs:      make(map[uuid.UUID]*store.ScoringConfig),
		guards:       make(map[uuid.UUID]*store.Guard),
		shifts:       make(map[uuid.UUID]*store.Shift),
		availability: make(map[uuid.UUID][]*store.GuardAvailability),
		assignments:  make(map[uuid.UUID]*store.ShiftAssignment),
	}
}

func (m *mockStore) CreateLead(_ context.Context, l *store.Lead) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	m.leads[l.ID] = l
	return nil
}
func (m *mockStore) GetLead(_ context.Context, id uuid.UUID) (*store.Lead, error) {
	return m.leads[id], nil
}
func (m *mockStore) ListLeads(_ context.Context, filter store.LeadFilter) ([]*store.Lead, error) {
	var out []*store.Lead
	for _, l := range m.leads {
		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}
		out = append(out, l)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
func (m *mockStore) UpdateLeadCachedFields(_ context.Context, leadID uuid.UUID, calc *store.ScoreCalculation) error {
	if l, ok := m.leads[leadID]; ok {
		score := calc.Normalized
		l.QualificationScore = &score
	}
	return nil
}
func (m *mockStore) GetScoringConfig(_ context.Context, id uuid.UUID) (*store.ScoringConfig, error) {
	return m.configs[id], nil
}
func (m *mockStore) GetActiveScoringConfig(_ context.Context) (*store.ScoringConfig, error) {
	return m.active, nil
}
func (m *mockStore) ListScoringConfigs(_ context.Context) ([]*store.ScoringConfig, error) {
	var out []*store.ScoringConfig
	for _, c := range m.configs {
		out = append(out, c)
	}
	return out, nil
}
func (m *mockStore) CreateScoringConfig(_ context.Context, cfg *store.ScoringConfig) error {
	cfg.ID = uuid.New()
	m.configs[cfg.ID] = cfg
	return nil
}
func (m *mockStore) ActivateScoringConfig(_ context.Context, id uuid.UUID) error {
	cfg, ok := m.configs[id]
	if !ok {
		return store.NotFound("scoring config", id.String())
	}
	if m.active != nil {
		m.active.Active = false
	}
	cfg.Active = true
	m.active = cfg
	return nil
}
func (m *mockStore) CreateScoreCalculation(_ context.Context, calc *store.ScoreCalculation) error {
	calc.ID = uuid.New()
	m.calcs = append(m.calcs, calc)
	return nil
}
func (m *mockStore) GetLatestCalculation(_ context.Context, leadID uuid.UUID) (*store.ScoreCalculation, error) {
	for i := len(m.calcs) - 1; i >= 0; i-- {
		if m.calcs[i].LeadID == leadID {
			return m.calcs[i], nil
		}
	}
	return nil, nil
}
func (m *mockStore) GetHistoricalOutcomes(_ context.Context, minScore, maxScore float64) ([]*store.OutcomeRecord, error) {
	var out []*store.OutcomeRecord
	for _, o := range m.outcomes {
		if o.Score >= minScore && o.Score <= maxScore {
			out = append(out, o)
		}
	}
	return out, nil
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
	return &store.Stats{TotalLeads: len(m.leads)}, nil
}
func (m *mockStore) Close() error { return nil }

type testServer struct {
	store  *mockStore
	server *httptest.Server
}

func newTestServer(adminToken string) *testServer {
	m := newMockStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg, _ := config.Load("")

	estimator := scoring.NewEstimator(m, logger)
	calculator := scoring.NewCalculator(m, estimator, logger, cfg.Scoring.BatchChunkSize)
	asg := assigner.New(m, nil, cfg, logger)

	router := NewRouter(m, nil, calculator, estimator, asg, adminToken, logger)
	return &testServer{store: m, server: httptest.NewServer(router)}
}

func (ts *testServer) Close() { ts.server.Close() }

func (ts *testServer) request(method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequest(method, ts.server.URL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Recruiter-ID", "test-recruiter")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return http.DefaultClient.Do(req)
}

func (ts *testServer) seedActiveConfig() *store.ScoringConfig {
	cfg := scoring.DefaultConfig()
	cfg.ID = uuid.New()
	ts.store.configs[cfg.ID] = cfg
	ts.store.active = cfg
	return cfg
}

func (ts *testServer) seedLead() *store.Lead {
	lead := &store.Lead{
		Name:                  "Avery Cole",
		YearsExperience:       6,
		HasSecurityExperience: true,
		HasLicense:            true,
		HasTransportation:     true,
		DistanceMiles:         5,
		Status:                store.StatusLeadCaptured,
	}
	_ = ts.store.CreateLead(context.Background(), lead)
	return lead
}
