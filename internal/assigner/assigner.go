package assigner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shieldops/rollcall/internal/config"
	"github.com/shieldops/rollcall/internal/events"
	"github.com/shieldops/rollcall/internal/matching"
	"github.com/shieldops/rollcall/internal/store"
)

// Assigner runs the background assignment machinery: expiring stale offers,
// auto-assigning open shifts when enabled, and applying guard responses
// arriving over the event bus.
type Assigner struct {
	store  store.Store
	events events.Client
	ranker *matching.Ranker
	cfg    *config.Config
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, ev events.Client, cfg *config.Config, logger *slog.Logger) *Assigner {
	weights := matching.DefaultMatchWeights()
	if cfg.MatchWeightsOverridden() {
		weights = matching.MatchWeights{
			Certification: cfg.Matching.Certification,
			Availability:  cfg.Matching.Availability,
			Proximity:     cfg.Matching.Proximity,
			Performance:   cfg.Matching.Performance,
			Preference:    cfg.Matching.Preference,
		}
	}
	if err := weights.Validate(); err != nil {
		logger.Warn("invalid match weights in config, using defaults", "error", err)
		weights = matching.DefaultMatchWeights()
	}

	return &Assigner{
		store:  s,
		events: ev,
		ranker: matching.NewRanker(weights),
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

func (a *Assigner) Ranker() *matching.Ranker {
	return a.ranker
}

func (a *Assigner) Start(ctx context.Context) {
	a.wg.Add(1)
	go a.expiryLoop(ctx)

	if a.cfg.Assignment.AutoAssignEnabled {
		a.wg.Add(1)
		go a.autoAssignLoop(ctx)
	}

	if a.events != nil {
		a.wg.Add(1)
		go a.statsLoop(ctx)

		if err := a.subscribeResponses(ctx); err != nil {
			a.logger.Error("failed to subscribe to assignment responses", "error", err)
		}
	}
}

func (a *Assigner) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}

func (a *Assigner) expiryLoop(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.expirePending(ctx)
		}
	}
}

// expirePending moves pending assignments past their response deadline to
// expired so the shift can be re-offered.
func (a *Assigner) expirePending(ctx context.Context) {
	stale, err := a.store.GetExpiredPendingAssignments(ctx, time.Now())
	if err != nil {
		a.logger.Error("failed to load expired pending assignments", "error", err)
		return
	}

	for _, assignment := range stale {
		if err := matching.Transition(assignment, store.AssignmentExpired, nil); err != nil {
			a.logger.Warn("skipping expiry", "assignment_id", assignment.ID, "error", err)
			continue
		}
		if err := a.store.UpdateAssignment(ctx, assignment); err != nil {
			a.logger.Error("failed to expire assignment", "assignment_id", assignment.ID, "error", err)
			continue
		}
		_ = a.store.CreateAssignmentEvent(ctx, &store.AssignmentEvent{
			AssignmentID: assignment.ID,
			Event:        "expired",
			Actor:        "system",
		})
		if a.events != nil {
			_ = a.events.Publish(events.SubjectAssignmentExpired(assignment.ID.String()), events.AssignmentStatusEvent{
				AssignmentID: assignment.ID.String(),
				ShiftID:      assignment.ShiftID.String(),
				GuardID:      assignment.GuardID.String(),
				Status:       string(store.AssignmentExpired),
			})
		}
		a.logger.Info("assignment expired", "assignment_id", assignment.ID, "guard_id", assignment.GuardID)
	}
}

const statsInterval = time.Minute

func (a *Assigner) statsLoop(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.publishStats(ctx)
		}
	}
}

// publishStats broadcasts a pipeline snapshot for dashboards listening on
// the event bus.
func (a *Assigner) publishStats(ctx context.Context) {
	if a.events == nil {
		return
	}
	stats, err := a.store.GetStats(ctx)
	if err != nil {
		a.logger.Warn("failed to load stats", "error", err)
		return
	}
	_ = a.events.Publish(events.SubjectStats, events.StatsEvent{
		TotalLeads:           stats.TotalLeads,
		QualifiedLeads:       stats.QualifiedLeads,
		PendingAssignments:   stats.PendingAssignments,
		ConfirmedAssignments: stats.ConfirmedAssignments,
		AvgNormalizedScore:   stats.AvgNormalizedScore,
		Timestamp:            time.Now(),
	})
}
