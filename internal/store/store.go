package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	StatusLeadCaptured         LeadStatus = "lead_captured"
	StatusContacted            LeadStatus = "contacted"
	StatusApplicationStarted   LeadStatus = "application_started"
	StatusApplicationSubmitted LeadStatus = "application_submitted"
	StatusInterviewScheduled   LeadStatus = "interview_scheduled"
	StatusInterviewCompleted   LeadStatus = "interview_completed"
	StatusOfferExtended        LeadStatus = "offer_extended"
	StatusHireCompleted        LeadStatus = "hire_completed"
	StatusRejected             LeadStatus = "rejected"
	StatusWithdrawn            LeadStatus = "withdrawn"
)

// PipelineStatuses are the statuses indicating the lead entered the
// application pipeline. Used by the estimator's cohort computation.
var PipelineStatuses = map[LeadStatus]bool{
	StatusApplicationStarted:   true,
	StatusApplicationSubmitted: true,
	StatusInterviewScheduled:   true,
	StatusInterviewCompleted:   true,
	StatusOfferExtended:        true,
	StatusHireCompleted:        true,
}

type Lead struct {
	ID    uuid.UUID `json:"lead_id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Phone string    `json:"phone,omitempty"`

	// Raw scoring attributes
	YearsExperience       float64 `json:"years_experience"`
	HasSecurityExperience bool    `json:"has_security_experience"`
	HasLicense            bool    `json:"has_license"`
	HasTransportation     bool    `json:"has_transportation"`
	WillingToRelocate     bool    `json:"willing_to_relocate"`
	SalaryExpectation     float64 `json:"salary_expectation"`
	CertificationCount    int     `json:"certification_count"`
	FullTime              bool    `json:"full_time"`
	PartTime              bool    `json:"part_time"`
	Weekends              bool    `json:"weekends"`
	Nights                bool    `json:"nights"`
	Source                string  `json:"source,omitempty"`
	Referred              bool    `json:"referred"`
	DistanceMiles         float64 `json:"distance_miles"`

	Status      LeadStatus `json:"status"`
	RecruiterID string     `json:"recruiter_id,omitempty"`

	// Cached derived fields — recomputed on demand, last write wins
	QualificationScore     *float64        `json:"qualification_score,omitempty"`
	ScoreBreakdown         json.RawMessage `json:"score_breakdown,omitempty"`
	ApplicationProbability *float64        `json:"application_probability,omitempty"`
	HireProbability        *float64        `json:"hire_probability,omitempty"`
	ScoredAt               *time.Time      `json:"scored_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LeadFilter struct {
	Status      *LeadStatus
	RecruiterID string
	Limit       int
	Offset      int
}

// --- Scoring configuration ---

type FactorCategory string

const (
	CategoryExperience         FactorCategory = "experience"
	CategoryLocation           FactorCategory = "location"
	CategoryAvailability       FactorCategory = "availability"
	CategoryCertifications     FactorCategory = "certifications"
	CategorySalaryExpectations FactorCategory = "salary_expectations"
	CategorySourceQuality      FactorCategory = "source_quality"
)

type ScoringConfig struct {
	ID                     uuid.UUID `json:"config_id"`
	Name                   string    `json:"name"`
	Version                int       `json:"version"`
	Active                 bool      `json:"active"`
	QualificationThreshold float64   `json:"qualification_threshold"`
	HighPriorityThreshold  float64   `json:"high_priority_threshold"`
	Factors                []Factor  `json:"factors"`
	CreatedAt              time.Time `json:"created_at"`
}

type Factor struct {
	ID       uuid.UUID      `json:"factor_id"`
	ConfigID uuid.UUID      `json:"config_id"`
	Name     string         `json:"name"`
	Category FactorCategory `json:"category"`
	Weight   float64        `json:"weight"`
	Rules    []Rule         `json:"rules"`
}

type Rule struct {
	ID          uuid.UUID       `json:"rule_id"`
	FactorID    uuid.UUID       `json:"factor_id"`
	Condition   json.RawMessage `json:"condition"`
	Points      float64         `json:"points"`
	Description string          `json:"description"`
}

// --- Score calculations ---

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type AppliedRule struct {
	RuleID uuid.UUID `json:"rule_id"`
	Points float64   `json:"points"`
	Reason string    `json:"reason"`
}

type FactorBreakdown struct {
	FactorID     uuid.UUID      `json:"factor_id"`
	FactorName   string         `json:"factor_name"`
	Category     FactorCategory `json:"category"`
	Score        float64        `json:"score"`
	MaxScore     float64        `json:"max_score"`
	Weight       float64        `json:"weight"`
	AppliedRules []AppliedRule  `json:"applied_rules"`
}

type ScoreCalculation struct {
	ID            uuid.UUID         `json:"calculation_id"`
	LeadID        uuid.UUID         `json:"lead_id"`
	ConfigID      uuid.UUID         `json:"config_id"`
	ConfigVersion int               `json:"config_version"`
	RawScore      float64           `json:"raw_score"`
	MaxPossible   float64           `json:"max_possible"`
	Normalized    float64           `json:"normalized_score"`
	Qualified     bool              `json:"qualified"`
	Priority      Priority          `json:"priority"`
	Breakdown     []FactorBreakdown `json:"breakdown"`

	ApplicationProbability float64 `json:"application_probability"`
	HireProbability        float64 `json:"hire_probability"`
	ProbabilitySource      string  `json:"probability_source"`

	CreatedAt time.Time `json:"created_at"`
}

// OutcomeRecord is a historical lead outcome used for cohort estimation.
type OutcomeRecord struct {
	LeadID uuid.UUID  `json:"lead_id"`
	Score  float64    `json:"score"`
	Status LeadStatus `json:"status"`
}

// --- Guards, shifts, assignments ---

type Guard struct {
	ID                uuid.UUID `json:"guard_id"`
	Name              string    `json:"name"`
	Certifications    []string  `json:"certifications"`
	HomeLatitude      float64   `json:"home_latitude"`
	HomeLongitude     float64   `json:"home_longitude"`
	PerformanceRating float64   `json:"performance_rating"`
	MaxWeeklyHours    int       `json:"max_weekly_hours"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

type RequiredCertification struct {
	Name     string `json:"name"`
	Critical bool   `json:"critical"`
}

type ShiftStatus string

const (
	ShiftOpen      ShiftStatus = "open"
	ShiftAssigned  ShiftStatus = "assigned"
	ShiftCompleted ShiftStatus = "completed"
	ShiftCancelled ShiftStatus = "cancelled"
)

type Shift struct {
	ID                     uuid.UUID               `json:"shift_id"`
	ClientName             string                  `json:"client_name"`
	SiteLatitude           float64                 `json:"site_latitude"`
	SiteLongitude          float64                 `json:"site_longitude"`
	StartTime              time.Time               `json:"start_time"`
	EndTime                time.Time               `json:"end_time"`
	RequiredCertifications []RequiredCertification `json:"required_certifications"`
	Priority               int                     `json:"priority"`
	HourlyRate             float64                 `json:"hourly_rate"`
	Status                 ShiftStatus             `json:"status"`
	CreatedAt              time.Time               `json:"created_at"`
}

type AvailabilityType string

const (
	AvailabilityAvailable     AvailabilityType = "available"
	AvailabilityUnavailable   AvailabilityType = "unavailable"
	AvailabilityPreferred     AvailabilityType = "preferred"
	AvailabilityEmergencyOnly AvailabilityType = "emergency_only"
)

type GuardAvailability struct {
	ID      uuid.UUID        `json:"availability_id"`
	GuardID uuid.UUID        `json:"guard_id"`
	Start   time.Time        `json:"start"`
	End     time.Time        `json:"end"`
	Type    AvailabilityType `json:"type"`
	// 1 = must work .. 5 = prefer not
	Priority int `json:"priority"`
}

type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentDeclined  AssignmentStatus = "declined"
	AssignmentExpired   AssignmentStatus = "expired"
	AssignmentCancelled AssignmentStatus = "cancelled"
	AssignmentConfirmed AssignmentStatus = "confirmed"
)

type AssignmentMethod string

const (
	MethodManual    AssignmentMethod = "manual"
	MethodSuggested AssignmentMethod = "suggested"
	MethodBatch     AssignmentMethod = "batch"
	MethodAuto      AssignmentMethod = "auto"
)

type ConflictType string

const (
	ConflictTimeOverlap          ConflictType = "time_overlap"
	ConflictCertificationMissing ConflictType = "certification_missing"
	ConflictAvailability         ConflictType = "availability_conflict"
)

type ConflictSeverity string

const (
	SeverityWarning  ConflictSeverity = "warning"
	SeverityError    ConflictSeverity = "error"
	SeverityCritical ConflictSeverity = "critical"
)

type AssignmentConflict struct {
	Type             ConflictType     `json:"type"`
	Severity         ConflictSeverity `json:"severity"`
	Detail           string           `json:"detail"`
	CanOverride      bool             `json:"can_override"`
	OverrideRequired bool             `json:"override_required"`
}

type ShiftAssignment struct {
	ID      uuid.UUID        `json:"assignment_id"`
	ShiftID uuid.UUID        `json:"shift_id"`
	GuardID uuid.UUID        `json:"guard_id"`
	Status  AssignmentStatus `json:"status"`
	Method  AssignmentMethod `json:"method"`

	MatchScore float64              `json:"match_score"`
	Conflicts  []AssignmentConflict `json:"conflicts,omitempty"`

	ConflictOverridden bool   `json:"conflict_overridden"`
	OverrideReason     string `json:"override_reason,omitempty"`
	OverrideBy         string `json:"override_by,omitempty"`

	ResponseNotes string     `json:"response_notes,omitempty"`
	RespondBy     *time.Time `json:"respond_by,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AssignmentEvent struct {
	ID           uuid.UUID              `json:"id"`
	AssignmentID uuid.UUID              `json:"assignment_id"`
	Event        string                 `json:"event"`
	Actor        string                 `json:"actor,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

type Stats struct {
	TotalLeads           int     `json:"total_leads"`
	QualifiedLeads       int     `json:"qualified_leads"`
	PendingAssignments   int     `json:"pending_assignments"`
	ConfirmedAssignments int     `json:"confirmed_assignments"`
	AvgNormalizedScore   float64 `json:"avg_normalized_score"`
}

type Store interface {
	// Leads
	CreateLead(ctx context.Context, lead *Lead) error
	GetLead(ctx context.Context, id uuid.UUID) (*Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	UpdateLeadCachedFields(ctx context.Context, leadID uuid.UUID, calc *ScoreCalculation) error

	// Scoring configuration
	GetScoringConfig(ctx context.Context, id uuid.UUID) (*ScoringConfig, error)
	GetActiveScoringConfig(ctx context.Context) (*ScoringConfig, error)
	ListScoringConfigs(ctx context.Context) ([]*ScoringConfig, error)
	CreateScoringConfig(ctx context.Context, cfg *ScoringConfig) error
	ActivateScoringConfig(ctx context.Context, id uuid.UUID) error

	// Calculations
	CreateScoreCalculation(ctx context.Context, calc *ScoreCalculation) error
	GetLatestCalculation(ctx context.Context, leadID uuid.UUID) (*ScoreCalculation, error)
	GetHistoricalOutcomes(ctx context.Context, minScore, maxScore float64) ([]*OutcomeRecord, error)

	// Guards and shifts
	GetGuard(ctx context.Context, id uuid.UUID) (*Guard, error)
	GetShift(ctx context.Context, id uuid.UUID) (*Shift, error)
	ListOpenShifts(ctx context.Context) ([]*Shift, error)
	ListActiveGuards(ctx context.Context) ([]*Guard, error)
	GetGuardAvailability(ctx context.Context, guardID uuid.UUID) ([]*GuardAvailability, error)
	GetActiveAssignmentsForGuard(ctx context.Context, guardID uuid.UUID, from, to time.Time) ([]*ShiftAssignment, error)

	// Assignments
	CreateAssignment(ctx context.Context, a *ShiftAssignment) error
	GetAssignment(ctx context.Context, id uuid.UUID) (*ShiftAssignment, error)
	UpdateAssignment(ctx context.Context, a *ShiftAssignment) error
	GetExpiredPendingAssignments(ctx context.Context, now time.Time) ([]*ShiftAssignment, error)
	CreateAssignmentEvent(ctx context.Context, e *AssignmentEvent) error

	GetStats(ctx context.Context) (*Stats, error)

	Close() error
}
