package events

import "time"

type LeadScoredEvent struct {
	LeadID        string  `json:"lead_id"`
	Score         float64 `json:"score"`
	Qualified     bool    `json:"qualified"`
	Priority      string  `json:"priority"`
	ConfigVersion int     `json:"config_version"`
}

type BatchScoredEvent struct {
	Requested int      `json:"requested"`
	Scored    int      `json:"scored"`
	Errors    []string `json:"errors,omitempty"`
}

type AssignmentCreatedEvent struct {
	AssignmentID string    `json:"assignment_id"`
	ShiftID      string    `json:"shift_id"`
	GuardID      string    `json:"guard_id"`
	Method       string    `json:"method"`
	MatchScore   float64   `json:"match_score,omitempty"`
	RespondBy    time.Time `json:"respond_by"`
}

type AssignmentResponseEvent struct {
	AssignmentID string `json:"assignment_id"`
	GuardID      string `json:"guard_id"`
	Accepted     bool   `json:"accepted"`
	Reason       string `json:"reason,omitempty"`
}

type AssignmentStatusEvent struct {
	AssignmentID string `json:"assignment_id"`
	ShiftID      string `json:"shift_id"`
	GuardID      string `json:"guard_id"`
	Status       string `json:"status"`
}

type ShiftAutoAssignedEvent struct {
	ShiftID      string  `json:"shift_id"`
	AssignmentID string  `json:"assignment_id"`
	GuardID      string  `json:"guard_id"`
	MatchScore   float64 `json:"match_score"`
}

type ShiftUnfilledEvent struct {
	ShiftID    string `json:"shift_id"`
	Candidates int    `json:"candidates"`
	Reason     string `json:"reason"`
}

type StatsEvent struct {
	TotalLeads           int       `json:"total_leads"`
	QualifiedLeads       int       `json:"qualified_leads"`
	PendingAssignments   int       `json:"pending_assignments"`
	ConfirmedAssignments int       `json:"confirmed_assignments"`
	AvgNormalizedScore   float64   `json:"avg_normalized_score"`
	Timestamp            time.Time `json:"timestamp"`
}
