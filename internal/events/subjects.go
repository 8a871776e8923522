package events

const (
	SubjectAssignmentResponse = "guard.assignment.*.response"
	SubjectStats              = "guard.rollcall.stats"

	StreamName   = "GUARD_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectLeadScored(leadID string) string    { return "guard.lead." + leadID + ".scored" }
func SubjectLeadQualified(leadID string) string { return "guard.lead." + leadID + ".qualified" }
func SubjectBatchScored() string                { return "guard.lead.batch.scored" }

func SubjectAssignmentCreated(id string) string   { return "guard.assignment." + id + ".created" }
func SubjectAssignmentAccepted(id string) string  { return "guard.assignment." + id + ".accepted" }
func SubjectAssignmentDeclined(id string) string  { return "guard.assignment." + id + ".declined" }
func SubjectAssignmentExpired(id string) string   { return "guard.assignment." + id + ".expired" }
func SubjectAssignmentConfirmed(id string) string { return "guard.assignment." + id + ".confirmed" }
func SubjectAssignmentCancelled(id string) string { return "guard.assignment." + id + ".cancelled" }

func SubjectShiftAutoAssigned(shiftID string) string { return "guard.shift." + shiftID + ".auto_assigned" }
func SubjectShiftUnfilled(shiftID string) string     { return "guard.shift." + shiftID + ".unfilled" }
