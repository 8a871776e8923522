package api

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/shieldops/rollcall/internal/store"
)

// Export streams the prioritized lead list as CSV for recruiter spreadsheets.
func (h *LeadsHandler) Export(w http.ResponseWriter, r *http.Request) {
	var statusFilter *store.LeadStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.LeadStatus(s)
		statusFilter = &status
	}
	leads, err := h.calc.PrioritizedLeads(r.Context(), r.URL.Query().Get("recruiter_id"), statusFilter, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"lead_id", "name", "status", "normalized_score", "qualified",
		"priority", "application_probability", "hire_probability",
	})
	for _, pl := range leads {
		row := []string{
			pl.Lead.ID.String(),
			pl.Lead.Name,
			string(pl.Lead.Status),
			"", "", "", "", "",
		}
		if c := pl.Calculation; c != nil {
			row[3] = strconv.FormatFloat(c.Normalized, 'f', 2, 64)
			row[4] = strconv.FormatBool(c.Qualified)
			row[5] = string(c.Priority)
			row[6] = strconv.FormatFloat(c.ApplicationProbability, 'f', 2, 64)
			row[7] = strconv.FormatFloat(c.HireProbability, 'f', 2, 64)
		}
		_ = cw.Write(row)
	}
	cw.Flush()
}
