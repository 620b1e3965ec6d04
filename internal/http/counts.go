package http

import (
	"os"

	"github.com/fyrsmithlabs/vibed/internal/plan"
)

// PlanCounts reads the plan artifact at path and totals its checklist
// progress for the status endpoint.
//
// Returns nil if the file does not exist or cannot be read: a missing
// plan is normal before start_development has run, and the status
// endpoint must never fail because of it.
func PlanCounts(path string, phases []string) *PlanStatus {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	st := &PlanStatus{Path: path}
	for _, sec := range plan.Snapshot(string(data), phases) {
		st.Sections++
		st.Tasks += sec.Total
		st.Done += sec.Checked
	}
	return st
}
