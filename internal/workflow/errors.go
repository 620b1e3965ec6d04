package workflow

import (
	"fmt"
	"strings"
)

// ValidationError reports a structural problem in a workflow definition or
// project configuration. The message is surfaced verbatim to the caller and
// the operation is never retried.
type ValidationError struct {
	Workflow   string // workflow name, if known
	Phase      string // offending phase, if any
	Transition string // offending transition trigger, if any
	Detail     string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Workflow != "" {
		fmt.Fprintf(&b, "workflow %q: ", e.Workflow)
	}
	if e.Phase != "" {
		fmt.Fprintf(&b, "phase %q: ", e.Phase)
	}
	if e.Transition != "" {
		fmt.Fprintf(&b, "transition %q: ", e.Transition)
	}
	b.WriteString(e.Detail)
	return b.String()
}

// newValidationError builds a ValidationError with a formatted detail.
func newValidationError(workflow, phase, transition, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Workflow:   workflow,
		Phase:      phase,
		Transition: transition,
		Detail:     fmt.Sprintf(format, args...),
	}
}
