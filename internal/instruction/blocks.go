package instruction

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/vibed/internal/conversation"
	"github.com/fyrsmithlabs/vibed/internal/taskbackend"
)

// Backend guidance blocks. The two backends get disjoint wording on
// purpose: checklist bookkeeping lives in the plan file under the plan
// backend and in the tracker under the tracker backend, never both.
const (
	planGuidanceHeader    = "## Task Tracking (plan file)"
	trackerGuidanceHeader = "## Task Tracking (issue tracker)"
)

// backendGuidance renders the task-tracking block for the active
// backend only.
func backendGuidance(req *Request) string {
	if req.Backend.Kind == taskbackend.KindTracker {
		return trackerGuidance()
	}
	return planGuidance(req)
}

func planGuidance(req *Request) string {
	var b strings.Builder
	b.WriteString(planGuidanceHeader + "\n\n")
	b.WriteString("The plan file is the single source of truth for task state.\n")
	b.WriteString("Add new work as `- [ ]` checklist items in the current phase section and mark items complete (`- [x]`) as soon as they are done.\n")
	b.WriteString("Keep entrance criteria honest: check them off only when they are actually met.\n")
	if req.PlanGuidance != "" {
		b.WriteString("\n" + strings.TrimRight(req.PlanGuidance, "\n") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func trackerGuidance() string {
	var b strings.Builder
	b.WriteString(trackerGuidanceHeader + "\n\n")
	b.WriteString("Use the external issue tracker exclusively for task state; the plan file stays a narrative document of phases and decisions.\n")
	b.WriteString("Create a tracker task for each piece of work before starting it, move it through the tracker's own states, and close it there when the work lands.\n")
	b.WriteString("Do not duplicate tracker tasks into the plan file.\n")
	return strings.TrimRight(b.String(), "\n")
}

// projectContext names the paths and branch the caller is working in.
func projectContext(req *Request) string {
	var b strings.Builder
	b.WriteString("## Project Context\n\n")
	fmt.Fprintf(&b, "- Project: %s\n", req.ProjectPath)
	fmt.Fprintf(&b, "- Branch: %s\n", req.Branch)
	fmt.Fprintf(&b, "- Plan file: %s\n", req.PlanFilePath)
	fmt.Fprintf(&b, "- Workflow: %s (phase: %s)\n", req.WorkflowName, req.Phase)
	if req.Role != "" {
		fmt.Fprintf(&b, "- Role: %s\n", req.Role)
	}
	return strings.TrimRight(b.String(), "\n")
}

// reminders is the closing block; its wording is backend-specific so
// neither backend's bookkeeping verbs leak into the other's output.
func reminders(kind taskbackend.Kind) string {
	var b strings.Builder
	b.WriteString("## Important Reminders\n\n")
	b.WriteString("- Work in the current phase only; ask before jumping ahead.\n")
	b.WriteString("- Surface problems to the user instead of silently working around them.\n")
	if kind == taskbackend.KindTracker {
		b.WriteString("- Keep the issue tracker current; stale tracker state misleads everyone relying on it.\n")
	} else {
		b.WriteString("- Keep the plan file current; mark items complete as you finish them, not in batches.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// reviewGateBlock explains a blocked transition and how to clear it.
func reviewGateBlock(perspectives []string, target string) string {
	var b strings.Builder
	b.WriteString("## Reviews Required\n\n")
	fmt.Fprintf(&b, "The move to %q is waiting on reviews from the following perspectives:\n\n", target)
	for _, p := range perspectives {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	b.WriteString("\nConduct each review, record the findings, then confirm with `proceed_to_phase` and `reviews_completed: true`. The conversation stays in its current phase until then.")
	return b.String()
}

// commitGuidance renders the advisory git block for conversations that
// configured commit behaviour. Purely text; the engine never runs git.
func commitGuidance(cfg *conversation.GitCommitConfig) string {
	if cfg == nil || !cfg.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Commit Guidance\n\n")
	switch {
	case cfg.CommitOnStep:
		b.WriteString("- Commit after each completed step with a focused message.\n")
	case cfg.CommitOnPhase:
		b.WriteString("- Commit once per completed phase, summarizing the phase's work.\n")
	case cfg.CommitOnComplete:
		b.WriteString("- Commit once when development completes.\n")
	default:
		b.WriteString("- Commit at natural boundaries; keep each commit coherent.\n")
	}
	if cfg.InitialMessage != "" {
		fmt.Fprintf(&b, "- First commit message: %s\n", cfg.InitialMessage)
	}
	return strings.TrimRight(b.String(), "\n")
}
