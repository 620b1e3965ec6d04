package plan

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

const (
	titleHeading     = "# Development Plan"
	entranceHeading  = "### Entrance Criteria"
	tasksHeading     = "### Tasks"
	decisionsHeading = "## Key Decisions"

	noTasksNote    = "_Add tasks as work is identified._"
	decisionsNote  = "_Record decisions and their rationale as they are made._"
	noCriteriaNote = "_None. This is where development starts._"
)

// renderInitial produces a fresh plan document: the title block, the
// current phase's section, and the shared decisions log. Sections for
// other phases appear later, on first entry.
func renderInitial(def *workflow.Definition, info ArtifactInfo) string {
	var b strings.Builder

	b.WriteString(titleHeading + "\n\n")
	fmt.Fprintf(&b, "- **Workflow:** %s\n", def.Name)
	fmt.Fprintf(&b, "- **Branch:** %s\n", info.Branch)
	fmt.Fprintf(&b, "- **Project:** %s\n", info.ProjectPath)
	b.WriteString("\n")

	writeSection(&b, def, info.Phase)

	b.WriteString(decisionsHeading + "\n\n")
	b.WriteString(decisionsNote + "\n")

	return b.String()
}

// appendSection inserts the phase's section into an existing document,
// just before the shared decisions log so the log stays last. Existing
// content is never touched.
func appendSection(content string, def *workflow.Definition, phase string) string {
	var section strings.Builder
	writeSection(&section, def, phase)

	idx := strings.Index(content, decisionsHeading)
	if idx < 0 {
		// The decisions log was removed by hand; append at the end.
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		return content + "\n" + strings.TrimSuffix(section.String(), "\n")
	}
	return content[:idx] + section.String() + content[idx:]
}

// writeSection renders one phase section: heading, entrance criteria
// derived from the edges into the phase, and an empty task checklist.
func writeSection(b *strings.Builder, def *workflow.Definition, phase string) {
	b.WriteString(sectionHeading(phase) + "\n\n")

	b.WriteString(entranceHeading + "\n\n")
	criteria := entranceCriteria(def, phase)
	if len(criteria) == 0 {
		b.WriteString(noCriteriaNote + "\n")
	} else {
		for _, c := range criteria {
			fmt.Fprintf(b, "- [ ] %s\n", c)
		}
	}
	b.WriteString("\n")

	b.WriteString(tasksHeading + "\n\n")
	b.WriteString(noTasksNote + "\n\n")
}

// entranceCriteria derives a phase's entrance checklist from the
// transition reasons of the edges leading into it, in graph order.
func entranceCriteria(def *workflow.Definition, phase string) []string {
	var criteria []string
	seen := make(map[string]bool)

	for _, name := range def.PhaseNames() {
		for _, t := range def.States[name].Transitions {
			if t.To != phase || t.TransitionReason == "" || seen[t.TransitionReason] {
				continue
			}
			seen[t.TransitionReason] = true
			criteria = append(criteria, t.TransitionReason)
		}
	}
	return criteria
}

// sectionHeading renders the `## `-style heading for a phase.
func sectionHeading(phase string) string {
	return "## " + titleCase(phase)
}

// titleCase maps a phase slug to a heading: "code_review" to
// "Code Review".
func titleCase(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
