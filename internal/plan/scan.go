package plan

import (
	"strings"
)

// SectionProgress summarizes the checklist state of one `##` section.
type SectionProgress struct {
	// Heading is the section heading text without the `## ` marker.
	Heading string

	// Phase is the workflow phase the heading maps back to, empty for
	// sections that are not phase sections (the decisions log, or
	// headings the user added by hand).
	Phase string

	Total   int // checklist items in the section
	Checked int // items marked done
}

// Done reports whether every checklist item in the section is checked.
func (p *SectionProgress) Done() bool {
	return p.Total > 0 && p.Checked == p.Total
}

// hasSection reports whether the document already carries a section for
// the phase. Heading matching is tolerant of hand-edits to case and
// separators: "## Code Review" matches the phase "code_review".
func hasSection(content, phase string) bool {
	want := headingKey(phase)
	for _, line := range strings.Split(content, "\n") {
		if heading, ok := parseHeading(line); ok && headingKey(heading) == want {
			return true
		}
	}
	return false
}

// Snapshot scans the document and reports per-section checklist
// progress, in document order. phases maps headings back to phase names;
// nil leaves Phase unset on every section.
func Snapshot(content string, phases []string) []SectionProgress {
	byKey := make(map[string]string, len(phases))
	for _, p := range phases {
		byKey[headingKey(p)] = p
	}

	var sections []SectionProgress
	current := -1

	for _, line := range strings.Split(content, "\n") {
		if heading, ok := parseHeading(line); ok {
			sections = append(sections, SectionProgress{
				Heading: heading,
				Phase:   byKey[headingKey(heading)],
			})
			current++
			continue
		}
		if current < 0 {
			continue
		}

		switch classifyChecklistItem(line) {
		case itemUnchecked:
			sections[current].Total++
		case itemChecked:
			sections[current].Total++
			sections[current].Checked++
		}
	}
	return sections
}

// parseHeading extracts the text of a `## ` heading. Deeper headings
// (###) belong to the enclosing section and do not match.
func parseHeading(line string) (string, bool) {
	trimmed := strings.TrimRight(line, " \t\r")
	if !strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "###") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, "## ")), true
}

type checklistItem int

const (
	itemNone checklistItem = iota
	itemUnchecked
	itemChecked
)

// classifyChecklistItem recognizes `- [ ]` and `- [x]` markers at any
// indentation.
func classifyChecklistItem(line string) checklistItem {
	trimmed := strings.TrimLeft(line, " \t")
	switch {
	case strings.HasPrefix(trimmed, "- [ ]"):
		return itemUnchecked
	case strings.HasPrefix(trimmed, "- [x]"), strings.HasPrefix(trimmed, "- [X]"):
		return itemChecked
	default:
		return itemNone
	}
}

// headingKey normalizes a heading or phase name for matching: lowercase
// with separator runs collapsed to single spaces.
func headingKey(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '\t'
	})
	return strings.Join(words, " ")
}
