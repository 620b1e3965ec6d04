package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotDoc = `# Development Plan

- **Workflow:** staged

## Explore

### Entrance Criteria

- [ ] Implementation surfaced unknowns.

### Tasks

- [x] Read the transport layer
- [X] Read the codec
- [ ] Read the storage layer

## Implement

### Tasks

_Add tasks as work is identified._

## Key Decisions

- Decided to keep the wire format.
`

func TestSnapshot(t *testing.T) {
	sections := Snapshot(snapshotDoc, []string{"explore", "implement", "done"})
	require.Len(t, sections, 3)

	explore := sections[0]
	assert.Equal(t, "Explore", explore.Heading)
	assert.Equal(t, "explore", explore.Phase)
	assert.Equal(t, 4, explore.Total)
	assert.Equal(t, 2, explore.Checked)
	assert.False(t, explore.Done())

	implement := sections[1]
	assert.Equal(t, "implement", implement.Phase)
	assert.Zero(t, implement.Total)
	assert.False(t, implement.Done(), "empty sections are not done")

	decisions := sections[2]
	assert.Equal(t, "Key Decisions", decisions.Heading)
	assert.Empty(t, decisions.Phase, "non-phase sections carry no phase")
}

func TestSnapshot_AllChecked(t *testing.T) {
	doc := "## Explore\n\n- [x] one\n- [x] two\n"
	sections := Snapshot(doc, []string{"explore"})
	require.Len(t, sections, 1)
	assert.True(t, sections[0].Done())
}

func TestSnapshot_IndentedItems(t *testing.T) {
	doc := "## Explore\n\n- [ ] top\n  - [x] nested\n"
	sections := Snapshot(doc, nil)
	require.Len(t, sections, 1)
	assert.Equal(t, 2, sections[0].Total)
	assert.Equal(t, 1, sections[0].Checked)
}

func TestHasSection(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		phase string
		want  bool
	}{
		{name: "exact", doc: "## Explore\n", phase: "explore", want: true},
		{name: "case tolerant", doc: "## EXPLORE\n", phase: "explore", want: true},
		{name: "separator tolerant", doc: "## Code Review\n", phase: "code_review", want: true},
		{name: "missing", doc: "## Explore\n", phase: "implement", want: false},
		{name: "deeper heading does not match", doc: "### Explore\n", phase: "explore", want: false},
		{name: "trailing whitespace", doc: "## Explore  \n", phase: "explore", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasSection(tt.doc, tt.phase))
		})
	}
}

func TestParseHeading(t *testing.T) {
	heading, ok := parseHeading("## Key Decisions")
	require.True(t, ok)
	assert.Equal(t, "Key Decisions", heading)

	_, ok = parseHeading("# Development Plan")
	assert.False(t, ok)
	_, ok = parseHeading("### Tasks")
	assert.False(t, ok)
	_, ok = parseHeading("plain text")
	assert.False(t, ok)
}
