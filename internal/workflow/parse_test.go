package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDefinition = `
name: tiny
description: "A minimal two-phase workflow."
initial_state: work
states:
  work:
    description: "Do the work."
    default_instructions: "Work on the task."
    transitions:
      - trigger: work_done
        to: done
        transition_reason: "Work is finished."
  done:
    description: "All done."
    default_instructions: "Nothing left to do."
    transitions: []
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(minimalDefinition))
	require.NoError(t, err)

	assert.Equal(t, "tiny", def.Name)
	assert.Equal(t, "work", def.InitialState)
	require.Len(t, def.States, 2)

	work, ok := def.Phase("work")
	require.True(t, ok)
	require.Len(t, work.Transitions, 1)
	assert.Equal(t, "work_done", work.Transitions[0].Trigger)
	assert.Equal(t, "done", work.Transitions[0].To)
	assert.Equal(t, "Work is finished.", work.Transitions[0].TransitionReason)
	assert.False(t, work.Transitions[0].RequiresReview())

	done, ok := def.Phase("done")
	require.True(t, ok)
	assert.Empty(t, done.Transitions)
}

func TestParse_TransitionExtras(t *testing.T) {
	def, err := Parse([]byte(`
name: extras
description: "Exercises optional transition fields."
initial_state: draft
metadata:
  collaborative: true
  roles: [author, reviewer]
states:
  draft:
    description: "Draft it."
    transitions:
      - trigger: submit
        to: approved
        transition_reason: "Draft submitted."
        role: author
        instructions: "Use these instead of the target defaults."
        additional_instructions: "And append this."
        review_perspectives: [architecture, security]
  approved:
    description: "Approved."
    transitions: []
`))
	require.NoError(t, err)

	draft, _ := def.Phase("draft")
	tr := draft.Transitions[0]
	assert.Equal(t, "author", tr.Role)
	assert.Equal(t, "Use these instead of the target defaults.", tr.Instructions)
	assert.Equal(t, "And append this.", tr.AdditionalInstructions)
	assert.Equal(t, []string{"architecture", "security"}, tr.ReviewPerspectives)
	assert.True(t, tr.RequiresReview())
	assert.True(t, def.IsCollaborative())
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing workflow definition")
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse([]byte(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalDefinition), 0o644))

	def, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tiny", def.Name)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading workflow file")
}

func TestLoadFile_IncludesPathInError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: broken"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
