package transition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

func inferenceInput(t *testing.T, text string) *InferenceInput {
	t.Helper()
	def := testDefinition(t)
	phase, ok := def.Phase("design")
	require.True(t, ok)
	return &InferenceInput{
		Definition:   def,
		CurrentPhase: "design",
		Candidates:   phase.Transitions,
		Text:         text,
	}
}

func TestLexicalStrategy_ExactTrigger(t *testing.T) {
	s := NewLexicalStrategy()

	tests := []struct {
		name string
		text string
		want string // trigger of the expected edge, "" = stay
	}{
		{name: "underscored trigger", text: "design_complete", want: "design_complete"},
		{name: "spaced trigger", text: "I think the design is design complete now", want: "design_complete"},
		{name: "mixed case", text: "DESIGN COMPLETE.", want: "design_complete"},
		{name: "no signal", text: "what error handling should we use?", want: ""},
		{name: "empty text", text: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Infer(context.Background(), inferenceInput(t, tt.text))
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Trigger)
		})
	}
}

func TestLexicalStrategy_TriggerBeatsDescription(t *testing.T) {
	def, err := workflow.Parse([]byte(`
name: forked
description: "Two outgoing edges with competing signals."
initial_state: work
states:
  work:
    description: "Working."
    transitions:
      - trigger: ship_it
        to: shipped
        transition_reason: "Shipping."
      - trigger: park_it
        to: parked
        transition_reason: "Parking."
  shipped:
    description: "The change has been shipped to production."
    transitions: []
  parked:
    description: "The change is parked for later."
    transitions: []
`))
	require.NoError(t, err)

	s := NewLexicalStrategy()
	phase, _ := def.Phase("work")

	// "parked" appears in a description, but "ship it" is a trigger hit.
	got := s.Infer(context.Background(), &InferenceInput{
		Definition:   def,
		CurrentPhase: "work",
		Candidates:   phase.Transitions,
		Text:         "we parked the docs question, now ship it",
	})
	require.NotNil(t, got)
	assert.Equal(t, "ship_it", got.Trigger)
}

func TestLexicalStrategy_TieStays(t *testing.T) {
	def, err := workflow.Parse([]byte(`
name: tied
description: "Two edges that score identically."
initial_state: fork
states:
  fork:
    description: "Deciding."
    transitions:
      - trigger: go_left
        to: left
        transition_reason: "Left."
      - trigger: go_right
        to: right
        transition_reason: "Right."
  left:
    description: "Took one side."
    transitions: []
  right:
    description: "Took one side."
    transitions: []
`))
	require.NoError(t, err)

	s := NewLexicalStrategy()
	phase, _ := def.Phase("fork")

	// "go" overlaps both triggers equally; ambiguity must not advance.
	got := s.Infer(context.Background(), &InferenceInput{
		Definition:   def,
		CurrentPhase: "fork",
		Candidates:   phase.Transitions,
		Text:         "go",
	})
	assert.Nil(t, got)
}

func TestLexicalStrategy_DescriptionOnlySignal(t *testing.T) {
	s := NewLexicalStrategy()

	// No trigger words, but the target phase description ("Development
	// is finished") overlaps.
	got := s.Infer(context.Background(), inferenceInput(t, "development looks finished to me"))
	require.NotNil(t, got)
	assert.Equal(t, "design_complete", got.Trigger)
}

func TestWordSet(t *testing.T) {
	set := wordSet("the design is complete, and THAT is that")
	assert.True(t, set["design"])
	assert.True(t, set["complete"])
	// Stopwords and single characters are dropped.
	assert.False(t, set["the"])
	assert.False(t, set["is"])
	assert.False(t, set["and"])
}
