package transition

import (
	"context"
	"strings"

	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

// InferenceInput carries everything a strategy may consult when matching
// conversational text against candidate transitions.
type InferenceInput struct {
	Definition   *workflow.Definition
	CurrentPhase string

	// Candidates are the role-visible transitions out of the current
	// phase, in declaration order.
	Candidates []workflow.Transition

	// Text is the combined caller-supplied conversational signal.
	Text string
}

// InferenceStrategy picks the transition best matching conversational
// text, or nil to stay in the current phase.
//
// Strategies are advisory: the engine applies role filtering and review
// gating regardless of which strategy runs, so no strategy can bypass
// the structural guarantees.
type InferenceStrategy interface {
	Infer(ctx context.Context, in *InferenceInput) *workflow.Transition
}

// Match score tiers. An exact trigger hit beats any number of partial
// word hits; partial trigger hits beat description hits.
const (
	scoreTriggerExact = 100
	scoreTriggerWord  = 10
	scoreDescription  = 1
)

// LexicalStrategy scores candidates by word overlap between the caller's
// text and each transition's trigger and target-phase description.
//
// Triggers are the strongest signal: they are the vocabulary the
// instructions teach the assistant to use. Scoring is deliberately
// simple; when nothing clearly dominates the right answer is to stay
// put, not to guess.
type LexicalStrategy struct{}

// NewLexicalStrategy creates the default inference strategy.
func NewLexicalStrategy() *LexicalStrategy {
	return &LexicalStrategy{}
}

// Infer implements InferenceStrategy.
func (s *LexicalStrategy) Infer(_ context.Context, in *InferenceInput) *workflow.Transition {
	text := normalize(in.Text)
	if text == "" {
		return nil
	}
	textWords := wordSet(text)

	best := -1
	bestScore := 0
	tie := false

	for i := range in.Candidates {
		score := s.score(&in.Candidates[i], in.Definition, text, textWords)
		switch {
		case score > bestScore:
			best, bestScore, tie = i, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}

	// Zero signal or an ambiguous tie keeps the current phase.
	if best < 0 || tie {
		return nil
	}
	return &in.Candidates[best]
}

func (s *LexicalStrategy) score(t *workflow.Transition, def *workflow.Definition, text string, textWords map[string]bool) int {
	score := 0

	trigger := normalize(t.Trigger)
	if strings.Contains(text, trigger) {
		score += scoreTriggerExact
	}
	for word := range wordSet(trigger) {
		if textWords[word] {
			score += scoreTriggerWord
		}
	}

	if target, ok := def.Phase(t.To); ok {
		for word := range wordSet(normalize(target.Description)) {
			if textWords[word] {
				score += scoreDescription
			}
		}
	}

	return score
}

// normalize lowercases text and flattens trigger-style underscores so
// "requirements_complete" matches "requirements complete".
func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", " "))
}

// stopwords are too common to carry a transition signal.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"be": true, "for": true, "in": true, "is": true, "it": true,
	"of": true, "on": true, "or": true, "that": true, "the": true,
	"this": true, "to": true, "with": true,
}

// wordSet splits text into distinct lowercase words, dropping stopwords
// and single characters.
func wordSet(s string) map[string]bool {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) > 1 && !stopwords[w] {
			set[w] = true
		}
	}
	return set
}
