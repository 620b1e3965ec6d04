// Package workflow loads, validates, and caches declarative development
// workflow definitions.
//
// A workflow is a state machine over development phases: nodes are phases,
// edges are triggered transitions. Definitions come from the embedded
// built-in catalog or from project-local override files under
// .vibed/workflows/, with overrides taking priority.
package workflow

import (
	"sort"
)

// Source identifies where a definition was loaded from.
type Source string

const (
	// SourceBuiltin marks definitions from the embedded catalog.
	SourceBuiltin Source = "builtin"
	// SourceShared marks definitions from a daemon-configured search
	// directory shared by all projects.
	SourceShared Source = "shared"
	// SourceProject marks definitions from a project override file.
	SourceProject Source = "project"
)

// Definition is an immutable workflow graph.
//
// Definitions are validated on load and shared across requests; callers
// must not mutate them.
type Definition struct {
	Name         string            `koanf:"name"`
	Description  string            `koanf:"description"`
	InitialState string            `koanf:"initial_state"`
	States       map[string]*Phase `koanf:"states"`
	Metadata     *Metadata         `koanf:"metadata"`

	// Source is set by the store, not by the definition file.
	Source Source `koanf:"-"`
}

// Metadata carries optional collaboration settings.
type Metadata struct {
	Collaborative bool     `koanf:"collaborative"`
	Roles         []string `koanf:"roles"`
}

// Phase is a named step in a workflow. Terminal phases have no transitions.
type Phase struct {
	Description         string       `koanf:"description"`
	DefaultInstructions string       `koanf:"default_instructions"`
	Bootstrap           bool         `koanf:"bootstrap"`
	Transitions         []Transition `koanf:"transitions"`
}

// Transition is a directed edge between phases.
type Transition struct {
	Trigger                string   `koanf:"trigger"`
	To                     string   `koanf:"to"`
	TransitionReason       string   `koanf:"transition_reason"`
	Instructions           string   `koanf:"instructions"`
	AdditionalInstructions string   `koanf:"additional_instructions"`
	Role                   string   `koanf:"role"`
	ReviewPerspectives     []string `koanf:"review_perspectives"`
}

// RequiresReview reports whether this edge carries a review gate.
func (t *Transition) RequiresReview() bool {
	return len(t.ReviewPerspectives) > 0
}

// Summary describes one catalog entry for listings.
type Summary struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	InitialState string   `json:"initial_state"`
	Phases       []string `json:"phases"`
	Source       Source   `json:"source"`
}

// Phase returns the named phase, or false if it is not declared.
func (d *Definition) Phase(name string) (*Phase, bool) {
	p, ok := d.States[name]
	return p, ok
}

// HasPhase reports whether the named phase is declared.
func (d *Definition) HasPhase(name string) bool {
	_, ok := d.States[name]
	return ok
}

// InitialPhase returns the phase named by initial_state.
//
// Always present on a validated definition.
func (d *Definition) InitialPhase() *Phase {
	return d.States[d.InitialState]
}

// PhaseNames returns all declared phase names, sorted.
func (d *Definition) PhaseNames() []string {
	names := make([]string, 0, len(d.States))
	for name := range d.States {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsCollaborative reports whether the workflow declares collaboration roles.
func (d *Definition) IsCollaborative() bool {
	return d.Metadata != nil && d.Metadata.Collaborative
}

// HasRole reports whether the given role is declared in metadata.
//
// A workflow with no declared role list accepts any role.
func (d *Definition) HasRole(role string) bool {
	if d.Metadata == nil || len(d.Metadata.Roles) == 0 {
		return true
	}
	for _, r := range d.Metadata.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Summary returns the listing entry for this definition.
func (d *Definition) Summary() Summary {
	return Summary{
		Name:         d.Name,
		Description:  d.Description,
		InitialState: d.InitialState,
		Phases:       d.PhaseNames(),
		Source:       d.Source,
	}
}
