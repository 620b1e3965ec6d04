package workflow

import (
	"regexp"
	"sort"
)

// namePattern constrains workflow, phase, trigger, and role names.
// Names are used as map keys, tool arguments, and plan section anchors.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// Validate checks the definition's structural invariants.
//
// Every transition target must resolve to a declared phase, the initial
// state must exist, and role tags are only allowed in collaborative
// workflows. The first violation found is returned with the offending
// phase and transition identified; phases are checked in sorted order so
// the reported violation is deterministic.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return newValidationError("", "", "", "name is required")
	}
	if !namePattern.MatchString(d.Name) {
		return newValidationError(d.Name, "", "", "name must match %s", namePattern.String())
	}
	if d.Description == "" {
		return newValidationError(d.Name, "", "", "description is required")
	}
	if len(d.States) == 0 {
		return newValidationError(d.Name, "", "", "at least one state is required")
	}
	if d.InitialState == "" {
		return newValidationError(d.Name, "", "", "initial_state is required")
	}
	if !d.HasPhase(d.InitialState) {
		return newValidationError(d.Name, "", "", "initial_state %q is not a declared state", d.InitialState)
	}

	if err := d.validateMetadata(); err != nil {
		return err
	}

	names := make([]string, 0, len(d.States))
	for name := range d.States {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := d.validatePhase(name, d.States[name]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Definition) validateMetadata() error {
	if d.Metadata == nil {
		return nil
	}
	for _, role := range d.Metadata.Roles {
		if !namePattern.MatchString(role) {
			return newValidationError(d.Name, "", "", "metadata role %q must match %s", role, namePattern.String())
		}
	}
	if len(d.Metadata.Roles) > 0 && !d.Metadata.Collaborative {
		return newValidationError(d.Name, "", "", "metadata declares roles but collaborative is false")
	}
	return nil
}

func (d *Definition) validatePhase(name string, phase *Phase) error {
	if !namePattern.MatchString(name) {
		return newValidationError(d.Name, name, "", "state name must match %s", namePattern.String())
	}
	if phase == nil {
		return newValidationError(d.Name, name, "", "state has no body")
	}
	if phase.Description == "" {
		return newValidationError(d.Name, name, "", "description is required")
	}
	if phase.Bootstrap && name != d.InitialState {
		return newValidationError(d.Name, name, "", "bootstrap is only allowed on the initial state")
	}

	seen := make(map[string]bool, len(phase.Transitions))
	for i := range phase.Transitions {
		t := &phase.Transitions[i]
		if err := d.validateTransition(name, t, seen); err != nil {
			return err
		}
	}
	return nil
}

func (d *Definition) validateTransition(phase string, t *Transition, seen map[string]bool) error {
	if t.Trigger == "" {
		return newValidationError(d.Name, phase, "", "transition is missing a trigger")
	}
	if !namePattern.MatchString(t.Trigger) {
		return newValidationError(d.Name, phase, t.Trigger, "trigger must match %s", namePattern.String())
	}
	if seen[t.Trigger] {
		return newValidationError(d.Name, phase, t.Trigger, "duplicate trigger in state")
	}
	seen[t.Trigger] = true

	if t.To == "" {
		return newValidationError(d.Name, phase, t.Trigger, "transition is missing a target state")
	}
	if !d.HasPhase(t.To) {
		return newValidationError(d.Name, phase, t.Trigger, "targets undeclared state %q", t.To)
	}
	if t.TransitionReason == "" {
		return newValidationError(d.Name, phase, t.Trigger, "transition_reason is required")
	}

	if t.Role != "" {
		if !d.IsCollaborative() {
			return newValidationError(d.Name, phase, t.Trigger, "role %q set on a non-collaborative workflow", t.Role)
		}
		if !d.HasRole(t.Role) {
			return newValidationError(d.Name, phase, t.Trigger, "role %q is not declared in metadata roles", t.Role)
		}
	}

	for _, p := range t.ReviewPerspectives {
		if p == "" {
			return newValidationError(d.Name, phase, t.Trigger, "review perspective cannot be empty")
		}
	}
	return nil
}
