// Package conversation persists per-conversation development state.
//
// A conversation is keyed by (project path, git branch); its identifier is
// derived deterministically from that pair, so the same checkout on the
// same branch always maps to the same record. Records are stored one file
// per conversation and replaced whole on every write.
package conversation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the durable record of one conversation.
//
// Written as a whole-record replace, never patched in place.
type State struct {
	ID             string           `json:"id"`
	ProjectPath    string           `json:"project_path"`
	Branch         string           `json:"branch"`
	WorkflowName   string           `json:"workflow_name"`
	CurrentPhase   string           `json:"current_phase"`
	PlanFilePath   string           `json:"plan_file_path"`
	RequireReviews bool             `json:"require_reviews"`
	GitCommit      *GitCommitConfig `json:"git_commit_config,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// GitCommitConfig is advisory commit guidance carried by a conversation.
// The engine never runs git; the configuration only shapes instruction
// text.
type GitCommitConfig struct {
	Enabled          bool   `json:"enabled"`
	CommitOnStep     bool   `json:"commit_on_step"`
	CommitOnPhase    bool   `json:"commit_on_phase"`
	CommitOnComplete bool   `json:"commit_on_complete"`
	InitialMessage   string `json:"initial_message,omitempty"`
}

// Commit behaviours accepted by ParseCommitBehaviour.
const (
	CommitBehaviourStep  = "step"
	CommitBehaviourPhase = "phase"
	CommitBehaviourEnd   = "end"
	CommitBehaviourNone  = "none"
)

// ParseCommitBehaviour maps a commit behaviour keyword to its
// configuration. Empty and "none" mean no commit guidance at all.
func ParseCommitBehaviour(s string) (*GitCommitConfig, error) {
	switch s {
	case "", CommitBehaviourNone:
		return nil, nil
	case CommitBehaviourStep:
		return &GitCommitConfig{Enabled: true, CommitOnStep: true}, nil
	case CommitBehaviourPhase:
		return &GitCommitConfig{Enabled: true, CommitOnPhase: true}, nil
	case CommitBehaviourEnd:
		return &GitCommitConfig{Enabled: true, CommitOnComplete: true}, nil
	default:
		return nil, fmt.Errorf("unknown commit behaviour %q (accepted: step, phase, end, none)", s)
	}
}

// ID derives the deterministic conversation identifier for a project path
// and branch pair. The NUL separator cannot appear in either component, so
// distinct pairs never collide.
func ID(projectPath, branch string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(projectPath+"\x00"+branch)).String()
}

// New creates a conversation state for a project/branch pair.
func New(projectPath, branch, workflowName, initialPhase, planFilePath string) *State {
	now := time.Now().UTC()
	return &State{
		ID:           ID(projectPath, branch),
		ProjectPath:  projectPath,
		Branch:       branch,
		WorkflowName: workflowName,
		CurrentPhase: initialPhase,
		PlanFilePath: planFilePath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Touch updates the modification timestamp.
func (s *State) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// complete reports whether the record carries every required field.
// Records failing this check are treated as corrupted.
func (s *State) complete() bool {
	return s.ID != "" &&
		s.ProjectPath != "" &&
		s.Branch != "" &&
		s.WorkflowName != "" &&
		s.CurrentPhase != ""
}
