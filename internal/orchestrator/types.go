package orchestrator

import (
	"github.com/fyrsmithlabs/vibed/internal/conversation"
	"github.com/fyrsmithlabs/vibed/internal/plan"
	"github.com/fyrsmithlabs/vibed/internal/taskbackend"
)

// StartRequest begins (or restarts) development on the current branch.
type StartRequest struct {
	// Workflow names the definition to run. Empty selects the default.
	Workflow string

	// Role is the caller's collaboration role for role-tagged workflows.
	Role string

	// RequireReviews enables review gating for the new conversation.
	RequireReviews bool

	// GitCommit configures advisory commit guidance, nil for none.
	GitCommit *conversation.GitCommitConfig
}

// WhatsNextRequest asks the oracle which phase should be active, based
// on the caller's self-reported conversational context.
type WhatsNextRequest struct {
	Context             string
	UserInput           string
	ConversationSummary string
	RecentMessages      []string
	Role                string
}

// ProceedRequest names an explicit target phase.
type ProceedRequest struct {
	TargetPhase string

	// Reason is the caller's stated motivation for the move. Logged,
	// not interpreted.
	Reason string

	Role string

	// ReviewsCompleted confirms a previously reported review gate.
	ReviewsCompleted bool
}

// ResumeRequest recaps a conversation after the caller lost context.
type ResumeRequest struct {
	// IncludePlanSummary adds the full plan document to the response.
	IncludePlanSummary bool
}

// ResetRequest deletes conversation state and the plan artifact.
type ResetRequest struct {
	// Confirm must be true; reset refuses to run without it.
	Confirm bool
}

// SetupDocsRequest selects a source per project document: empty for the
// embedded starter template, or a path to an existing file to link.
type SetupDocsRequest struct {
	Architecture string
	Requirements string
	Design       string
}

// PhaseResponse is the shared result of the phase-deciding operations.
type PhaseResponse struct {
	ConversationID string `json:"conversation_id"`
	Workflow       string `json:"workflow"`

	// Phase the caller should work in. While a review gate is pending
	// this is the proposed phase, not the persisted one.
	Phase string `json:"phase"`

	Instructions string `json:"instructions"`
	PlanGuidance string `json:"plan_guidance,omitempty"`
	PlanFilePath string `json:"plan_file_path"`

	TransitionReason    string `json:"transition_reason"`
	IsModeledTransition bool   `json:"is_modeled_transition"`

	// PendingReviews lists perspectives still owed before the phase
	// change persists. Empty unless a review gate blocked.
	PendingReviews []string `json:"pending_reviews,omitempty"`

	// Backend reports which task-tracking surface shaped the
	// instruction text.
	Backend taskbackend.Kind `json:"backend"`
}

// ResumeResponse recaps a conversation's standing state.
type ResumeResponse struct {
	ConversationID string `json:"conversation_id"`
	Workflow       string `json:"workflow"`
	Description    string `json:"description"`
	Phase          string `json:"phase"`
	PlanFilePath   string `json:"plan_file_path"`
	RequireReviews bool   `json:"require_reviews"`

	// Progress is the per-section checklist snapshot of the plan
	// document, in document order.
	Progress []plan.SectionProgress `json:"progress"`

	// PlanContent is the full plan document when requested.
	PlanContent string `json:"plan_content,omitempty"`

	Instructions string `json:"instructions"`
}

// ResetResponse acknowledges a reset.
type ResetResponse struct {
	ConversationID string `json:"conversation_id"`
	StateDeleted   bool   `json:"state_deleted"`
	PlanDeleted    bool   `json:"plan_deleted"`
}
