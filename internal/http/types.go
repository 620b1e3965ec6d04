package http

import "time"

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status       string              `json:"status"`
	Version      string              `json:"version,omitempty"`
	Project      string              `json:"project,omitempty"`
	Branch       string              `json:"branch,omitempty"`
	Workflows    int                 `json:"workflows"`
	Conversation *ConversationStatus `json:"conversation,omitempty"`
	Plan         *PlanStatus         `json:"plan,omitempty"`
}

// ConversationStatus describes the active conversation, when one exists
// for the bound project and branch.
type ConversationStatus struct {
	ID        string    `json:"id"`
	Workflow  string    `json:"workflow"`
	Phase     string    `json:"phase"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlanStatus summarizes checklist progress in the plan artifact.
type PlanStatus struct {
	Path     string `json:"path"`
	Sections int    `json:"sections"`
	Tasks    int    `json:"tasks"`
	Done     int    `json:"done"`
}
