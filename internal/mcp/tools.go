package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/conversation"
	"github.com/fyrsmithlabs/vibed/internal/hooks"
	"github.com/fyrsmithlabs/vibed/internal/orchestrator"
)

// Tool names as advertised to clients.
const (
	toolWhatsNext        = "whats_next"
	toolProceedToPhase   = "proceed_to_phase"
	toolStartDevelopment = "start_development"
	toolResumeWorkflow   = "resume_workflow"
	toolResetDevelopment = "reset_development"
	toolListWorkflows    = "list_workflows"
	toolSetupProjectDocs = "setup_project_docs"
)

// registerTools registers the workflow tool surface with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: toolWhatsNext,
		Description: "Determine which workflow phase should be active and get instructions " +
			"for working in it. Call this at the start of every assistant turn, passing " +
			"whatever conversational context is available.",
	}, s.handleWhatsNext)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: toolProceedToPhase,
		Description: "Explicitly move the conversation to a named workflow phase. Use when " +
			"the user asks to move on, go back, or skip ahead; prefer whats_next otherwise.",
	}, s.handleProceedToPhase)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: toolStartDevelopment,
		Description: "Start (or restart) a structured development workflow for this project " +
			"on the current git branch.",
	}, s.handleStartDevelopment)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: toolResumeWorkflow,
		Description: "Recap the active workflow conversation after losing context: current " +
			"phase, plan progress, and instructions to continue.",
	}, s.handleResumeWorkflow)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: toolResetDevelopment,
		Description: "Delete the conversation state and plan artifact for the current " +
			"branch. Destructive; requires confirm set to true.",
	}, s.handleResetDevelopment)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: toolListWorkflows,
		Description: "List the workflow definitions available to this project, including " +
			"project-local, shared, and built-in ones.",
	}, s.handleListWorkflows)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: toolSetupProjectDocs,
		Description: "Create or link the architecture, requirements, and design documents " +
			"referenced by workflow instructions.",
	}, s.handleSetupProjectDocs)
}

// ===== SHARED RESULT SHAPES =====

type phaseOutput struct {
	ConversationID      string   `json:"conversation_id" jsonschema:"Stable conversation identifier for this project and branch"`
	Workflow            string   `json:"workflow" jsonschema:"Active workflow definition name"`
	Phase               string   `json:"phase" jsonschema:"Phase the caller should work in"`
	Instructions        string   `json:"instructions" jsonschema:"Composed instructions for the phase"`
	PlanGuidance        string   `json:"plan_guidance,omitempty" jsonschema:"How to keep the plan file section for this phase current"`
	PlanFilePath        string   `json:"plan_file_path" jsonschema:"Absolute path of the plan artifact"`
	TransitionReason    string   `json:"transition_reason" jsonschema:"Why this phase was selected"`
	IsModeledTransition bool     `json:"is_modeled_transition" jsonschema:"False when the move is not an edge of the workflow graph"`
	PendingReviews      []string `json:"pending_reviews,omitempty" jsonschema:"Review perspectives still owed before the phase change persists"`
	Backend             string   `json:"backend" jsonschema:"Task tracking surface shaping the instructions (plan or tracker)"`
}

func phaseOutputFrom(resp *orchestrator.PhaseResponse) phaseOutput {
	return phaseOutput{
		ConversationID:      resp.ConversationID,
		Workflow:            resp.Workflow,
		Phase:               resp.Phase,
		Instructions:        resp.Instructions,
		PlanGuidance:        resp.PlanGuidance,
		PlanFilePath:        resp.PlanFilePath,
		TransitionReason:    resp.TransitionReason,
		IsModeledTransition: resp.IsModeledTransition,
		PendingReviews:      resp.PendingReviews,
		Backend:             string(resp.Backend),
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// toolError wraps a caller-fixable failure as a tool-result error so the
// assistant sees the message verbatim instead of a protocol failure.
func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

// callerFixable reports whether the failure is the caller's to correct.
func callerFixable(err error) bool {
	return errors.Is(err, orchestrator.ErrConversationNotFound) ||
		errors.Is(err, orchestrator.ErrResetNotConfirmed) ||
		hooks.IsValidation(err) ||
		isValidation(err)
}

// failure maps an operation failure onto the MCP surface: caller-fixable
// failures come back as readable tool results, everything else is logged
// and returned as a protocol error.
func (s *Server) failure(ctx context.Context, tool string, err error) (*mcp.CallToolResult, error) {
	if callerFixable(err) {
		return toolError(err), nil
	}
	s.log.Error(ctx, "tool call failed", zap.String("tool", tool), zap.Error(err))
	return nil, err
}

// ===== WHATS_NEXT =====

type whatsNextInput struct {
	Context             string   `json:"context,omitempty" jsonschema:"Free-form description of where the work stands"`
	UserInput           string   `json:"user_input,omitempty" jsonschema:"The user's latest message, verbatim"`
	ConversationSummary string   `json:"conversation_summary,omitempty" jsonschema:"Summary of the conversation so far"`
	RecentMessages      []string `json:"recent_messages,omitempty" jsonschema:"Recent conversation messages, newest last"`
	Role                string   `json:"role,omitempty" jsonschema:"Caller's role in a collaborative workflow"`
}

func (s *Server) handleWhatsNext(ctx context.Context, req *mcp.CallToolRequest, args whatsNextInput) (*mcp.CallToolResult, phaseOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, toolWhatsNext)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, toolWhatsNext)
		s.metrics.RecordInvocation(ctx, toolWhatsNext, time.Since(start), toolErr)
	}()

	resp, err := s.orch.WhatsNext(ctx, &orchestrator.WhatsNextRequest{
		Context:             args.Context,
		UserInput:           args.UserInput,
		ConversationSummary: args.ConversationSummary,
		RecentMessages:      args.RecentMessages,
		Role:                args.Role,
	})
	if err != nil {
		toolErr = err
		res, rerr := s.failure(ctx, toolWhatsNext, err)
		return res, phaseOutput{}, rerr
	}

	return textResult(resp.Instructions), phaseOutputFrom(resp), nil
}

// ===== PROCEED_TO_PHASE =====

type proceedToPhaseInput struct {
	TargetPhase      string `json:"target_phase" jsonschema:"required,Phase to move the conversation to"`
	Reason           string `json:"reason,omitempty" jsonschema:"Why the move is happening"`
	Role             string `json:"role,omitempty" jsonschema:"Caller's role in a collaborative workflow"`
	ReviewsCompleted bool   `json:"reviews_completed,omitempty" jsonschema:"Confirm the previously reported review perspectives were addressed"`
}

func (s *Server) handleProceedToPhase(ctx context.Context, req *mcp.CallToolRequest, args proceedToPhaseInput) (*mcp.CallToolResult, phaseOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, toolProceedToPhase)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, toolProceedToPhase)
		s.metrics.RecordInvocation(ctx, toolProceedToPhase, time.Since(start), toolErr)
	}()

	resp, err := s.orch.ProceedToPhase(ctx, &orchestrator.ProceedRequest{
		TargetPhase:      args.TargetPhase,
		Reason:           args.Reason,
		Role:             args.Role,
		ReviewsCompleted: args.ReviewsCompleted,
	})
	if err != nil {
		toolErr = err
		res, rerr := s.failure(ctx, toolProceedToPhase, err)
		return res, phaseOutput{}, rerr
	}

	return textResult(resp.Instructions), phaseOutputFrom(resp), nil
}

// ===== START_DEVELOPMENT =====

type startDevelopmentInput struct {
	Workflow        string `json:"workflow,omitempty" jsonschema:"Workflow definition name (default: waterfall)"`
	CommitBehaviour string `json:"commit_behaviour,omitempty" jsonschema:"Commit guidance cadence: step, phase, end, or none (default: none)"`
	RequireReviews  bool   `json:"require_reviews,omitempty" jsonschema:"Enforce review perspectives on gated transitions"`
	Role            string `json:"role,omitempty" jsonschema:"Caller's role in a collaborative workflow"`
}

func (s *Server) handleStartDevelopment(ctx context.Context, req *mcp.CallToolRequest, args startDevelopmentInput) (*mcp.CallToolResult, phaseOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, toolStartDevelopment)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, toolStartDevelopment)
		s.metrics.RecordInvocation(ctx, toolStartDevelopment, time.Since(start), toolErr)
	}()

	gitCommit, err := conversation.ParseCommitBehaviour(args.CommitBehaviour)
	if err != nil {
		toolErr = err
		return toolError(err), phaseOutput{}, nil
	}

	resp, err := s.orch.StartDevelopment(ctx, &orchestrator.StartRequest{
		Workflow:       args.Workflow,
		Role:           args.Role,
		RequireReviews: args.RequireReviews,
		GitCommit:      gitCommit,
	})
	if err != nil {
		toolErr = err
		res, rerr := s.failure(ctx, toolStartDevelopment, err)
		return res, phaseOutput{}, rerr
	}

	return textResult(resp.Instructions), phaseOutputFrom(resp), nil
}

// ===== RESUME_WORKFLOW =====

type resumeWorkflowInput struct {
	IncludePlanSummary bool `json:"include_plan_summary,omitempty" jsonschema:"Include the full plan document in the response"`
}

type sectionProgress struct {
	Heading string `json:"heading" jsonschema:"Plan section heading"`
	Phase   string `json:"phase,omitempty" jsonschema:"Workflow phase the section maps to, empty for free-form sections"`
	Total   int    `json:"total" jsonschema:"Checklist items in the section"`
	Checked int    `json:"checked" jsonschema:"Items marked done"`
}

type resumeWorkflowOutput struct {
	ConversationID string            `json:"conversation_id" jsonschema:"Stable conversation identifier for this project and branch"`
	Workflow       string            `json:"workflow" jsonschema:"Active workflow definition name"`
	Description    string            `json:"description" jsonschema:"What the workflow is for"`
	Phase          string            `json:"phase" jsonschema:"Persisted current phase"`
	PlanFilePath   string            `json:"plan_file_path" jsonschema:"Absolute path of the plan artifact"`
	RequireReviews bool              `json:"require_reviews" jsonschema:"Whether review gating is enforced for this conversation"`
	Progress       []sectionProgress `json:"progress" jsonschema:"Per-section checklist progress, in document order"`
	PlanContent    string            `json:"plan_content,omitempty" jsonschema:"Full plan document, when requested"`
	Instructions   string            `json:"instructions" jsonschema:"Instructions for continuing in the current phase"`
}

func (s *Server) handleResumeWorkflow(ctx context.Context, req *mcp.CallToolRequest, args resumeWorkflowInput) (*mcp.CallToolResult, resumeWorkflowOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, toolResumeWorkflow)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, toolResumeWorkflow)
		s.metrics.RecordInvocation(ctx, toolResumeWorkflow, time.Since(start), toolErr)
	}()

	resp, err := s.orch.ResumeWorkflow(ctx, &orchestrator.ResumeRequest{
		IncludePlanSummary: args.IncludePlanSummary,
	})
	if err != nil {
		toolErr = err
		res, rerr := s.failure(ctx, toolResumeWorkflow, err)
		return res, resumeWorkflowOutput{}, rerr
	}

	out := resumeWorkflowOutput{
		ConversationID: resp.ConversationID,
		Workflow:       resp.Workflow,
		Description:    resp.Description,
		Phase:          resp.Phase,
		PlanFilePath:   resp.PlanFilePath,
		RequireReviews: resp.RequireReviews,
		Progress:       make([]sectionProgress, 0, len(resp.Progress)),
		PlanContent:    resp.PlanContent,
		Instructions:   resp.Instructions,
	}
	for _, p := range resp.Progress {
		out.Progress = append(out.Progress, sectionProgress{
			Heading: p.Heading,
			Phase:   p.Phase,
			Total:   p.Total,
			Checked: p.Checked,
		})
	}

	return textResult(resp.Instructions), out, nil
}

// ===== RESET_DEVELOPMENT =====

type resetDevelopmentInput struct {
	Confirm bool `json:"confirm" jsonschema:"required,Must be true; the reset refuses to run without it"`
}

type resetDevelopmentOutput struct {
	ConversationID string `json:"conversation_id" jsonschema:"Conversation that was reset"`
	StateDeleted   bool   `json:"state_deleted" jsonschema:"True when conversation state existed and was removed"`
	PlanDeleted    bool   `json:"plan_deleted" jsonschema:"True when the plan artifact existed and was removed"`
}

func (s *Server) handleResetDevelopment(ctx context.Context, req *mcp.CallToolRequest, args resetDevelopmentInput) (*mcp.CallToolResult, resetDevelopmentOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, toolResetDevelopment)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, toolResetDevelopment)
		s.metrics.RecordInvocation(ctx, toolResetDevelopment, time.Since(start), toolErr)
	}()

	resp, err := s.orch.ResetDevelopment(ctx, &orchestrator.ResetRequest{
		Confirm: args.Confirm,
	})
	if err != nil {
		toolErr = err
		res, rerr := s.failure(ctx, toolResetDevelopment, err)
		return res, resetDevelopmentOutput{}, rerr
	}

	out := resetDevelopmentOutput{
		ConversationID: resp.ConversationID,
		StateDeleted:   resp.StateDeleted,
		PlanDeleted:    resp.PlanDeleted,
	}
	text := fmt.Sprintf("Development reset (state deleted: %t, plan deleted: %t). Call start_development to begin again.",
		out.StateDeleted, out.PlanDeleted)

	return textResult(text), out, nil
}

// ===== LIST_WORKFLOWS =====

type listWorkflowsInput struct{}

type workflowSummary struct {
	Name         string   `json:"name" jsonschema:"Workflow name"`
	Description  string   `json:"description" jsonschema:"What the workflow is for"`
	InitialState string   `json:"initial_state" jsonschema:"Starting phase"`
	Phases       []string `json:"phases" jsonschema:"Declared phases, sorted"`
	Source       string   `json:"source" jsonschema:"Where the definition came from: project, shared, or builtin"`
}

type listWorkflowsOutput struct {
	Workflows []workflowSummary `json:"workflows" jsonschema:"Available workflow definitions"`
	Count     int               `json:"count" jsonschema:"Number of workflows returned"`
}

func (s *Server) handleListWorkflows(ctx context.Context, req *mcp.CallToolRequest, args listWorkflowsInput) (*mcp.CallToolResult, listWorkflowsOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, toolListWorkflows)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, toolListWorkflows)
		s.metrics.RecordInvocation(ctx, toolListWorkflows, time.Since(start), toolErr)
	}()

	summaries, err := s.orch.ListWorkflows(ctx)
	if err != nil {
		toolErr = err
		res, rerr := s.failure(ctx, toolListWorkflows, err)
		return res, listWorkflowsOutput{}, rerr
	}

	out := listWorkflowsOutput{
		Workflows: make([]workflowSummary, 0, len(summaries)),
		Count:     len(summaries),
	}
	names := make([]string, 0, len(summaries))
	for _, sum := range summaries {
		out.Workflows = append(out.Workflows, workflowSummary{
			Name:         sum.Name,
			Description:  sum.Description,
			InitialState: sum.InitialState,
			Phases:       sum.Phases,
			Source:       string(sum.Source),
		})
		names = append(names, sum.Name)
	}
	text := fmt.Sprintf("%d workflows available: %s", out.Count, strings.Join(names, ", "))

	return textResult(text), out, nil
}

// ===== SETUP_PROJECT_DOCS =====

type setupProjectDocsInput struct {
	Architecture string `json:"architecture,omitempty" jsonschema:"Path to an existing architecture document to link, empty to create from the starter template"`
	Requirements string `json:"requirements,omitempty" jsonschema:"Path to an existing requirements document to link, empty to create from the starter template"`
	Design       string `json:"design,omitempty" jsonschema:"Path to an existing design document to link, empty to create from the starter template"`
}

type projectDoc struct {
	Path   string `json:"path" jsonschema:"Absolute document path"`
	Action string `json:"action" jsonschema:"What happened: created, linked, or exists"`
}

type setupProjectDocsOutput struct {
	Architecture projectDoc `json:"architecture"`
	Requirements projectDoc `json:"requirements"`
	Design       projectDoc `json:"design"`
}

func (s *Server) handleSetupProjectDocs(ctx context.Context, req *mcp.CallToolRequest, args setupProjectDocsInput) (*mcp.CallToolResult, setupProjectDocsOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, toolSetupProjectDocs)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, toolSetupProjectDocs)
		s.metrics.RecordInvocation(ctx, toolSetupProjectDocs, time.Since(start), toolErr)
	}()

	res, err := s.orch.SetupProjectDocs(ctx, &orchestrator.SetupDocsRequest{
		Architecture: args.Architecture,
		Requirements: args.Requirements,
		Design:       args.Design,
	})
	if err != nil {
		toolErr = err
		tres, rerr := s.failure(ctx, toolSetupProjectDocs, err)
		return tres, setupProjectDocsOutput{}, rerr
	}

	out := setupProjectDocsOutput{
		Architecture: projectDoc{Path: res.Architecture.Path, Action: string(res.Architecture.Action)},
		Requirements: projectDoc{Path: res.Requirements.Path, Action: string(res.Requirements.Action)},
		Design:       projectDoc{Path: res.Design.Path, Action: string(res.Design.Action)},
	}
	text := fmt.Sprintf("Project documents ready: architecture %s, requirements %s, design %s.",
		out.Architecture.Action, out.Requirements.Action, out.Design.Action)

	return textResult(text), out, nil
}
