// Package orchestrator executes the per-request control flow behind
// every tool call: resolve the workflow graph, decide the phase, keep
// the plan artifact in step, compose instructions, persist state.
//
// The service is bound to one project checkout; the git branch is
// detected per request, so switching branches mid-session transparently
// switches conversations.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/conversation"
	"github.com/fyrsmithlabs/vibed/internal/docs"
	"github.com/fyrsmithlabs/vibed/internal/hooks"
	"github.com/fyrsmithlabs/vibed/internal/instruction"
	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/plan"
	"github.com/fyrsmithlabs/vibed/internal/project"
	"github.com/fyrsmithlabs/vibed/internal/taskbackend"
	"github.com/fyrsmithlabs/vibed/internal/transition"
	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

const instrumentationName = "github.com/fyrsmithlabs/vibed/internal/orchestrator"

// DefaultWorkflow is used when StartRequest.Workflow is empty.
const DefaultWorkflow = "waterfall"

// Caller-fixable sentinel errors.
var (
	// ErrConversationNotFound means no development conversation exists
	// for the current project and branch.
	ErrConversationNotFound = errors.New("no development conversation for this project and branch; call start_development first")

	// ErrResetNotConfirmed means reset_development was called without
	// confirmation. Nothing is deleted.
	ErrResetNotConfirmed = errors.New("reset_development requires confirm: true; nothing was deleted")
)

// Service executes the development orchestration operations. Each
// operation backs exactly one MCP tool.
type Service interface {
	// StartDevelopment creates or replaces the conversation for the
	// current branch and returns the first working phase.
	StartDevelopment(ctx context.Context, req *StartRequest) (*PhaseResponse, error)

	// WhatsNext decides the active phase from conversational context.
	WhatsNext(ctx context.Context, req *WhatsNextRequest) (*PhaseResponse, error)

	// ProceedToPhase performs an explicit transition, subject to review
	// gating.
	ProceedToPhase(ctx context.Context, req *ProceedRequest) (*PhaseResponse, error)

	// ResumeWorkflow recaps the conversation after the caller lost its
	// context window.
	ResumeWorkflow(ctx context.Context, req *ResumeRequest) (*ResumeResponse, error)

	// ResetDevelopment deletes conversation state and the plan
	// artifact. The only deletion path in the system.
	ResetDevelopment(ctx context.Context, req *ResetRequest) (*ResetResponse, error)

	// ListWorkflows lists the definitions available to this project.
	ListWorkflows(ctx context.Context) ([]workflow.Summary, error)

	// SetupProjectDocs materializes the project document set.
	SetupProjectDocs(ctx context.Context, req *SetupDocsRequest) (*docs.Result, error)
}

// service implements Service.
type service struct {
	projectPath   string
	workflows     *workflow.Store
	conversations *conversation.FileStore
	engine        *transition.Engine
	plans         *plan.Manager
	instructions  *instruction.Generator
	backend       *taskbackend.Adapter
	hooks         *hooks.Registry

	log    *logging.Logger
	tracer trace.Tracer
}

// NewService creates the orchestrator for one project checkout.
func NewService(
	projectPath string,
	workflows *workflow.Store,
	conversations *conversation.FileStore,
	engine *transition.Engine,
	plans *plan.Manager,
	instructions *instruction.Generator,
	backend *taskbackend.Adapter,
	reg *hooks.Registry,
	log *logging.Logger,
) (Service, error) {
	if projectPath == "" {
		return nil, errors.New("project path is required")
	}
	if workflows == nil {
		return nil, errors.New("workflow store is required")
	}
	if conversations == nil {
		return nil, errors.New("conversation store is required")
	}
	if engine == nil {
		return nil, errors.New("transition engine is required")
	}
	if plans == nil {
		return nil, errors.New("plan manager is required")
	}
	if instructions == nil {
		return nil, errors.New("instruction generator is required")
	}
	if backend == nil {
		return nil, errors.New("task backend adapter is required")
	}
	if reg == nil {
		return nil, errors.New("hook registry is required")
	}

	return &service{
		projectPath:   projectPath,
		workflows:     workflows,
		conversations: conversations,
		engine:        engine,
		plans:         plans,
		instructions:  instructions,
		backend:       backend,
		hooks:         reg,
		log:           log.Named("orchestrator"),
		tracer:        otel.Tracer(instrumentationName),
	}, nil
}

func (s *service) StartDevelopment(ctx context.Context, req *StartRequest) (*PhaseResponse, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.start_development",
		trace.WithAttributes(attribute.String("workflow", req.Workflow)))
	defer span.End()

	name := req.Workflow
	if name == "" {
		name = DefaultWorkflow
	}

	branch := project.CurrentBranch(s.projectPath)
	def, err := s.workflows.Resolve(ctx, s.projectPath, name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.checkRole(def, req.Role); err != nil {
		return nil, err
	}

	planPath := project.PlanFilePath(s.projectPath, branch)
	state := conversation.New(s.projectPath, branch, def.Name, def.InitialState, planPath)
	state.RequireReviews = req.RequireReviews
	state.GitCommit = req.GitCommit

	if prev, err := s.conversations.Load(ctx, state.ID); err == nil && prev.WorkflowName != def.Name {
		s.log.Info(ctx, "restarting with a different workflow",
			zap.String("conversation_id", state.ID),
			zap.String("previous_workflow", prev.WorkflowName),
			zap.String("workflow", def.Name))
	}

	decision := s.engine.Bootstrap(def)

	resp, err := s.respond(ctx, state, def, decision, req.Role)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info(ctx, "development started",
		zap.String("conversation_id", state.ID),
		zap.String("workflow", def.Name),
		zap.String("branch", branch),
		zap.String("phase", resp.Phase))
	return resp, nil
}

func (s *service) WhatsNext(ctx context.Context, req *WhatsNextRequest) (*PhaseResponse, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.whats_next")
	defer span.End()

	state, def, err := s.loadConversation(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.checkRole(def, req.Role); err != nil {
		return nil, err
	}

	decision, err := s.engine.Decide(ctx, &transition.Request{
		Definition:          def,
		CurrentPhase:        state.CurrentPhase,
		Role:                req.Role,
		RequireReviews:      state.RequireReviews,
		Context:             req.Context,
		UserInput:           req.UserInput,
		ConversationSummary: req.ConversationSummary,
		RecentMessages:      req.RecentMessages,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return s.respond(ctx, state, def, decision, req.Role)
}

func (s *service) ProceedToPhase(ctx context.Context, req *ProceedRequest) (*PhaseResponse, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.proceed_to_phase",
		trace.WithAttributes(attribute.String("target_phase", req.TargetPhase)))
	defer span.End()

	state, def, err := s.loadConversation(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.checkRole(def, req.Role); err != nil {
		return nil, err
	}

	decision, err := s.engine.Decide(ctx, &transition.Request{
		Definition:       def,
		CurrentPhase:     state.CurrentPhase,
		TargetPhase:      req.TargetPhase,
		Role:             req.Role,
		RequireReviews:   state.RequireReviews,
		ReviewsCompleted: req.ReviewsCompleted,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if req.Reason != "" {
		s.log.Info(ctx, "explicit phase transition requested",
			zap.String("conversation_id", state.ID),
			zap.String("target_phase", req.TargetPhase),
			zap.String("caller_reason", req.Reason))
	}

	return s.respond(ctx, state, def, decision, req.Role)
}

func (s *service) ResumeWorkflow(ctx context.Context, req *ResumeRequest) (*ResumeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.resume_workflow")
	defer span.End()

	state, def, err := s.loadConversation(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	content, err := s.plans.Read(state.PlanFilePath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	phase, _ := def.Phase(state.CurrentPhase)
	if phase == nil {
		return nil, &workflow.ValidationError{
			Workflow: def.Name,
			Phase:    state.CurrentPhase,
			Detail:   "persisted phase is no longer declared; reset_development to recover",
		}
	}

	gen, err := s.generate(ctx, state, def, instruction.Base(phase, nil), &genContext{
		phase:  state.CurrentPhase,
		reason: "Resuming this conversation; continue in the current phase.",
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resp := &ResumeResponse{
		ConversationID: state.ID,
		Workflow:       def.Name,
		Description:    def.Description,
		Phase:          state.CurrentPhase,
		PlanFilePath:   state.PlanFilePath,
		RequireReviews: state.RequireReviews,
		Progress:       plan.Snapshot(content, def.PhaseNames()),
		Instructions:   gen.Instructions,
	}
	if req.IncludePlanSummary {
		resp.PlanContent = content
	}
	return resp, nil
}

func (s *service) ResetDevelopment(ctx context.Context, req *ResetRequest) (*ResetResponse, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.reset_development")
	defer span.End()

	if !req.Confirm {
		return nil, ErrResetNotConfirmed
	}

	branch := project.CurrentBranch(s.projectPath)
	id := conversation.ID(s.projectPath, branch)

	// Delete is idempotent, so existence is checked up front to report
	// honestly what the reset removed.
	_, loadErr := s.conversations.Load(ctx, id)
	if loadErr != nil && !errors.Is(loadErr, conversation.ErrNotFound) {
		span.RecordError(loadErr)
		return nil, loadErr
	}
	if err := s.conversations.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return nil, err
	}
	stateDeleted := loadErr == nil

	planDeleted, err := s.plans.Delete(ctx, project.PlanFilePath(s.projectPath, branch))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info(ctx, "development reset",
		zap.String("conversation_id", id),
		zap.String("branch", branch),
		zap.Bool("state_deleted", stateDeleted),
		zap.Bool("plan_deleted", planDeleted))

	return &ResetResponse{
		ConversationID: id,
		StateDeleted:   stateDeleted,
		PlanDeleted:    planDeleted,
	}, nil
}

func (s *service) ListWorkflows(ctx context.Context) ([]workflow.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.list_workflows")
	defer span.End()

	summaries, err := s.workflows.List(ctx, s.projectPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return summaries, nil
}

func (s *service) SetupProjectDocs(ctx context.Context, req *SetupDocsRequest) (*docs.Result, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.setup_project_docs")
	defer span.End()

	res, err := docs.Setup(s.projectPath, docs.Request{
		Architecture: req.Architecture,
		Requirements: req.Requirements,
		Design:       req.Design,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info(ctx, "project docs set up",
		zap.String("architecture", string(res.Architecture.Action)),
		zap.String("requirements", string(res.Requirements.Action)),
		zap.String("design", string(res.Design.Action)))
	return res, nil
}

// loadConversation resolves the conversation for the current branch and
// the workflow graph it runs.
func (s *service) loadConversation(ctx context.Context) (*conversation.State, *workflow.Definition, error) {
	branch := project.CurrentBranch(s.projectPath)
	state, err := s.conversations.Load(ctx, conversation.ID(s.projectPath, branch))
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return nil, nil, ErrConversationNotFound
		}
		return nil, nil, err
	}

	def, err := s.workflows.Resolve(ctx, s.projectPath, state.WorkflowName)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving workflow %q for conversation %s: %w", state.WorkflowName, state.ID, err)
	}
	return state, def, nil
}

// checkRole rejects roles the workflow does not declare. An empty role
// is always accepted; it simply sees no role-tagged transitions.
func (s *service) checkRole(def *workflow.Definition, role string) error {
	if role == "" || def.HasRole(role) {
		return nil
	}
	return &workflow.ValidationError{
		Workflow: def.Name,
		Detail:   fmt.Sprintf("role %q is not declared by this workflow", role),
	}
}

// genContext carries the phase-specific inputs of one generation.
type genContext struct {
	phase          string
	reason         string
	pendingReviews []string
	role           string
}

// respond runs the shared tail of every phase-deciding operation:
// ensure the plan artifact, compose instructions, and only then persist
// the phase change. Ordering matters: a validation failure from either
// hook point must abort before the conversation state moves.
func (s *service) respond(ctx context.Context, state *conversation.State, def *workflow.Definition, decision *transition.Decision, role string) (*PhaseResponse, error) {
	base := ""
	if p, ok := def.Phase(decision.Phase); ok {
		base = instruction.Base(p, decision.Transition)
	}

	gen, err := s.generate(ctx, state, def, base, &genContext{
		phase:          decision.Phase,
		reason:         decision.Reason,
		pendingReviews: decision.PendingReviews,
		role:           role,
	})
	if err != nil {
		return nil, err
	}

	if decision.Persist {
		state.CurrentPhase = decision.Phase
		state.Touch()
		if err := s.conversations.Save(ctx, state); err != nil {
			return nil, err
		}
	}

	return &PhaseResponse{
		ConversationID:      state.ID,
		Workflow:            def.Name,
		Phase:               decision.Phase,
		Instructions:        gen.Instructions,
		PlanGuidance:        gen.PlanGuidance,
		PlanFilePath:        state.PlanFilePath,
		TransitionReason:    decision.Reason,
		IsModeledTransition: decision.IsModeled,
		PendingReviews:      decision.PendingReviews,
		Backend:             gen.Metadata.Backend,
	}, nil
}

// generate ensures the plan artifact covers the working phase and
// composes the instruction text for gc.phase.
//
// The working phase is the conversation's current phase while a review
// gate is pending: the gated section is created only once the phase is
// actually entered.
func (s *service) generate(ctx context.Context, state *conversation.State, def *workflow.Definition, base string, gc *genContext) (*instruction.Result, error) {
	planPhase := gc.phase
	if len(gc.pendingReviews) > 0 {
		planPhase = state.CurrentPhase
	}

	ensured, err := s.plans.EnsureArtifact(ctx, def, state.PlanFilePath, plan.ArtifactInfo{
		ProjectPath: state.ProjectPath,
		Branch:      state.Branch,
		Phase:       planPhase,
	})
	if err != nil {
		return nil, err
	}

	hc := hooks.HookContext{
		ConversationID: state.ID,
		ProjectPath:    state.ProjectPath,
		Branch:         state.Branch,
		WorkflowName:   def.Name,
		CurrentPhase:   state.CurrentPhase,
		TargetPhase:    gc.phase,
		PlanFilePath:   state.PlanFilePath,
	}
	if ensured.Created {
		rewritten, err := s.hooks.Invoke(ctx, hooks.HookAfterPlanArtifactCreated, hc, ensured.Content)
		if err != nil {
			return nil, err
		}
		if rewritten != ensured.Content {
			if err := s.plans.Update(ctx, state.PlanFilePath, rewritten); err != nil {
				return nil, err
			}
		}
	}

	return s.instructions.Generate(ctx, base, &instruction.Request{
		WorkflowName:     def.Name,
		Phase:            gc.phase,
		TransitionReason: gc.reason,
		PendingReviews:   gc.pendingReviews,
		Backend:          s.backend.Detect(ctx),
		ProjectPath:      state.ProjectPath,
		Branch:           state.Branch,
		PlanFilePath:     state.PlanFilePath,
		PlanGuidance:     s.plans.GuidanceFor(def, planPhase),
		Role:             gc.role,
		GitCommit:        state.GitCommit,
		ConversationID:   state.ID,
	})
}
