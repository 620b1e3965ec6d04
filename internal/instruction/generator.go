// Package instruction composes the phase instruction text returned to
// the caller.
//
// Composition is a fixed pipeline: base text from the workflow graph,
// task-backend guidance, project context, a reminders block, then
// variable substitution and template rendering. The task-backend blocks
// are mutually exclusive by construction: the plan checklist wording and
// the external tracker wording never appear in the same output, because
// leaking either misleads the caller about which system of record is
// authoritative.
package instruction

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/conversation"
	"github.com/fyrsmithlabs/vibed/internal/hooks"
	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/taskbackend"
	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

const instrumentationName = "github.com/fyrsmithlabs/vibed/internal/instruction"

// Request carries everything one generation needs beyond the base text.
//
// Role arrives here explicitly from the tool request; the generator
// never reads ambient process state.
type Request struct {
	WorkflowName string
	Phase        string

	// TransitionReason explains why the conversation is (or is not)
	// moving; surfaced at the top of the instructions.
	TransitionReason string

	// PendingReviews lists review perspectives blocking a gated
	// transition. Non-empty output leads with the review block.
	PendingReviews []string

	Backend      taskbackend.Capability
	ProjectPath  string
	Branch       string
	PlanFilePath string

	// PlanGuidance is the plan manager's phase-specific usage text,
	// echoed into the result and appended to the instructions for the
	// plan backend.
	PlanGuidance string

	Role      string
	GitCommit *conversation.GitCommitConfig

	// ConversationID identifies the conversation for hook context.
	ConversationID string
}

// Metadata describes how a result was composed.
type Metadata struct {
	Phase            string           `json:"phase"`
	Backend          taskbackend.Kind `json:"backend"`
	TransitionReason string           `json:"transition_reason,omitempty"`
}

// Result is a composed instruction response.
type Result struct {
	Instructions string
	PlanGuidance string
	Metadata     Metadata
}

// Generator composes instruction text.
type Generator struct {
	log    *logging.Logger
	hooks  *hooks.Registry
	tracer trace.Tracer
}

// NewGenerator creates an instruction generator. The hook registry may
// be empty but not nil; extensions see every generated instruction.
func NewGenerator(log *logging.Logger, reg *hooks.Registry) *Generator {
	return &Generator{
		log:    log.Named("instruction"),
		hooks:  reg,
		tracer: otel.Tracer(instrumentationName),
	}
}

// Base resolves the starting text for a phase and the transition that
// entered it: the transition's override when present, the phase default
// otherwise, plus any additional text the transition appends.
func Base(phase *workflow.Phase, t *workflow.Transition) string {
	text := phase.DefaultInstructions
	if t != nil && t.Instructions != "" {
		text = t.Instructions
	}
	if t != nil && t.AdditionalInstructions != "" {
		text = strings.TrimRight(text, "\n") + "\n\n" + t.AdditionalInstructions
	}
	return text
}

// Generate runs the composition pipeline over the base text.
//
// The after-instructions-generated hook runs last and may rewrite the
// final text; a validation failure from it aborts the response so an
// extension can hold a phase back.
func (g *Generator) Generate(ctx context.Context, base string, req *Request) (*Result, error) {
	ctx, span := g.tracer.Start(ctx, "instruction.generate",
		trace.WithAttributes(
			attribute.String("workflow", req.WorkflowName),
			attribute.String("phase", req.Phase),
			attribute.String("backend", string(req.Backend.Kind)),
		))
	defer span.End()

	var b strings.Builder

	if len(req.PendingReviews) > 0 {
		b.WriteString(reviewGateBlock(req.PendingReviews, req.Phase))
		b.WriteString("\n\n")
	}
	if req.TransitionReason != "" {
		b.WriteString("> " + req.TransitionReason)
		b.WriteString("\n\n")
	}

	b.WriteString(strings.TrimRight(base, "\n"))

	b.WriteString("\n\n")
	b.WriteString(backendGuidance(req))

	b.WriteString("\n\n")
	b.WriteString(projectContext(req))

	if block := commitGuidance(req.GitCommit); block != "" {
		b.WriteString("\n\n")
		b.WriteString(block)
	}

	b.WriteString("\n\n")
	b.WriteString(reminders(req.Backend.Kind))

	text := g.render(ctx, b.String(), req)
	text = substitute(text, req)

	final, err := g.hooks.Invoke(ctx, hooks.HookAfterInstructionsGenerated, hooks.HookContext{
		ConversationID: req.ConversationID,
		ProjectPath:    req.ProjectPath,
		Branch:         req.Branch,
		WorkflowName:   req.WorkflowName,
		CurrentPhase:   req.Phase,
		PlanFilePath:   req.PlanFilePath,
	}, text)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Checklist guidance belongs to the plan backend alone; under the
	// tracker backend it would contradict the system of record.
	planGuidance := req.PlanGuidance
	if req.Backend.Kind == taskbackend.KindTracker {
		planGuidance = ""
	}

	return &Result{
		Instructions: final,
		PlanGuidance: planGuidance,
		Metadata: Metadata{
			Phase:            req.Phase,
			Backend:          req.Backend.Kind,
			TransitionReason: req.TransitionReason,
		},
	}, nil
}

// render expands {{ }} template expressions for custom workflow
// authors. A template failure degrades to the raw text: a workflow
// typo must never fail the request.
func (g *Generator) render(ctx context.Context, text string, req *Request) string {
	rendered, err := renderTemplate(text, templateData(req))
	if err != nil {
		g.log.Warn(ctx, "instruction template failed, using raw text",
			zap.String("workflow", req.WorkflowName),
			zap.String("phase", req.Phase),
			zap.Error(err))
		return text
	}
	return rendered
}
