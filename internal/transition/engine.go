// Package transition decides which workflow phase a conversation should
// be in next.
//
// Transitions fire explicitly, when the caller names a target phase, or
// implicitly, when an inference strategy matches the caller's
// conversational text against the declared edges. Role tags hide edges
// from other roles in collaborative workflows, and review perspectives
// gate persistence of a phase change until the caller confirms the
// reviews happened.
package transition

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

const instrumentationName = "github.com/fyrsmithlabs/vibed/internal/transition"

// ReasonWorkflowStarted is the fixed reason attached to the bootstrap
// auto-advance out of a workflow's idle phase.
const ReasonWorkflowStarted = "Development started, advancing to the first working phase."

// ReasonStaying is reported when no transition signal dominates and the
// conversation remains in its current phase.
const ReasonStaying = "No transition signal detected, continuing in the current phase."

// Request is the input to one transition decision.
//
// TargetPhase selects the explicit path; when it is empty the engine
// infers from the textual fields. Role comes from the request, never
// from ambient process state.
type Request struct {
	Definition   *workflow.Definition
	CurrentPhase string

	// TargetPhase names the phase the caller wants to enter. Empty
	// means infer from context.
	TargetPhase string

	// Role is the caller's collaboration role. Ignored for
	// non-collaborative workflows.
	Role string

	// RequireReviews enables review gating for this conversation.
	RequireReviews bool

	// ReviewsCompleted confirms that a previously reported review gate
	// has been satisfied.
	ReviewsCompleted bool

	// Free-form conversational signals consulted by the implicit path.
	Context             string
	UserInput           string
	ConversationSummary string
	RecentMessages      []string
}

// Decision is the outcome of a transition decision.
//
// Phase always carries the phase to report to the caller. When a review
// gate blocks, Phase is the proposed target while Persist stays false,
// so the caller sees where the conversation is headed without the state
// advancing past the gate.
type Decision struct {
	// Phase to report to the caller.
	Phase string

	// Transition is the edge that fired, nil when staying put.
	Transition *workflow.Transition

	// Reason is the human-readable rationale for the decision.
	Reason string

	// IsModeled reports whether the decision followed a declared edge
	// of the workflow graph.
	IsModeled bool

	// Persist reports whether the conversation state should be updated
	// to Phase. False while a review gate is pending.
	Persist bool

	// PendingReviews lists the review perspectives that must sign off
	// before the phase change persists. Empty unless a gate blocks.
	PendingReviews []string
}

// Staying reports whether the conversation remains in its current phase.
func (d *Decision) Staying() bool {
	return d.Transition == nil && len(d.PendingReviews) == 0
}

// Engine decides phase transitions over validated workflow graphs.
type Engine struct {
	log      *logging.Logger
	strategy InferenceStrategy
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategy replaces the default lexical inference strategy.
func WithStrategy(s InferenceStrategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// NewEngine creates a transition engine.
func NewEngine(log *logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		log:      log.Named("transition"),
		strategy: NewLexicalStrategy(),
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide picks the next phase for a conversation.
//
// The explicit path validates the requested target and the edge leading
// to it; the implicit path asks the inference strategy and defaults to
// staying in the current phase. Both paths see only the transitions
// visible to the request's role.
func (e *Engine) Decide(ctx context.Context, req *Request) (*Decision, error) {
	ctx, span := e.tracer.Start(ctx, "transition.decide",
		trace.WithAttributes(
			attribute.String("workflow", req.Definition.Name),
			attribute.String("current_phase", req.CurrentPhase),
			attribute.Bool("explicit", req.TargetPhase != ""),
		))
	defer span.End()

	current, ok := req.Definition.Phase(req.CurrentPhase)
	if !ok {
		err := &workflow.ValidationError{
			Workflow: req.Definition.Name,
			Phase:    req.CurrentPhase,
			Detail:   "conversation is in a phase the workflow does not declare",
		}
		span.RecordError(err)
		return nil, err
	}

	candidates := Visible(current.Transitions, req.Role)

	var decision *Decision
	var err error
	if req.TargetPhase != "" {
		decision, err = e.decideExplicit(req, candidates)
	} else {
		decision, err = e.decideImplicit(ctx, req, candidates)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("next_phase", decision.Phase),
		attribute.Bool("modeled", decision.IsModeled),
		attribute.Bool("persist", decision.Persist),
	)
	recordDecision(ctx, req.Definition.Name, req.TargetPhase != "", decision)
	e.log.Debug(ctx, "transition decided",
		zap.String("workflow", req.Definition.Name),
		zap.String("from", req.CurrentPhase),
		zap.String("to", decision.Phase),
		zap.Bool("modeled", decision.IsModeled),
		zap.Bool("persist", decision.Persist),
		zap.Strings("pending_reviews", decision.PendingReviews))
	return decision, nil
}

// decideExplicit validates a caller-named target phase.
//
// An edge from the current phase to the target is preferred; its reason,
// override instructions, and review gate apply. A target with no such
// edge is still honored as an unmodeled jump so the caller can recover a
// derailed conversation, but only to phases the workflow declares.
func (e *Engine) decideExplicit(req *Request, candidates []workflow.Transition) (*Decision, error) {
	if req.TargetPhase == req.CurrentPhase {
		return &Decision{
			Phase:   req.CurrentPhase,
			Reason:  ReasonStaying,
			Persist: false,
		}, nil
	}

	if !req.Definition.HasPhase(req.TargetPhase) {
		return nil, &workflow.ValidationError{
			Workflow: req.Definition.Name,
			Phase:    req.CurrentPhase,
			Detail: fmt.Sprintf("target phase %q is not declared (phases: %s)",
				req.TargetPhase, strings.Join(req.Definition.PhaseNames(), ", ")),
		}
	}

	edge := edgeTo(candidates, req.TargetPhase)
	if edge == nil {
		return &Decision{
			Phase:     req.TargetPhase,
			Reason:    fmt.Sprintf("Explicit move to %q requested by the caller.", req.TargetPhase),
			IsModeled: false,
			Persist:   true,
		}, nil
	}

	if blocked, pending := e.gateBlocks(req, edge); blocked {
		return &Decision{
			Phase:          req.TargetPhase,
			Transition:     edge,
			Reason:         edge.TransitionReason,
			IsModeled:      true,
			Persist:        false,
			PendingReviews: pending,
		}, nil
	}

	return &Decision{
		Phase:      req.TargetPhase,
		Transition: edge,
		Reason:     edge.TransitionReason,
		IsModeled:  true,
		Persist:    true,
	}, nil
}

// decideImplicit infers the next phase from conversational text.
func (e *Engine) decideImplicit(ctx context.Context, req *Request, candidates []workflow.Transition) (*Decision, error) {
	stay := &Decision{
		Phase:   req.CurrentPhase,
		Reason:  ReasonStaying,
		Persist: false,
	}
	if len(candidates) == 0 {
		return stay, nil
	}

	edge := e.strategy.Infer(ctx, &InferenceInput{
		Definition:   req.Definition,
		CurrentPhase: req.CurrentPhase,
		Candidates:   candidates,
		Text:         combineSignals(req),
	})
	if edge == nil {
		return stay, nil
	}

	if blocked, pending := e.gateBlocks(req, edge); blocked {
		return &Decision{
			Phase:          edge.To,
			Transition:     edge,
			Reason:         edge.TransitionReason,
			IsModeled:      true,
			Persist:        false,
			PendingReviews: pending,
		}, nil
	}

	return &Decision{
		Phase:      edge.To,
		Transition: edge,
		Reason:     edge.TransitionReason,
		IsModeled:  true,
		Persist:    true,
	}, nil
}

// Bootstrap resolves the phase a brand-new conversation starts in.
//
// A workflow whose initial state is marked bootstrap auto-advances along
// that state's first declared transition with a fixed reason; the idle
// state never hosts real work. Workflows that start directly in a
// working phase stay there.
func (e *Engine) Bootstrap(def *workflow.Definition) *Decision {
	initial := def.InitialPhase()
	if !initial.Bootstrap || len(initial.Transitions) == 0 {
		return &Decision{
			Phase:     def.InitialState,
			Reason:    fmt.Sprintf("Starting the %s workflow in its %q phase.", def.Name, def.InitialState),
			IsModeled: true,
			Persist:   true,
		}
	}

	edge := &initial.Transitions[0]
	return &Decision{
		Phase:      edge.To,
		Transition: edge,
		Reason:     ReasonWorkflowStarted,
		IsModeled:  true,
		Persist:    true,
	}
}

// gateBlocks reports whether a review gate on edge blocks persistence,
// and the perspectives still owed.
func (e *Engine) gateBlocks(req *Request, edge *workflow.Transition) (bool, []string) {
	if !edge.RequiresReview() || !req.RequireReviews || req.ReviewsCompleted {
		return false, nil
	}
	return true, edge.ReviewPerspectives
}

// Visible filters transitions to those the given role may take: edges
// with no role tag plus edges tagged with exactly that role. Edges
// tagged for other roles are removed entirely, not deprioritized.
func Visible(transitions []workflow.Transition, role string) []workflow.Transition {
	visible := make([]workflow.Transition, 0, len(transitions))
	for _, t := range transitions {
		if t.Role == "" || t.Role == role {
			visible = append(visible, t)
		}
	}
	return visible
}

// edgeTo finds the first candidate edge targeting the named phase.
func edgeTo(candidates []workflow.Transition, target string) *workflow.Transition {
	for i := range candidates {
		if candidates[i].To == target {
			return &candidates[i]
		}
	}
	return nil
}

// combineSignals joins the request's textual fields for inference.
func combineSignals(req *Request) string {
	parts := make([]string, 0, 3+len(req.RecentMessages))
	for _, s := range []string{req.Context, req.UserInput, req.ConversationSummary} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	for _, m := range req.RecentMessages {
		if m != "" {
			parts = append(parts, m)
		}
	}
	return strings.Join(parts, "\n")
}
