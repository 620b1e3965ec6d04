package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/vibed/internal/config"
	"github.com/fyrsmithlabs/vibed/internal/conversation"
	"github.com/fyrsmithlabs/vibed/internal/docs"
	"github.com/fyrsmithlabs/vibed/internal/hooks"
	"github.com/fyrsmithlabs/vibed/internal/instruction"
	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/orchestrator"
	"github.com/fyrsmithlabs/vibed/internal/plan"
	"github.com/fyrsmithlabs/vibed/internal/taskbackend"
	"github.com/fyrsmithlabs/vibed/internal/transition"
	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

// gatedWorkflow has one review-gated edge, for plumbing tests.
const gatedWorkflow = `
name: gated
description: "Two working phases with a gated handover."
initial_state: build
states:
  build:
    description: "Build the change."
    default_instructions: "Build it."
    transitions:
      - trigger: build_complete
        to: verify
        transition_reason: "The change is built, ready to verify."
        review_perspectives:
          - security
  verify:
    description: "Verify the change."
    default_instructions: "Verify it."
    transitions: []
`

type testServer struct {
	srv         *Server
	log         *logging.TestLogger
	projectPath string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	projectPath := t.TempDir()
	log := logging.NewTestLogger()
	reg := hooks.NewRegistry(log.Logger)

	workflows := workflow.NewStore(log.Logger)
	t.Cleanup(func() { _ = workflows.Close() })

	conversations, err := conversation.NewFileStore(t.TempDir(), log.Logger)
	require.NoError(t, err)

	orch, err := orchestrator.NewService(
		projectPath,
		workflows,
		conversations,
		transition.NewEngine(log.Logger),
		plan.NewManager(log.Logger),
		instruction.NewGenerator(log.Logger, reg),
		taskbackend.New(log.Logger, config.TaskBackendConfig{Backend: config.BackendPlan}),
		reg,
		log.Logger,
	)
	require.NoError(t, err)

	srv, err := NewServer(DefaultConfig(), orch, log.Logger)
	require.NoError(t, err)

	return &testServer{srv: srv, log: log, projectPath: projectPath}
}

func (ts *testServer) installWorkflow(t *testing.T, name, doc string) {
	t.Helper()
	dir := filepath.Join(ts.projectPath, ".vibed", "workflows")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(doc), 0o644))
}

// resultText unwraps the first text content block of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content block should be text")
	return tc.Text
}

func TestNewServer(t *testing.T) {
	ts := newTestServer(t)
	require.NotNil(t, ts.srv.mcp)
	require.NotNil(t, ts.srv.metrics)

	t.Run("requires orchestrator", func(t *testing.T) {
		_, err := NewServer(nil, nil, logging.NewTestLogger().Logger)
		require.ErrorContains(t, err, "orchestrator service is required")
	})

	t.Run("requires logger", func(t *testing.T) {
		_, err := NewServer(nil, &brokenService{err: errors.New("unused")}, nil)
		require.ErrorContains(t, err, "logger is required")
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "vibed", cfg.Name)
	assert.Equal(t, "dev", cfg.Version)
}

func TestStartDevelopment_PlumbsArguments(t *testing.T) {
	ts := newTestServer(t)

	res, out, err := ts.srv.handleStartDevelopment(context.Background(), nil, startDevelopmentInput{
		Workflow:        "epcc",
		CommitBehaviour: "phase",
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, "epcc", out.Workflow)
	assert.Equal(t, "explore", out.Phase)
	assert.NotEmpty(t, out.ConversationID)
	assert.Equal(t, "plan", out.Backend)
	assert.Contains(t, out.PlanFilePath, "development-plan-")
	assert.True(t, out.IsModeledTransition)

	// The commit cadence chosen at start shapes the instructions.
	assert.Contains(t, out.Instructions, "once per completed phase")

	// Text content carries the instructions verbatim.
	assert.Equal(t, out.Instructions, resultText(t, res))
}

func TestStartDevelopment_RejectsUnknownCommitBehaviour(t *testing.T) {
	ts := newTestServer(t)

	res, out, err := ts.srv.handleStartDevelopment(context.Background(), nil, startDevelopmentInput{
		CommitBehaviour: "hourly",
	})
	require.NoError(t, err, "a caller mistake is a tool result, not a protocol error")
	require.NotNil(t, res)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `unknown commit behaviour "hourly"`)
	assert.Empty(t, out.ConversationID)
}

func TestStartDevelopment_UnknownWorkflowIsToolError(t *testing.T) {
	ts := newTestServer(t)

	res, _, err := ts.srv.handleStartDevelopment(context.Background(), nil, startDevelopmentInput{
		Workflow: "nosuch",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `workflow "nosuch"`)
}

func TestWhatsNext_WithoutConversationIsToolError(t *testing.T) {
	ts := newTestServer(t)

	res, out, err := ts.srv.handleWhatsNext(context.Background(), nil, whatsNextInput{
		UserInput: "where were we?",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)
	assert.Equal(t, orchestrator.ErrConversationNotFound.Error(), resultText(t, res))
	assert.Empty(t, out.ConversationID)
}

func TestWhatsNext_InfersPhaseFromText(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, started, err := ts.srv.handleStartDevelopment(ctx, nil, startDevelopmentInput{Workflow: "epcc"})
	require.NoError(t, err)
	require.Equal(t, "explore", started.Phase)

	res, out, err := ts.srv.handleWhatsNext(ctx, nil, whatsNextInput{
		UserInput: "Exploration complete, ready to plan the work.",
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, "plan", out.Phase)
	assert.True(t, out.IsModeledTransition)
	assert.NotEmpty(t, out.TransitionReason)
	assert.Equal(t, out.Instructions, resultText(t, res))
}

func TestWhatsNext_NeutralTextStaysPut(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, _, err := ts.srv.handleStartDevelopment(ctx, nil, startDevelopmentInput{Workflow: "epcc"})
	require.NoError(t, err)

	_, out, err := ts.srv.handleWhatsNext(ctx, nil, whatsNextInput{
		UserInput: "Thinking about lunch.",
	})
	require.NoError(t, err)
	assert.Equal(t, "explore", out.Phase)
}

func TestProceedToPhase_ReviewGatePlumbing(t *testing.T) {
	ts := newTestServer(t)
	ts.installWorkflow(t, "gated", gatedWorkflow)
	ctx := context.Background()

	_, started, err := ts.srv.handleStartDevelopment(ctx, nil, startDevelopmentInput{
		Workflow:       "gated",
		RequireReviews: true,
	})
	require.NoError(t, err)
	require.Equal(t, "build", started.Phase)

	// First attempt blocks on the pending review perspectives.
	res, out, err := ts.srv.handleProceedToPhase(ctx, nil, proceedToPhaseInput{
		TargetPhase: "verify",
		Reason:      "build finished",
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "verify", out.Phase)
	assert.Equal(t, []string{"security"}, out.PendingReviews)

	// Confirming the reviews lets the move persist.
	_, out, err = ts.srv.handleProceedToPhase(ctx, nil, proceedToPhaseInput{
		TargetPhase:      "verify",
		ReviewsCompleted: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "verify", out.Phase)
	assert.Empty(t, out.PendingReviews)
}

func TestProceedToPhase_UndeclaredTargetIsToolError(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, _, err := ts.srv.handleStartDevelopment(ctx, nil, startDevelopmentInput{Workflow: "epcc"})
	require.NoError(t, err)

	res, _, err := ts.srv.handleProceedToPhase(ctx, nil, proceedToPhaseInput{TargetPhase: "shipping"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"shipping"`)
}

func TestResumeWorkflow_RecapsConversation(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, _, err := ts.srv.handleStartDevelopment(ctx, nil, startDevelopmentInput{Workflow: "waterfall"})
	require.NoError(t, err)

	res, out, err := ts.srv.handleResumeWorkflow(ctx, nil, resumeWorkflowInput{IncludePlanSummary: true})
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, "waterfall", out.Workflow)
	assert.Equal(t, "requirements", out.Phase)
	assert.NotEmpty(t, out.Description)
	assert.NotEmpty(t, out.Progress)
	assert.Contains(t, out.PlanContent, "## Requirements")
	assert.Equal(t, out.Instructions, resultText(t, res))

	found := false
	for _, sec := range out.Progress {
		if sec.Phase == "requirements" {
			found = true
		}
	}
	assert.True(t, found, "progress should include the current phase's section")
}

func TestResetDevelopment_RequiresConfirm(t *testing.T) {
	ts := newTestServer(t)

	res, _, err := ts.srv.handleResetDevelopment(context.Background(), nil, resetDevelopmentInput{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)
	assert.Equal(t, orchestrator.ErrResetNotConfirmed.Error(), resultText(t, res))
}

func TestResetDevelopment_DeletesStateAndPlan(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, started, err := ts.srv.handleStartDevelopment(ctx, nil, startDevelopmentInput{Workflow: "waterfall"})
	require.NoError(t, err)

	res, out, err := ts.srv.handleResetDevelopment(ctx, nil, resetDevelopmentInput{Confirm: true})
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, started.ConversationID, out.ConversationID)
	assert.True(t, out.StateDeleted)
	assert.True(t, out.PlanDeleted)
	assert.Contains(t, resultText(t, res), "state deleted: true")
}

func TestListWorkflows_ReturnsCatalog(t *testing.T) {
	ts := newTestServer(t)

	res, out, err := ts.srv.handleListWorkflows(context.Background(), nil, listWorkflowsInput{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, len(out.Workflows), out.Count)
	assert.GreaterOrEqual(t, out.Count, 2)

	var waterfall *workflowSummary
	for i := range out.Workflows {
		if out.Workflows[i].Name == "waterfall" {
			waterfall = &out.Workflows[i]
		}
	}
	require.NotNil(t, waterfall, "built-in catalog should be listed")
	assert.Equal(t, "builtin", waterfall.Source)
	assert.NotEmpty(t, waterfall.Phases)
	assert.Contains(t, resultText(t, res), "waterfall")
}

func TestSetupProjectDocs_CreatesAndReportsExisting(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	res, out, err := ts.srv.handleSetupProjectDocs(ctx, nil, setupProjectDocsInput{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, string(docs.ActionCreated), out.Architecture.Action)
	assert.Equal(t, string(docs.ActionCreated), out.Requirements.Action)
	assert.Equal(t, string(docs.ActionCreated), out.Design.Action)
	assert.Contains(t, out.Design.Path, filepath.Join(".vibed", "docs"))
	assert.Contains(t, resultText(t, res), "created")

	// Running it again leaves the documents alone.
	_, out, err = ts.srv.handleSetupProjectDocs(ctx, nil, setupProjectDocsInput{})
	require.NoError(t, err)
	assert.Equal(t, string(docs.ActionExists), out.Design.Action)
}

// brokenService fails every operation with the same error, for
// infrastructure-path tests.
type brokenService struct{ err error }

func (b *brokenService) StartDevelopment(context.Context, *orchestrator.StartRequest) (*orchestrator.PhaseResponse, error) {
	return nil, b.err
}

func (b *brokenService) WhatsNext(context.Context, *orchestrator.WhatsNextRequest) (*orchestrator.PhaseResponse, error) {
	return nil, b.err
}

func (b *brokenService) ProceedToPhase(context.Context, *orchestrator.ProceedRequest) (*orchestrator.PhaseResponse, error) {
	return nil, b.err
}

func (b *brokenService) ResumeWorkflow(context.Context, *orchestrator.ResumeRequest) (*orchestrator.ResumeResponse, error) {
	return nil, b.err
}

func (b *brokenService) ResetDevelopment(context.Context, *orchestrator.ResetRequest) (*orchestrator.ResetResponse, error) {
	return nil, b.err
}

func (b *brokenService) ListWorkflows(context.Context) ([]workflow.Summary, error) {
	return nil, b.err
}

func (b *brokenService) SetupProjectDocs(context.Context, *orchestrator.SetupDocsRequest) (*docs.Result, error) {
	return nil, b.err
}

func TestInfrastructureFailureIsProtocolError(t *testing.T) {
	log := logging.NewTestLogger()
	boom := errors.New("state directory unwritable")

	srv, err := NewServer(nil, &brokenService{err: boom}, log.Logger)
	require.NoError(t, err)

	res, out, err := srv.handleWhatsNext(context.Background(), nil, whatsNextInput{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
	assert.Empty(t, out.ConversationID)

	log.AssertLogged(t, zapcore.ErrorLevel, "tool call failed")
}

func TestCallerFixable(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fixes bool
	}{
		{"no conversation", orchestrator.ErrConversationNotFound, true},
		{"reset unconfirmed", orchestrator.ErrResetNotConfirmed, true},
		{"hook validation", hooks.NewValidationError(hooks.HookAfterInstructionsGenerated, "lint", "too long"), true},
		{"workflow validation", &workflow.ValidationError{Workflow: "w", Detail: "bad"}, true},
		{"wrapped workflow validation", errors.Join(errors.New("outer"), &workflow.ValidationError{Workflow: "w", Detail: "bad"}), true},
		{"infrastructure", errors.New("disk gone"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fixes, callerFixable(tt.err))
		})
	}
}

func TestServerInstructionsNamePrimaryTool(t *testing.T) {
	assert.Contains(t, serverInstructions, "whats_next")
	assert.Contains(t, serverInstructions, "start_development")
}

func TestToolErrorCarriesMessageVerbatim(t *testing.T) {
	err := errors.New(`phase "x" is not declared`)
	res := toolError(err)
	assert.True(t, res.IsError)
	assert.True(t, strings.Contains(resultText(t, res), `phase "x" is not declared`))
}
