package instruction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/vibed/internal/conversation"
	"github.com/fyrsmithlabs/vibed/internal/hooks"
	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/taskbackend"
	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

// Marker strings that must never leak across backends. The plan set is
// the checklist bookkeeping vocabulary; the tracker set is the external
// system-of-record vocabulary.
var (
	planMarkers    = []string{"Task Tracking (plan file)", "mark items complete", "- [ ]"}
	trackerMarkers = []string{"Task Tracking (issue tracker)", "issue tracker", "exclusively"}
)

func planBackend() taskbackend.Capability {
	return taskbackend.Capability{Kind: taskbackend.KindPlan, Available: true}
}

func trackerBackend() taskbackend.Capability {
	return taskbackend.Capability{Kind: taskbackend.KindTracker, Available: true}
}

func newTestGenerator() *Generator {
	log := logging.NewTestLogger().Logger
	return NewGenerator(log, hooks.NewRegistry(log))
}

func baseRequest(backend taskbackend.Capability) *Request {
	return &Request{
		WorkflowName:   "waterfall",
		Phase:          "design",
		Backend:        backend,
		ProjectPath:    "/work/demo",
		Branch:         "main",
		PlanFilePath:   "/work/demo/.vibed/development-plan-main.md",
		PlanGuidance:   "Track your work in the \"## Design\" section: add `- [ ]` tasks and mark them done.",
		ConversationID: "c-1",
	}
}

func TestGenerator_ComposesPipeline(t *testing.T) {
	g := newTestGenerator()

	req := baseRequest(planBackend())
	req.TransitionReason = "Design is settled."

	res, err := g.Generate(context.Background(), "Design the solution.", req)
	require.NoError(t, err)

	text := res.Instructions
	assert.Contains(t, text, "> Design is settled.")
	assert.Contains(t, text, "Design the solution.")
	assert.Contains(t, text, "## Task Tracking (plan file)")
	assert.Contains(t, text, "## Project Context")
	assert.Contains(t, text, "- Project: /work/demo")
	assert.Contains(t, text, "- Branch: main")
	assert.Contains(t, text, "## Important Reminders")

	// Composition order: reason, base, guidance, context, reminders.
	positions := []int{
		strings.Index(text, "> Design is settled."),
		strings.Index(text, "Design the solution."),
		strings.Index(text, "## Task Tracking"),
		strings.Index(text, "## Project Context"),
		strings.Index(text, "## Important Reminders"),
	}
	for i := 1; i < len(positions); i++ {
		assert.Greater(t, positions[i], positions[i-1], "block %d out of order", i)
	}

	assert.Equal(t, "design", res.Metadata.Phase)
	assert.Equal(t, taskbackend.KindPlan, res.Metadata.Backend)
	assert.NotEmpty(t, res.PlanGuidance)
}

func TestGenerator_BackendExclusivity(t *testing.T) {
	g := newTestGenerator()

	bases := []string{
		"Design the solution.",
		"",
		"Review $PLAN_FILE and decide.",
		"Multi\nline\nbase text with a - [ ] literal.",
	}

	for _, base := range bases {
		planRes, err := g.Generate(context.Background(), base, baseRequest(planBackend()))
		require.NoError(t, err)
		trackerRes, err := g.Generate(context.Background(), base, baseRequest(trackerBackend()))
		require.NoError(t, err)

		for _, marker := range trackerMarkers {
			assert.NotContains(t, planRes.Instructions, marker,
				"tracker marker %q leaked into plan output for base %q", marker, base)
		}
		for _, marker := range planMarkers {
			if strings.Contains(base, marker) {
				continue // caller-supplied text is not backend leakage
			}
			assert.NotContains(t, trackerRes.Instructions, marker,
				"plan marker %q leaked into tracker output for base %q", marker, base)
		}
	}
}

func TestGenerator_TrackerDropsPlanGuidance(t *testing.T) {
	g := newTestGenerator()

	res, err := g.Generate(context.Background(), "base", baseRequest(trackerBackend()))
	require.NoError(t, err)
	assert.Empty(t, res.PlanGuidance)
}

func TestGenerator_FallbackMatchesDefaultExactly(t *testing.T) {
	g := newTestGenerator()

	// A tracker that probed unavailable falls back to the plan kind; the
	// output must be byte-identical to a natively configured plan
	// backend, with no partial blending.
	native, err := g.Generate(context.Background(), "Do the work.", baseRequest(planBackend()))
	require.NoError(t, err)

	fellBack := baseRequest(taskbackend.Capability{
		Kind:      taskbackend.KindPlan,
		Available: false,
		Reason:    "looking up \"backlog\": executable file not found in $PATH",
	})
	fallback, err := g.Generate(context.Background(), "Do the work.", fellBack)
	require.NoError(t, err)

	assert.Equal(t, native.Instructions, fallback.Instructions)
}

func TestGenerator_ReviewGateBlock(t *testing.T) {
	g := newTestGenerator()

	req := baseRequest(planBackend())
	req.PendingReviews = []string{"architect", "security"}

	res, err := g.Generate(context.Background(), "base", req)
	require.NoError(t, err)

	assert.Contains(t, res.Instructions, "## Reviews Required")
	assert.Contains(t, res.Instructions, "- architect")
	assert.Contains(t, res.Instructions, "- security")
	assert.Contains(t, res.Instructions, "reviews_completed")
	// The gate block leads the output.
	assert.True(t, strings.HasPrefix(res.Instructions, "## Reviews Required"))
}

func TestGenerator_CommitGuidance(t *testing.T) {
	g := newTestGenerator()

	req := baseRequest(planBackend())
	req.GitCommit = &conversation.GitCommitConfig{
		Enabled:        true,
		CommitOnPhase:  true,
		InitialMessage: "start: scaffolding",
	}

	res, err := g.Generate(context.Background(), "base", req)
	require.NoError(t, err)
	assert.Contains(t, res.Instructions, "## Commit Guidance")
	assert.Contains(t, res.Instructions, "once per completed phase")
	assert.Contains(t, res.Instructions, "start: scaffolding")

	// Disabled config renders nothing.
	req.GitCommit = &conversation.GitCommitConfig{Enabled: false}
	res, err = g.Generate(context.Background(), "base", req)
	require.NoError(t, err)
	assert.NotContains(t, res.Instructions, "## Commit Guidance")
}

func TestGenerator_VariableSubstitution(t *testing.T) {
	g := newTestGenerator()

	req := baseRequest(planBackend())
	req.Role = "author"

	res, err := g.Generate(context.Background(),
		"Plan: $PLAN_FILE on ${BRANCH} as $ROLE. Unknown $NOT_A_VAR stays. Design doc: [$DESIGN_DOC]", req)
	require.NoError(t, err)

	assert.Contains(t, res.Instructions, "Plan: /work/demo/.vibed/development-plan-main.md on main as author.")
	assert.Contains(t, res.Instructions, "$NOT_A_VAR stays")
	// No design doc exists for this project; the token resolves empty.
	assert.Contains(t, res.Instructions, "Design doc: []")
}

func TestGenerator_DocumentVariablesResolveWhenPresent(t *testing.T) {
	g := newTestGenerator()
	projectPath := t.TempDir()

	docsDir := filepath.Join(projectPath, ".vibed", "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	docPath := filepath.Join(docsDir, "design.md")
	require.NoError(t, os.WriteFile(docPath, []byte("# Design\n"), 0o644))

	req := baseRequest(planBackend())
	req.ProjectPath = projectPath

	res, err := g.Generate(context.Background(), "See $DESIGN_DOC for details.", req)
	require.NoError(t, err)
	assert.Contains(t, res.Instructions, "See "+docPath+" for details.")
}

func TestGenerator_TemplateRendering(t *testing.T) {
	g := newTestGenerator()

	res, err := g.Generate(context.Background(),
		"Phase {{ .Phase | upper }} on {{ .BRANCH }}.", baseRequest(planBackend()))
	require.NoError(t, err)
	assert.Contains(t, res.Instructions, "Phase DESIGN on main.")
}

func TestGenerator_BrokenTemplateDegradesToRawText(t *testing.T) {
	log := logging.NewTestLogger()
	g := NewGenerator(log.Logger, hooks.NewRegistry(log.Logger))

	res, err := g.Generate(context.Background(),
		"Broken {{ .Phase | nosuchfunc }} expression.", baseRequest(planBackend()))
	require.NoError(t, err)
	assert.Contains(t, res.Instructions, "Broken {{ .Phase | nosuchfunc }} expression.")
}

func TestGenerator_HookRewritesInstructions(t *testing.T) {
	log := logging.NewTestLogger().Logger
	reg := hooks.NewRegistry(log)
	reg.Register("suffixer", hooks.HookSet{
		hooks.HookAfterInstructionsGenerated: func(_ context.Context, hc hooks.HookContext, input string) (string, error) {
			assert.Equal(t, "c-1", hc.ConversationID)
			assert.Equal(t, "design", hc.CurrentPhase)
			return input + "\n\nAppended by hook.", nil
		},
	})
	g := NewGenerator(log, reg)

	res, err := g.Generate(context.Background(), "base", baseRequest(planBackend()))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Instructions, "Appended by hook."))
}

func TestGenerator_HookValidationFailureAborts(t *testing.T) {
	log := logging.NewTestLogger().Logger
	reg := hooks.NewRegistry(log)
	reg.Register("gatekeeper", hooks.HookSet{
		hooks.HookAfterInstructionsGenerated: func(_ context.Context, _ hooks.HookContext, _ string) (string, error) {
			return "", hooks.NewValidationError(hooks.HookAfterInstructionsGenerated, "gatekeeper", "design doc is missing sections")
		},
	})
	g := NewGenerator(log, reg)

	_, err := g.Generate(context.Background(), "base", baseRequest(planBackend()))
	require.Error(t, err)
	assert.True(t, hooks.IsValidation(err))
	assert.Contains(t, err.Error(), "design doc is missing sections")
}

func TestGenerator_HookInfrastructureFailureDegrades(t *testing.T) {
	log := logging.NewTestLogger()
	reg := hooks.NewRegistry(log.Logger)
	reg.Register("flaky", hooks.HookSet{
		hooks.HookAfterInstructionsGenerated: func(_ context.Context, _ hooks.HookContext, _ string) (string, error) {
			return "", hooks.NewInfrastructureError(hooks.HookAfterInstructionsGenerated, "flaky", errors.New("tool unreachable"))
		},
	})
	g := NewGenerator(log.Logger, reg)

	res, err := g.Generate(context.Background(), "base", baseRequest(planBackend()))
	require.NoError(t, err)
	assert.Contains(t, res.Instructions, "base")
}

func TestBase(t *testing.T) {
	phase := &workflow.Phase{DefaultInstructions: "default text"}

	tests := []struct {
		name       string
		transition *workflow.Transition
		want       string
	}{
		{name: "no transition", transition: nil, want: "default text"},
		{
			name:       "transition without override",
			transition: &workflow.Transition{},
			want:       "default text",
		},
		{
			name:       "override replaces default",
			transition: &workflow.Transition{Instructions: "override text"},
			want:       "override text",
		},
		{
			name:       "additional appends to default",
			transition: &workflow.Transition{AdditionalInstructions: "extra"},
			want:       "default text\n\nextra",
		},
		{
			name: "override plus additional",
			transition: &workflow.Transition{
				Instructions:           "override text",
				AdditionalInstructions: "extra",
			},
			want: "override text\n\nextra",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Base(phase, tt.transition))
		})
	}
}
