package hooks

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/logging"
)

// HookType names an extension point in the orchestration lifecycle.
type HookType string

const (
	// HookAfterPlanArtifactCreated fires after a plan artifact is first
	// written. Handlers receive the artifact content and may rewrite it.
	HookAfterPlanArtifactCreated HookType = "after-plan-artifact-created"

	// HookAfterInstructionsGenerated fires after instruction text is
	// composed for a response. Handlers may append to or rewrite it.
	HookAfterInstructionsGenerated HookType = "after-instructions-generated"
)

// HookContext is the read-only state projection handed to every hook
// invocation. It deliberately excludes the engine components themselves:
// a hook can observe a conversation but never mutate one directly.
type HookContext struct {
	ConversationID string `json:"conversation_id"`
	ProjectPath    string `json:"project_path"`
	Branch         string `json:"branch"`
	WorkflowName   string `json:"workflow_name"`
	CurrentPhase   string `json:"current_phase"`
	TargetPhase    string `json:"target_phase,omitempty"`
	PlanFilePath   string `json:"plan_file_path"`
}

// HookFunc handles one hook invocation. Input carries the value under
// inspection; a non-empty return value replaces it for subsequent
// handlers and for the caller. An empty return leaves it unchanged.
type HookFunc func(ctx context.Context, hc HookContext, input string) (string, error)

// HookSet maps the hook points one extension implements.
type HookSet map[HookType]HookFunc

type registration struct {
	name string
	fn   HookFunc
}

// Registry dispatches hook invocations to registered extensions.
// Handlers for the same hook point run in registration order.
type Registry struct {
	log *logging.Logger

	mu      sync.RWMutex
	entries map[HookType][]registration
}

// NewRegistry creates an empty hook registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		log:     log,
		entries: make(map[HookType][]registration),
	}
}

// Register adds every handler in set under the given extension name.
// Registering the same name twice appends rather than replaces.
func (r *Registry) Register(name string, set HookSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hook, fn := range set {
		if fn == nil {
			continue
		}
		r.entries[hook] = append(r.entries[hook], registration{name: name, fn: fn})
	}
}

// HandlerCount reports how many handlers are registered for hook.
func (r *Registry) HandlerCount(hook HookType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[hook])
}

// Invoke runs every handler registered for hook in registration order,
// threading input through the chain: each handler sees the value as left
// by its predecessors, and a non-empty return replaces it.
//
// A validation failure aborts the chain and is returned to the caller.
// Any other failure is logged and the chain continues, so a broken
// extension never blocks a response.
func (r *Registry) Invoke(ctx context.Context, hook HookType, hc HookContext, input string) (string, error) {
	r.mu.RLock()
	regs := r.entries[hook]
	r.mu.RUnlock()

	value := input
	for _, reg := range regs {
		out, err := reg.fn(ctx, hc, value)
		if err != nil {
			recordFailure(ctx, hook, reg.name, err)
			if IsValidation(err) {
				return "", err
			}
			r.log.Warn(ctx, "hook failed, continuing",
				zap.String("hook", string(hook)),
				zap.String("plugin", reg.name),
				zap.Error(err))
			continue
		}
		if out != "" {
			value = out
		}
	}
	return value, nil
}
