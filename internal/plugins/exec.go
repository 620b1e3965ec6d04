package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/hooks"
	"github.com/fyrsmithlabs/vibed/internal/logging"
)

// validationExitCode is the exit status a plugin uses to reject the
// triggering operation. Its stderr is surfaced verbatim to the caller.
const validationExitCode = 2

// hookPayload is what a plugin subprocess reads from stdin.
type hookPayload struct {
	Hook    hooks.HookType    `json:"hook"`
	Context hooks.HookContext `json:"context"`
	Input   string            `json:"input,omitempty"`
}

type execPlugin struct {
	name    string
	command string
	args    []string
	dir     string
	timeout time.Duration
}

// RegisterAll wires every manifest plugin into the registry as a
// subprocess-backed HookSet. Relative commands with a path separator
// resolve against baseDir (the project root); bare names go through
// PATH. A plugin without its own timeout uses defaultTimeout.
func RegisterAll(reg *hooks.Registry, m *Manifest, baseDir string, defaultTimeout time.Duration, log *logging.Logger) {
	for _, p := range m.Plugins {
		timeout := p.Timeout.Duration()
		if timeout == 0 {
			timeout = defaultTimeout
		}

		ep := &execPlugin{
			name:    p.Name,
			command: resolveCommand(p.Command, baseDir),
			args:    p.Args,
			dir:     baseDir,
			timeout: timeout,
		}

		set := make(hooks.HookSet, len(p.Hooks))
		for _, h := range p.Hooks {
			set[hooks.HookType(h)] = ep.hookFunc(hooks.HookType(h))
		}
		reg.Register(p.Name, set)

		log.Info(context.Background(), "registered plugin",
			zap.String("plugin", p.Name),
			zap.String("command", ep.command),
			zap.Strings("hooks", p.Hooks),
			zap.Duration("timeout", timeout))
	}
}

// resolveCommand keeps absolute paths and bare names as-is; a relative
// path is anchored at the project root so manifests stay portable.
func resolveCommand(command, baseDir string) string {
	if filepath.IsAbs(command) || !strings.ContainsRune(command, '/') {
		return command
	}
	return filepath.Join(baseDir, command)
}

func (p *execPlugin) hookFunc(hook hooks.HookType) hooks.HookFunc {
	return func(ctx context.Context, hc hooks.HookContext, input string) (string, error) {
		return p.run(ctx, hook, hc, input)
	}
}

func (p *execPlugin) run(ctx context.Context, hook hooks.HookType, hc hooks.HookContext, input string) (string, error) {
	payload, err := json.Marshal(hookPayload{Hook: hook, Context: hc, Input: input})
	if err != nil {
		return "", hooks.NewInfrastructureError(hook, p.name, fmt.Errorf("encoding hook payload: %w", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.command, p.args...)
	cmd.Dir = p.dir
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", hooks.NewInfrastructureError(hook, p.name,
				fmt.Errorf("timed out after %s", p.timeout))
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == validationExitCode {
			return "", hooks.NewValidationError(hook, p.name, strings.TrimSpace(stderr.String()))
		}
		return "", hooks.NewInfrastructureError(hook, p.name,
			fmt.Errorf("%w (stderr: %s)", err, strings.TrimSpace(stderr.String())))
	}

	// Trailing newlines come from echo-style scripts, not the value.
	return strings.TrimRight(stdout.String(), "\n"), nil
}
