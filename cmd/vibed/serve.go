package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/config"
	"github.com/fyrsmithlabs/vibed/internal/conversation"
	"github.com/fyrsmithlabs/vibed/internal/hooks"
	vibedhttp "github.com/fyrsmithlabs/vibed/internal/http"
	"github.com/fyrsmithlabs/vibed/internal/instruction"
	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/mcp"
	"github.com/fyrsmithlabs/vibed/internal/orchestrator"
	"github.com/fyrsmithlabs/vibed/internal/plan"
	"github.com/fyrsmithlabs/vibed/internal/plugins"
	"github.com/fyrsmithlabs/vibed/internal/project"
	"github.com/fyrsmithlabs/vibed/internal/taskbackend"
	"github.com/fyrsmithlabs/vibed/internal/telemetry"
	"github.com/fyrsmithlabs/vibed/internal/transition"
	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tool surface on stdio",
	Long: `Serve starts the vibed daemon: it loads configuration, registers plugin
manifests, and serves the workflow tools over the MCP stdio transport
until the client disconnects or a signal arrives.

Stdout belongs to the MCP protocol; logs go to stderr (or a file).`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadWithFile(flagConfig)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	projectPath, err := resolveProject()
	if err != nil {
		return err
	}

	telem, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	logger, err := buildLogger(cfg, telem)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer done()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "telemetry shutdown incomplete", zap.Error(err))
		}
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting vibed",
		zap.String("version", version),
		zap.String("project", projectPath),
		zap.String("state_dir", cfg.State.Dir),
		zap.String("task_backend", cfg.TaskBackend.Backend))

	reg := hooks.NewRegistry(logger)
	if err := registerPlugins(ctx, cfg, projectPath, reg, logger); err != nil {
		return err
	}

	workflows := workflow.NewStore(logger, workflow.WithSearchDirs(cfg.Workflows.Dirs))
	defer func() { _ = workflows.Close() }()

	conversations, err := conversation.NewFileStore(cfg.State.Dir, logger)
	if err != nil {
		return fmt.Errorf("opening conversation store: %w", err)
	}

	orch, err := orchestrator.NewService(
		projectPath,
		workflows,
		conversations,
		transition.NewEngine(logger),
		plan.NewManager(logger),
		instruction.NewGenerator(logger, reg),
		taskbackend.New(logger, cfg.TaskBackend),
		reg,
		logger,
	)
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	srv, err := mcp.NewServer(&mcp.Config{Name: "vibed", Version: version}, orch, logger)
	if err != nil {
		return fmt.Errorf("building MCP server: %w", err)
	}

	if cfg.Server.Enabled {
		sidecar, err := vibedhttp.NewServer(
			statusSource(projectPath, workflows, conversations),
			logger,
			&vibedhttp.Config{Addr: cfg.Server.Addr},
			readyChecks(cfg, projectPath, workflows)...,
		)
		if err != nil {
			return fmt.Errorf("building http sidecar: %w", err)
		}
		go func() {
			if err := sidecar.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(context.Background(), "http sidecar failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
			defer done()
			if err := sidecar.Shutdown(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, "http sidecar shutdown incomplete", zap.Error(err))
			}
		}()
	}

	// Blocks until the MCP client disconnects or the signal context
	// cancels. Cancellation is the normal shutdown path, not an error.
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	logger.Info(context.Background(), "vibed shutdown complete")
	return nil
}

// applyFlagOverrides lets command-line flags win over file and env
// configuration.
func applyFlagOverrides(cfg *config.Config) {
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagStateDir != "" {
		cfg.State.Dir = flagStateDir
	}
}

// resolveProject picks the checkout this daemon serves.
func resolveProject() (string, error) {
	path := flagProject
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving working directory: %w", err)
		}
		path = wd
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving project path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project path %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path %s is not a directory", abs)
	}
	return abs, nil
}

// buildLogger maps the daemon configuration onto the logging package.
func buildLogger(cfg *config.Config, telem *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	if cfg.Logging.Level != "" {
		lvl, err := logging.LevelFromString(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		logCfg.Level = lvl
	}
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}
	if cfg.Logging.File != "" {
		logCfg.Output.File = cfg.Logging.File
	}
	provider := telem.LoggerProvider()
	logCfg.Output.OTEL = provider != nil
	return logging.NewLogger(logCfg, provider)
}

// telemetryConfig maps the daemon configuration onto the telemetry
// package.
func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.Endpoint != "" {
		tc.Endpoint = cfg.Telemetry.Endpoint
	}
	if cfg.Telemetry.Protocol != "" {
		tc.Protocol = cfg.Telemetry.Protocol
	}
	tc.Insecure = cfg.Telemetry.Insecure
	tc.ServiceVersion = version
	return tc
}

// registerPlugins loads the project's plugin manifest, if any, and wires
// its hooks into the registry.
func registerPlugins(ctx context.Context, cfg *config.Config, projectPath string, reg *hooks.Registry, logger *logging.Logger) error {
	manifestPath := cfg.Plugins.Manifest
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(projectPath, manifestPath)
	}

	m, err := plugins.LoadManifest(manifestPath)
	if err != nil {
		return fmt.Errorf("loading plugin manifest: %w", err)
	}
	if len(m.Plugins) == 0 {
		logger.Debug(ctx, "no plugins configured", zap.String("manifest", manifestPath))
		return nil
	}

	plugins.RegisterAll(reg, m, projectPath, cfg.Plugins.HookTimeout.Duration(), logger)
	return nil
}

// statusSource assembles the sidecar's status snapshot from live
// components.
func statusSource(projectPath string, workflows *workflow.Store, conversations *conversation.FileStore) vibedhttp.StatusSource {
	return func(ctx context.Context) *vibedhttp.StatusResponse {
		branch := project.CurrentBranch(projectPath)
		resp := &vibedhttp.StatusResponse{
			Status:  "ok",
			Version: version,
			Project: projectPath,
			Branch:  branch,
		}

		if sums, err := workflows.List(ctx, projectPath); err == nil {
			resp.Workflows = len(sums)
		}

		state, err := conversations.Load(ctx, conversation.ID(projectPath, branch))
		if err != nil {
			return resp
		}
		resp.Conversation = &vibedhttp.ConversationStatus{
			ID:        state.ID,
			Workflow:  state.WorkflowName,
			Phase:     state.CurrentPhase,
			UpdatedAt: state.UpdatedAt,
		}

		var phases []string
		if def, err := workflows.Resolve(ctx, projectPath, state.WorkflowName); err == nil {
			phases = def.PhaseNames()
		}
		resp.Plan = vibedhttp.PlanCounts(state.PlanFilePath, phases)
		return resp
	}
}

// readyChecks builds the sidecar readiness probes: the state directory
// must stay writable and the project's workflows resolvable.
func readyChecks(cfg *config.Config, projectPath string, workflows *workflow.Store) []vibedhttp.ReadyCheck {
	return []vibedhttp.ReadyCheck{
		{
			Name: "state-dir",
			Check: func(context.Context) error {
				probe := filepath.Join(cfg.State.Dir, ".ready")
				if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
					return err
				}
				return os.Remove(probe)
			},
		},
		{
			Name: "workflows",
			Check: func(ctx context.Context) error {
				_, err := workflows.List(ctx, projectPath)
				return err
			},
		},
	}
}
