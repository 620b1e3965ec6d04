// Package mcp exposes the development workflow tools over the Model
// Context Protocol.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// on the stdio transport and calls the orchestrator service directly.
// Tool handlers translate between wire-level arguments and orchestrator
// requests; caller-fixable failures surface as tool-result errors so
// the assistant can read and correct them, infrastructure failures are
// logged and returned as protocol errors.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/orchestrator"
)

// serverInstructions is presented to MCP clients at initialize time so
// assistants know how to drive the workflow surface.
const serverInstructions = `vibed orchestrates structured development workflows for this project.

Call start_development once to begin (or restart) a workflow on the
current git branch, then call whats_next at every turn to learn which
phase is active and what to do in it. Use proceed_to_phase only when
the user explicitly asks to move. The plan file referenced in responses
is the durable task list: keep its checklists current. If you lose
context, call resume_workflow before anything else.`

// Server bridges MCP tool calls to the orchestrator service.
type Server struct {
	mcp     *mcp.Server
	orch    orchestrator.Service
	metrics *Metrics
	log     *logging.Logger
}

// Config configures the MCP server identity.
type Config struct {
	// Name is the server implementation name (default: "vibed").
	Name string

	// Version is the server version (default: "dev").
	Version string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "vibed",
		Version: "dev",
	}
}

// NewServer creates an MCP server wired to the given orchestrator.
func NewServer(cfg *Config, orch orchestrator.Service, log *logging.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator service is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)

	s := &Server{
		mcp:     mcpServer,
		orch:    orch,
		metrics: NewMetrics(log),
		log:     log,
	}
	s.registerTools()

	return s, nil
}

// Run serves MCP over the stdio transport until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info(ctx, "starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
