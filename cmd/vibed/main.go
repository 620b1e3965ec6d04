// Vibed is a workflow orchestration MCP server for AI coding assistants.
//
// It keeps a development conversation moving through a declared
// workflow: phase decisions, instruction generation, and a durable plan
// artifact per git branch. The tool surface is served over stdio, so
// the binary is configured as an MCP server in the assistant and bound
// to one project checkout.
//
// Usage:
//
//	# Serve MCP on stdio for the current directory
//	vibed
//
//	# Serve a specific checkout with debug logging
//	vibed serve --project /work/demo --log-level debug
//
//	# Validate workflow definition files
//	vibed validate .vibed/workflows/custom.yaml
//
//	# List the workflows a project can use
//	vibed workflows list --project /work/demo
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	flagConfig   string
	flagLogLevel string
	flagStateDir string
	flagProject  string
)

var rootCmd = &cobra.Command{
	Use:   "vibed",
	Short: "Workflow orchestration MCP server for AI coding assistants",
	Long: `vibed serves a small set of MCP tools over stdio that drive structured
development workflows: start_development, whats_next, proceed_to_phase,
resume_workflow, reset_development, list_workflows, setup_project_docs.

Running vibed with no subcommand starts the server, bound to the project
checkout given by --project (default: the working directory).`,
	Version:       version,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ~/.config/vibed/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level override: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "conversation state directory override")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project checkout to serve (default: working directory)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(workflowsCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
