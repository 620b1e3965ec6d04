package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/vibed/internal/config"
	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

var workflowsJSON bool

func init() {
	workflowsCmd.AddCommand(workflowsListCmd)
	workflowsListCmd.Flags().BoolVar(&workflowsJSON, "json", false, "output as JSON")
}

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Inspect workflow definitions",
	Long: `Inspect the workflow definitions a project can use: the embedded
built-in catalog, shared search directories from the config file, and
project overrides under .vibed/workflows/.`,
}

var workflowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workflows available to a project",
	Long: `List shows every workflow the project can start, with overrides
shadowing built-ins of the same name.

Examples:
  vibed workflows list
  vibed workflows list --project /work/demo --json`,
	RunE: runWorkflowsList,
}

func runWorkflowsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(flagConfig)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	projectPath, err := resolveProject()
	if err != nil {
		return err
	}

	logger, err := quietLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store := workflow.NewStore(logger, workflow.WithSearchDirs(cfg.Workflows.Dirs))
	defer func() { _ = store.Close() }()

	sums, err := store.List(cmd.Context(), projectPath)
	if err != nil {
		return fmt.Errorf("listing workflows: %w", err)
	}

	if workflowsJSON {
		return outputJSON(sums)
	}

	if len(sums) == 0 {
		cmd.Println("No workflows available")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tPHASES\tDESCRIPTION")
	for _, s := range sums {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			s.Name, s.Source, len(s.Phases), truncate(s.Description, 60))
	}
	return w.Flush()
}

// quietLogger builds a stderr console logger that stays silent below
// errors, keeping command output readable.
func quietLogger() (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Level = zapcore.ErrorLevel
	logCfg.Format = "console"
	return logging.NewLogger(logCfg, nil)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
