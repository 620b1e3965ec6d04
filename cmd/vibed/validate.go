package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate workflow definition files",
	Long: `Validate parses and validates workflow definition files without
starting the server.

Each file is checked for YAML syntax, declared phases, transition
targets, trigger uniqueness, and collaboration role references. The
command exits non-zero if any file fails.

Examples:
  # Check a project override before committing it
  vibed validate .vibed/workflows/custom.yaml

  # Check several definitions at once
  vibed validate workflows/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		def, err := workflow.LoadFile(path)
		if err != nil {
			failed++
			cmd.Printf("FAIL  %s\n      %v\n", path, err)
			continue
		}
		cmd.Printf("ok    %s (%s: %d phases, initial %q)\n",
			path, def.Name, len(def.States), def.InitialState)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
	}
	return nil
}
