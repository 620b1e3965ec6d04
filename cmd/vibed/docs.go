package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/vibed/internal/docs"
)

var (
	docsArchitecture string
	docsRequirements string
	docsDesign       string
)

func init() {
	docsCmd.AddCommand(docsSetupCmd)
	docsSetupCmd.Flags().StringVar(&docsArchitecture, "architecture", "", "existing architecture doc to link instead of the starter template")
	docsSetupCmd.Flags().StringVar(&docsRequirements, "requirements", "", "existing requirements doc to link instead of the starter template")
	docsSetupCmd.Flags().StringVar(&docsDesign, "design", "", "existing design doc to link instead of the starter template")
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage the project document set",
}

var docsSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create or link the project documents under .vibed/docs",
	Long: `Setup materializes the three documents instruction templates can
reference: architecture, requirements, and design.

Missing documents are created from starter templates, or symlinked to
existing files when a source flag is given. Documents that already
exist are left untouched, so the command is safe to re-run.

Examples:
  # Create starter templates
  vibed docs setup

  # Link documents the project already maintains
  vibed docs setup --architecture docs/arch.md --design docs/design.md`,
	RunE: runDocsSetup,
}

func runDocsSetup(cmd *cobra.Command, args []string) error {
	projectPath, err := resolveProject()
	if err != nil {
		return err
	}

	res, err := docs.Setup(projectPath, docs.Request{
		Architecture: docsArchitecture,
		Requirements: docsRequirements,
		Design:       docsDesign,
	})
	if err != nil {
		return fmt.Errorf("setting up project docs: %w", err)
	}

	cmd.Printf("architecture: %s (%s)\n", res.Architecture.Action, res.Architecture.Path)
	cmd.Printf("requirements: %s (%s)\n", res.Requirements.Action, res.Requirements.Path)
	cmd.Printf("design:       %s (%s)\n", res.Design.Action, res.Design.Path)
	return nil
}
