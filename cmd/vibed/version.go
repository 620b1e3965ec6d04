package main

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	cmd.Printf("vibed by Fyrsmith Labs\n")
	cmd.Printf("Version:    %s\n", version)
	cmd.Printf("Commit:     %s\n", gitCommit)
	cmd.Printf("Build Date: %s\n", buildDate)
}
