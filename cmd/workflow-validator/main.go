// Package main implements a standalone workflow definition validator.
//
// Intended for CI and pre-commit hooks where the full vibed binary is
// not installed. Applies the same rules the server applies on load.
//
// Usage:
//
//	workflow-validator .vibed/workflows/*.yaml
//	workflow-validator -json definitions/epcc.yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

type fileReport struct {
	Path   string   `json:"path"`
	Valid  bool     `json:"valid"`
	Error  string   `json:"error,omitempty"`
	Name   string   `json:"name,omitempty"`
	Phases []string `json:"phases,omitempty"`
}

func main() {
	var (
		jsonOut = flag.Bool("json", false, "Emit one JSON report per file")
		quiet   = flag.Bool("quiet", false, "Suppress per-file output; exit code only")
	)
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: workflow-validator [-json] [-quiet] <file>...")
		os.Exit(2)
	}

	failed := 0
	for _, path := range files {
		report := validateFile(path)
		if !report.Valid {
			failed++
		}
		if *quiet {
			continue
		}
		if *jsonOut {
			if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
				fmt.Fprintf(os.Stderr, "encoding report: %v\n", err)
				os.Exit(2)
			}
			continue
		}
		if report.Valid {
			fmt.Printf("ok    %s (%s: %d phases)\n", path, report.Name, len(report.Phases))
		} else {
			fmt.Printf("FAIL  %s\n      %s\n", path, report.Error)
		}
	}

	if failed > 0 {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "%d of %d file(s) failed validation\n", failed, len(files))
		}
		os.Exit(1)
	}
}

func validateFile(path string) fileReport {
	def, err := workflow.LoadFile(path)
	if err != nil {
		return fileReport{Path: path, Valid: false, Error: err.Error()}
	}
	return fileReport{
		Path:   path,
		Valid:  true,
		Name:   def.Name,
		Phases: def.PhaseNames(),
	}
}
