// Package docs manages the project document set under .vibed/docs:
// architecture, requirements, and design. Documents are created from
// embedded starter templates or linked to files the project already
// has; existing documents are never overwritten.
package docs

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/vibed/internal/project"
)

//go:embed templates/*.md
var templates embed.FS

// Action records what Setup did for one document.
type Action string

const (
	// ActionCreated means the document was written from its template.
	ActionCreated Action = "created"
	// ActionLinked means the document is a symlink to an existing file.
	ActionLinked Action = "linked"
	// ActionExists means the document was already present and untouched.
	ActionExists Action = "exists"
)

// Request selects a source per document. An empty source means the
// embedded starter template; a non-empty source is a path to an
// existing file the document should link to.
type Request struct {
	Architecture string
	Requirements string
	Design       string
}

// DocResult reports the outcome for one document.
type DocResult struct {
	Path   string `json:"path"`
	Action Action `json:"action"`
}

// Result reports the outcome for the full document set.
type Result struct {
	Architecture DocResult `json:"architecture"`
	Requirements DocResult `json:"requirements"`
	Design       DocResult `json:"design"`
}

// Setup materializes the project document set. It is idempotent: a
// document that already exists is reported and left alone, whatever
// source the request names for it.
func Setup(projectPath string, req Request) (*Result, error) {
	dir := project.DocsDir(projectPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating docs directory: %w", err)
	}

	var res Result
	var err error

	if res.Architecture, err = setupDoc(project.ArchitectureDocPath(projectPath), "architecture", req.Architecture); err != nil {
		return nil, err
	}
	if res.Requirements, err = setupDoc(project.RequirementsDocPath(projectPath), "requirements", req.Requirements); err != nil {
		return nil, err
	}
	if res.Design, err = setupDoc(project.DesignDocPath(projectPath), "design", req.Design); err != nil {
		return nil, err
	}
	return &res, nil
}

func setupDoc(path, template, source string) (DocResult, error) {
	if _, err := os.Lstat(path); err == nil {
		return DocResult{Path: path, Action: ActionExists}, nil
	} else if !os.IsNotExist(err) {
		return DocResult{}, fmt.Errorf("checking %s: %w", path, err)
	}

	if source != "" {
		return linkDoc(path, source)
	}
	return createDoc(path, template)
}

// linkDoc points the document at a file the project already maintains,
// so instruction variables resolve to the project's own source of truth.
func linkDoc(path, source string) (DocResult, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return DocResult{}, fmt.Errorf("resolving document source: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DocResult{}, fmt.Errorf("document source: %w", err)
	}
	if info.IsDir() {
		return DocResult{}, fmt.Errorf("document source %s is a directory", abs)
	}
	if err := os.Symlink(abs, path); err != nil {
		return DocResult{}, fmt.Errorf("linking %s: %w", path, err)
	}
	return DocResult{Path: path, Action: ActionLinked}, nil
}

func createDoc(path, template string) (DocResult, error) {
	content, err := templates.ReadFile("templates/" + template + ".md")
	if err != nil {
		// Template names are fixed at compile time.
		panic(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return DocResult{}, fmt.Errorf("writing %s: %w", path, err)
	}
	return DocResult{Path: path, Action: ActionCreated}, nil
}
