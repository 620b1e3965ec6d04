// Package project resolves per-project context: the absolute project
// path, the current git branch, and the .vibed dot directory layout.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
)

const (
	dotDirName  = ".vibed"
	docsDirName = "docs"

	// DefaultBranch keys conversations for projects that are not git
	// repositories or whose HEAD is unborn.
	DefaultBranch = "default"
)

// Info identifies one project checkout.
type Info struct {
	Path   string
	Branch string
}

// Resolve normalizes a project path and detects its current branch.
func Resolve(path string) (*Info, error) {
	if path == "" {
		return nil, errors.New("project path is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving project path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("project path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path %s is not a directory", abs)
	}

	return &Info{
		Path:   abs,
		Branch: CurrentBranch(abs),
	}, nil
}

// CurrentBranch reads the checked-out branch name, searching parent
// directories for the repository root the way git itself does.
//
// Non-repositories and repositories without commits report DefaultBranch.
// A detached HEAD reports "HEAD", matching `git rev-parse --abbrev-ref`.
func CurrentBranch(path string) string {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return DefaultBranch
	}
	head, err := repo.Head()
	if err != nil {
		return DefaultBranch
	}
	return head.Name().Short()
}

// DotDir returns the project's .vibed directory.
func DotDir(projectPath string) string {
	return filepath.Join(projectPath, dotDirName)
}

// EnsureDotDir creates the .vibed directory if missing.
func EnsureDotDir(projectPath string) (string, error) {
	dir := DotDir(projectPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// PlanFilePath returns the per-branch plan artifact path.
func PlanFilePath(projectPath, branch string) string {
	return filepath.Join(DotDir(projectPath), "development-plan-"+branchSlug(branch)+".md")
}

// DocsDir returns the project documents directory.
func DocsDir(projectPath string) string {
	return filepath.Join(DotDir(projectPath), docsDirName)
}

// ArchitectureDocPath returns the architecture document location.
func ArchitectureDocPath(projectPath string) string {
	return filepath.Join(DocsDir(projectPath), "architecture.md")
}

// RequirementsDocPath returns the requirements document location.
func RequirementsDocPath(projectPath string) string {
	return filepath.Join(DocsDir(projectPath), "requirements.md")
}

// DesignDocPath returns the design document location.
func DesignDocPath(projectPath string) string {
	return filepath.Join(DocsDir(projectPath), "design.md")
}

// Docs holds the project document paths that exist on disk. A document
// that has not been set up yet leaves its field empty, so instruction
// text referencing it renders without a dangling path.
type Docs struct {
	Architecture string
	Requirements string
	Design       string
}

// ExistingDocs probes which project documents are present.
func ExistingDocs(projectPath string) Docs {
	var docs Docs
	if path := ArchitectureDocPath(projectPath); fileExists(path) {
		docs.Architecture = path
	}
	if path := RequirementsDocPath(projectPath); fileExists(path) {
		docs.Requirements = path
	}
	if path := DesignDocPath(projectPath); fileExists(path) {
		docs.Design = path
	}
	return docs
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// branchSlug maps a branch name to a filename-safe identifier. Branch
// names may contain slashes and other characters unfit for filenames.
func branchSlug(branch string) string {
	if branch == "" {
		return DefaultBranch
	}

	var b strings.Builder
	for _, r := range strings.ToLower(branch) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return DefaultBranch
	}
	return slug
}
