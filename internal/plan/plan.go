// Package plan maintains the development plan artifact: a markdown
// document with one section per workflow phase whose checklists are the
// durable memory of progress.
//
// Sections are created lazily on first entry to a phase and never
// silently deleted. The document stays human-editable; the package
// parses it only far enough to find phase headings and checklist
// markers.
package plan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/logging"
	"github.com/fyrsmithlabs/vibed/internal/workflow"
)

// ArtifactInfo carries the conversation context a plan artifact is
// created for.
type ArtifactInfo struct {
	ProjectPath string
	Branch      string
	Phase       string
}

// EnsureResult reports what EnsureArtifact did.
type EnsureResult struct {
	// Created is true when the artifact was written for the first time.
	Created bool

	// SectionAdded is true when the current phase's section was
	// appended to an existing artifact.
	SectionAdded bool

	// Content is the artifact content after the call.
	Content string
}

// Manager creates and maintains plan artifacts. Every operation takes
// the workflow graph it applies to: conversations on different projects
// run different workflows through the same manager.
type Manager struct {
	log *logging.Logger
}

// NewManager creates a plan manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		log: log.Named("plan"),
	}
}

// EnsureArtifact creates the plan artifact or verifies it covers the
// current phase, appending the phase's section when missing.
//
// Idempotent: calling it again on an unmodified artifact leaves the
// file byte-identical, including every checked item.
func (m *Manager) EnsureArtifact(ctx context.Context, def *workflow.Definition, path string, info ArtifactInfo) (*EnsureResult, error) {
	if !def.HasPhase(info.Phase) {
		return nil, &workflow.ValidationError{
			Workflow: def.Name,
			Phase:    info.Phase,
			Detail:   "cannot ensure a plan section for an undeclared phase",
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		content := renderInitial(def, info)
		if err := m.write(path, content); err != nil {
			return nil, err
		}
		m.log.Info(ctx, "plan artifact created",
			zap.String("path", path),
			zap.String("phase", info.Phase))
		return &EnsureResult{Created: true, Content: content}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading plan artifact: %w", err)
	}

	content := string(data)
	if hasSection(content, info.Phase) {
		return &EnsureResult{Content: content}, nil
	}

	updated := appendSection(content, def, info.Phase)
	if err := m.write(path, updated); err != nil {
		return nil, err
	}
	m.log.Info(ctx, "plan section added",
		zap.String("path", path),
		zap.String("phase", info.Phase))
	return &EnsureResult{SectionAdded: true, Content: updated}, nil
}

// Update replaces the artifact content wholesale. Used by callers that
// let an extension rewrite the freshly created document.
func (m *Manager) Update(ctx context.Context, path, content string) error {
	if err := m.write(path, content); err != nil {
		return err
	}
	m.log.Debug(ctx, "plan artifact updated", zap.String("path", path))
	return nil
}

// Delete removes the plan artifact, reporting whether a file was
// actually deleted. A missing artifact is not an error: resetting a
// conversation that never wrote a plan is fine.
func (m *Manager) Delete(ctx context.Context, path string) (bool, error) {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting plan artifact: %w", err)
	}
	m.log.Info(ctx, "plan artifact deleted", zap.String("path", path))
	return true, nil
}

// Read returns the artifact content. A missing artifact yields an empty
// string: the plan simply has not been written yet.
func (m *Manager) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading plan artifact: %w", err)
	}
	return string(data), nil
}

// GuidanceFor describes how to use the plan file while in the given
// phase. The text names the exact section and holds up whether or not
// the artifact exists yet.
func (m *Manager) GuidanceFor(def *workflow.Definition, phase string) string {
	p, ok := def.Phase(phase)
	if !ok {
		panic(fmt.Sprintf("plan: guidance requested for phase %q not in workflow %q", phase, def.Name))
	}

	heading := sectionHeading(phase)
	tasks := fmt.Sprintf("Track your work in the %q section of the plan file: "+
		"record each piece of work as a `- [ ]` task under %q and mark it `- [x]` as it completes.",
		heading, tasksHeading)
	created := fmt.Sprintf("If the plan file does not exist yet, it is created with the %q section the moment this phase begins.", heading)
	decisions := fmt.Sprintf("Record notable choices and their rationale under %q.", decisionsHeading)

	if len(p.Transitions) == 0 {
		return fmt.Sprintf("%s %s This is a terminal phase: close out the remaining tasks and leave the document as the record of what happened. %s",
			tasks, created, decisions)
	}
	return fmt.Sprintf("%s %s Confirm the %q items before declaring the phase done. %s",
		tasks, created, entranceHeading, decisions)
}

// write replaces the artifact through a temp file and rename so a crash
// mid-write cannot corrupt the document.
func (m *Manager) write(path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating plan directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing plan artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing plan artifact: %w", err)
	}
	return nil
}
