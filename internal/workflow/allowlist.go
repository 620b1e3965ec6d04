package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	projectDirName    = ".vibed"
	projectConfigName = "config.yaml"
	overridesDirName  = "workflows"
)

// ProjectConfig is the per-project workflow configuration read from
// .vibed/config.yaml.
type ProjectConfig struct {
	// EnabledWorkflows restricts which built-in workflows are visible to
	// the project. nil means no restriction. Project override files are
	// not subject to the restriction; the project author placed them
	// deliberately.
	EnabledWorkflows []string
}

// restricts reports whether an allow-list is configured.
func (c *ProjectConfig) restricts() bool {
	return c != nil && c.EnabledWorkflows != nil
}

// allows reports whether a built-in name passes the allow-list.
func (c *ProjectConfig) allows(name string) bool {
	if !c.restricts() {
		return true
	}
	for _, n := range c.EnabledWorkflows {
		if n == name {
			return true
		}
	}
	return false
}

// LoadProjectConfig reads the project's workflow configuration.
//
// A missing file yields an empty configuration. A present but malformed
// allow-list (empty list, non-list value, non-string entries) is a
// validation error, not a warning.
func LoadProjectConfig(projectPath string) (*ProjectConfig, error) {
	path := filepath.Join(projectPath, projectDirName, projectConfigName)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &ProjectConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading project config: %w", err)
	}
	if info.Size() > maxDefinitionSize {
		return nil, fmt.Errorf("project config %s too large: %d bytes (max %d)", path, info.Size(), maxDefinitionSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project config: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, newValidationError("", "", "", "project config %s: invalid YAML: %v", path, err)
	}

	if !k.Exists("enabled_workflows") {
		return &ProjectConfig{}, nil
	}

	// Inspect the raw value: koanf's weakly typed unmarshal would silently
	// promote a scalar to a one-element list, and a non-list value must be
	// rejected, not repaired.
	raw := k.Get("enabled_workflows")
	list, ok := raw.([]interface{})
	if !ok {
		return nil, newValidationError("", "", "", "project config %s: enabled_workflows must be a list of workflow names", path)
	}
	if len(list) == 0 {
		return nil, newValidationError("", "", "", "project config %s: enabled_workflows cannot be empty", path)
	}

	names := make([]string, 0, len(list))
	for _, item := range list {
		name, ok := item.(string)
		if !ok || name == "" {
			return nil, newValidationError("", "", "", "project config %s: enabled_workflows entries must be non-empty strings", path)
		}
		names = append(names, name)
	}

	return &ProjectConfig{EnabledWorkflows: names}, nil
}

// projectWorkflowsDir returns the project's override directory.
func projectWorkflowsDir(projectPath string) string {
	return filepath.Join(projectPath, projectDirName, overridesDirName)
}

// overridePath locates a project override file for the named workflow,
// trying the .yaml extension first, then .yml.
func overridePath(projectPath, name string) (string, bool) {
	dir := projectWorkflowsDir(projectPath)
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
