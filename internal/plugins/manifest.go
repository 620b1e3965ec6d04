package plugins

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/fyrsmithlabs/vibed/internal/config"
	"github.com/fyrsmithlabs/vibed/internal/hooks"
)

// ErrInvalidManifest wraps every manifest parse or validation failure.
var ErrInvalidManifest = errors.New("invalid plugin manifest")

// knownHooks is the set of hook points a manifest may attach to.
var knownHooks = map[hooks.HookType]bool{
	hooks.HookAfterPlanArtifactCreated:   true,
	hooks.HookAfterInstructionsGenerated: true,
}

// Manifest mirrors the `.vibed/plugins.toml` document.
type Manifest struct {
	Plugins []Plugin `toml:"plugin"`
}

// Plugin declares one exec-backed extension.
type Plugin struct {
	Name    string          `toml:"name"`
	Hooks   []string        `toml:"hooks"`
	Command string          `toml:"command"`
	Args    []string        `toml:"args"`
	Timeout config.Duration `toml:"timeout"`
}

// LoadManifest reads the plugin manifest at path. A missing file yields
// an empty manifest; anything else that fails is a startup error.
func LoadManifest(path string) (*Manifest, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("checking plugin manifest: %w", err)
	}

	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[string]bool, len(m.Plugins))
	for i, p := range m.Plugins {
		if p.Name == "" {
			return fmt.Errorf("plugin %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("plugin %q: duplicate name", p.Name)
		}
		seen[p.Name] = true

		if p.Command == "" {
			return fmt.Errorf("plugin %q: command is required", p.Name)
		}
		if len(p.Hooks) == 0 {
			return fmt.Errorf("plugin %q: at least one hook is required", p.Name)
		}
		for _, h := range p.Hooks {
			if !knownHooks[hooks.HookType(h)] {
				return fmt.Errorf("plugin %q: unknown hook %q", p.Name, h)
			}
		}
		if p.Timeout.Duration() < 0 {
			return fmt.Errorf("plugin %q: timeout must not be negative", p.Name)
		}
	}
	return nil
}
