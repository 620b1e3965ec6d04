package plugins

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugins.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
[[plugin]]
name = "changelog"
hooks = ["after-instructions-generated"]
command = "scripts/changelog-hook.sh"
timeout = "5s"

[[plugin]]
name = "plan-lint"
hooks = ["after-plan-artifact-created", "after-instructions-generated"]
command = "/usr/local/bin/plan-lint"
args = ["--strict"]
`)

	m, err := LoadManifest(path)

	require.NoError(t, err)
	require.Len(t, m.Plugins, 2)

	assert.Equal(t, "changelog", m.Plugins[0].Name)
	assert.Equal(t, []string{"after-instructions-generated"}, m.Plugins[0].Hooks)
	assert.Equal(t, "scripts/changelog-hook.sh", m.Plugins[0].Command)
	assert.Equal(t, 5*time.Second, m.Plugins[0].Timeout.Duration())

	assert.Equal(t, "plan-lint", m.Plugins[1].Name)
	assert.Equal(t, []string{"--strict"}, m.Plugins[1].Args)
	assert.Zero(t, m.Plugins[1].Timeout.Duration())
}

func TestLoadManifest_Missing(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "plugins.toml"))

	require.NoError(t, err)
	assert.Empty(t, m.Plugins)
}

func TestLoadManifest_MalformedTOML(t *testing.T) {
	path := writeManifest(t, "[[plugin]\nname = broken")

	_, err := LoadManifest(path)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestLoadManifest_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantMsg  string
	}{
		{
			name: "missing name",
			manifest: `
[[plugin]]
hooks = ["after-instructions-generated"]
command = "run.sh"
`,
			wantMsg: "name is required",
		},
		{
			name: "duplicate name",
			manifest: `
[[plugin]]
name = "dup"
hooks = ["after-instructions-generated"]
command = "a.sh"

[[plugin]]
name = "dup"
hooks = ["after-instructions-generated"]
command = "b.sh"
`,
			wantMsg: "duplicate name",
		},
		{
			name: "missing command",
			manifest: `
[[plugin]]
name = "nocmd"
hooks = ["after-instructions-generated"]
`,
			wantMsg: "command is required",
		},
		{
			name: "no hooks",
			manifest: `
[[plugin]]
name = "nohooks"
command = "run.sh"
`,
			wantMsg: "at least one hook is required",
		},
		{
			name: "unknown hook",
			manifest: `
[[plugin]]
name = "mystery"
hooks = ["before-coffee"]
command = "run.sh"
`,
			wantMsg: `unknown hook "before-coffee"`,
		},
		{
			name: "negative timeout",
			manifest: `
[[plugin]]
name = "rushed"
hooks = ["after-instructions-generated"]
command = "run.sh"
timeout = "-1s"
`,
			wantMsg: "timeout must not be negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, tt.manifest))

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidManifest)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
