// Package catalog embeds the built-in workflow definitions shipped with
// the daemon.
package catalog

import (
	"embed"
	"sort"
	"strings"
)

//go:embed *.yaml
var definitions embed.FS

// Names returns the built-in workflow names, sorted.
func Names() []string {
	entries, err := definitions.ReadDir(".")
	if err != nil {
		// The embedded filesystem root always exists.
		panic(err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Has reports whether a built-in workflow with the given name exists.
func Has(name string) bool {
	_, err := definitions.ReadFile(name + ".yaml")
	return err == nil
}

// Read returns the raw definition document for a built-in workflow.
//
// The error wraps fs.ErrNotExist when no such workflow is embedded.
func Read(name string) ([]byte, error) {
	return definitions.ReadFile(name + ".yaml")
}
