package instruction

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// hasTemplate reports whether text contains template markers worth
// parsing. Plain text skips the template machinery entirely.
func hasTemplate(text string) bool {
	return strings.Contains(text, "{{")
}

// renderTemplate expands {{ }} expressions with the sprig function map.
// Missing keys render as zero values rather than failing; workflow
// authors get sprig's string helpers without being able to break a
// request.
func renderTemplate(text string, data map[string]any) (string, error) {
	if !hasTemplate(text) {
		return text, nil
	}

	tmpl, err := template.New("instructions").Funcs(sprig.FuncMap()).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing instruction template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering instruction template: %w", err)
	}
	return buf.String(), nil
}
