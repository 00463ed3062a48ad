// Package template provides templating functionality for document rendering.
package template

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"
)

// Render executes templateStr against data and returns the rendered text.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("document").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"percent": func(value float64) string {
				return fmt.Sprintf("%.1f%%", value*100)
			},
			"join": func(values []string, separator string) string {
				return strings.Join(values, separator)
			},
			"sortedKeys": sortedKeys,
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// sortedKeys keeps map-driven template sections deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
