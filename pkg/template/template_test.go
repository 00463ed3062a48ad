package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Basic(t *testing.T) {
	result, err := Render("# {{.name}}\n\nFiles: {{.files}}", map[string]any{
		"name":  "fiber",
		"files": 42,
	})
	require.NoError(t, err)
	assert.Equal(t, "# fiber\n\nFiles: 42", result)
}

func TestRender_PercentHelper(t *testing.T) {
	result, err := Render("{{percent .share}}", map[string]any{"share": 0.857})
	require.NoError(t, err)
	assert.Equal(t, "85.7%", result)
}

func TestRender_JoinHelper(t *testing.T) {
	result, err := Render(`{{join .formats ", "}}`, map[string]any{
		"formats": []string{"markdown", "html"},
	})
	require.NoError(t, err)
	assert.Equal(t, "markdown, html", result)
}

func TestRender_SortedKeysHelper(t *testing.T) {
	result, err := Render(`{{range sortedKeys .languages}}{{.}};{{end}}`, map[string]any{
		"languages": map[string]any{"Go": 10, "JavaScript": 3, "Makefile": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "Go;JavaScript;Makefile;", result)
}

func TestRender_ParseError(t *testing.T) {
	_, err := Render("{{.unclosed", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}

func TestRender_MissingFunction(t *testing.T) {
	_, err := Render("{{unknownFn .x}}", map[string]any{"x": 1})
	require.Error(t, err)
}
