package docwriter

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func phaseContextWithOutputs(request models.AnalysisRequest) *models.PhaseContext {
	request.ApplyDefaults()

	workflow := models.NewWorkflow("wf-1", request)
	phaseCtx := models.NewPhaseContext(workflow)

	phaseCtx.Outputs[models.PhaseMapping] = map[string]any{
		"repository":  "widget",
		"total_files": 20,
		"directories": 4,
		"has_readme":  true,
		"has_tests":   true,
		"has_docs":    false,
		"has_ci":      true,
	}
	phaseCtx.Outputs[models.PhaseAnalysis] = map[string]any{
		"primary_language": "Go",
		"language_shares":  map[string]float64{"Go": 0.75, "Markdown": 0.15, "YAML": 0.1},
		"entry_points":     []string{"main.go"},
	}

	return phaseCtx
}

func TestWriter_Run_Markdown(t *testing.T) {
	writer, err := NewWriter(map[string]any{}, testLogger())
	require.NoError(t, err)

	phaseCtx := phaseContextWithOutputs(models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
	})

	output, err := writer.Run(context.Background(), phaseCtx)
	require.NoError(t, err)

	final, ok := output[models.FinalOutputKey].(string)
	require.True(t, ok)
	assert.Contains(t, final, "# widget")
	assert.Contains(t, final, "Primary language: Go.")
	assert.Contains(t, final, "| Go | 75.0% |")
	assert.Contains(t, final, "- `main.go`")
	assert.Contains(t, final, "- README: present")
	assert.Contains(t, final, "- Documentation directory: missing")
	assert.NotContains(t, final, "mermaid")

	documents, ok := output["documents"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, final, documents[models.FormatMarkdown])
	assert.NotContains(t, documents, models.FormatHTML)
}

func TestWriter_Run_HTMLAndDiagram(t *testing.T) {
	writer, err := NewWriter(map[string]any{}, testLogger())
	require.NoError(t, err)

	phaseCtx := phaseContextWithOutputs(models.AnalysisRequest{
		RepositoryURL:   "https://github.com/acme/widget",
		Formats:         []string{models.FormatMarkdown, models.FormatHTML},
		IncludeDiagrams: true,
	})

	output, err := writer.Run(context.Background(), phaseCtx)
	require.NoError(t, err)

	documents, ok := output["documents"].(map[string]any)
	require.True(t, ok)

	htmlDoc, ok := documents[models.FormatHTML].(string)
	require.True(t, ok)
	assert.Contains(t, htmlDoc, "<title>widget documentation</title>")
	assert.Contains(t, htmlDoc, "&#34;Go&#34;") // markdown body arrives escaped

	markdown, ok := documents[models.FormatMarkdown].(string)
	require.True(t, ok)
	assert.Contains(t, markdown, "pie title Language distribution")
	assert.Contains(t, markdown, `"Go" : 75.0`)

	assert.Equal(t, true, output["diagram_included"])

	// languages + entry points + diagram + both formats
	assert.InDelta(t, 1.0, output[models.ScoreKey], 1e-9)
}

func TestWriter_Run_TemplateOverride(t *testing.T) {
	writer, err := NewWriter(map[string]any{
		"template": "repo={{.repository}} files={{.total_files}}",
	}, testLogger())
	require.NoError(t, err)

	phaseCtx := phaseContextWithOutputs(models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
	})

	output, err := writer.Run(context.Background(), phaseCtx)
	require.NoError(t, err)

	assert.Equal(t, "repo=widget files=20", output[models.FinalOutputKey])
}

func TestWriter_Run_MissingUpstreamOutputs(t *testing.T) {
	writer, err := NewWriter(map[string]any{}, testLogger())
	require.NoError(t, err)

	workflow := models.NewWorkflow("wf-1", models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
	})
	phaseCtx := models.NewPhaseContext(workflow)

	_, err = writer.Run(context.Background(), phaseCtx)

	invalidOutput := &protocol.InvalidOutputError{}
	require.ErrorAs(t, err, &invalidOutput)
	assert.Contains(t, invalidOutput.Reason, "mapping")
}

func TestWriter_Run_BrokenOverrideTemplate(t *testing.T) {
	writer, err := NewWriter(map[string]any{"template": "{{.unclosed"}, testLogger())
	require.NoError(t, err)

	phaseCtx := phaseContextWithOutputs(models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
	})

	_, err = writer.Run(context.Background(), phaseCtx)

	invalidOutput := &protocol.InvalidOutputError{}
	require.ErrorAs(t, err, &invalidOutput)
	assert.Contains(t, invalidOutput.Reason, "markdown render failed")
}
