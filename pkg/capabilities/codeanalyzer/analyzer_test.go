package codeanalyzer

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

func phaseContextWithMapping(mapping map[string]any) *models.PhaseContext {
	workflow := models.NewWorkflow("wf-1", models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
	})
	workflow.Input.ApplyDefaults()

	phaseCtx := models.NewPhaseContext(workflow)
	if mapping != nil {
		phaseCtx.Outputs[models.PhaseMapping] = mapping
	}

	return phaseCtx
}

func sampleMapping() map[string]any {
	return map[string]any{
		"repository":       "widget",
		"total_files":      20,
		"total_size_bytes": int64(40000),
		"languages":        map[string]int{"Go": 15, "Markdown": 3, "YAML": 2},
		"entry_points":     []string{"main.go"},
		"has_tests":        true,
		"largest_files": []map[string]any{
			{"path": "big.go", "size_bytes": 9000},
			{"path": "main.go", "size_bytes": 5000},
		},
	}
}

func TestAnalyzer_Run(t *testing.T) {
	analyzer, err := NewAnalyzer(map[string]any{}, testLogger())
	require.NoError(t, err)

	output, err := analyzer.Run(context.Background(), phaseContextWithMapping(sampleMapping()))
	require.NoError(t, err)

	assert.Equal(t, "widget", output["repository"])
	assert.Equal(t, "Go", output["primary_language"])
	assert.InDelta(t, 0.75, output["primary_share"], 1e-9)

	shares, ok := output["language_shares"].(map[string]float64)
	require.True(t, ok)
	assert.InDelta(t, 0.75, shares["Go"], 1e-9)
	assert.InDelta(t, 0.15, shares["Markdown"], 1e-9)

	assert.Equal(t, 3, output["languages_detected"])
	assert.Equal(t, true, output["tests_present"])
	assert.InDelta(t, 2000.0, output["average_file_size_bytes"], 1e-9)

	// entry points + dominant language + tests + enough files
	assert.InDelta(t, 1.0, output[models.ScoreKey], 1e-9)
}

func TestAnalyzer_Run_JSONRoundTrippedMapping(t *testing.T) {
	// Phase outputs loaded from a store arrive as generic JSON values.
	mapping := map[string]any{
		"repository":       "widget",
		"total_files":      float64(4),
		"total_size_bytes": float64(800),
		"languages":        map[string]any{"Python": float64(4)},
		"entry_points":     []any{"main.py"},
		"has_tests":        false,
	}

	analyzer, err := NewAnalyzer(map[string]any{}, testLogger())
	require.NoError(t, err)

	output, err := analyzer.Run(context.Background(), phaseContextWithMapping(mapping))
	require.NoError(t, err)

	assert.Equal(t, "Python", output["primary_language"])
	assert.Equal(t, []string{"main.py"}, output["entry_points"])

	// entry points + dominant language, but no tests and too few files
	assert.InDelta(t, 0.7, output[models.ScoreKey], 1e-9)
}

func TestAnalyzer_Run_MissingMappingOutput(t *testing.T) {
	analyzer, err := NewAnalyzer(map[string]any{}, testLogger())
	require.NoError(t, err)

	_, err = analyzer.Run(context.Background(), phaseContextWithMapping(nil))
	require.Error(t, err)

	invalidOutput := &protocol.InvalidOutputError{}
	require.ErrorAs(t, err, &invalidOutput)
	assert.Equal(t, CapabilityID, invalidOutput.CapabilityID)
}

func TestAnalyzer_Run_MalformedLanguages(t *testing.T) {
	mapping := sampleMapping()
	mapping["languages"] = "not-a-map"

	analyzer, err := NewAnalyzer(map[string]any{}, testLogger())
	require.NoError(t, err)

	_, err = analyzer.Run(context.Background(), phaseContextWithMapping(mapping))

	invalidOutput := &protocol.InvalidOutputError{}
	require.ErrorAs(t, err, &invalidOutput)
}

func TestAnalyzer_Run_LargestFilesTrimmed(t *testing.T) {
	analyzer, err := NewAnalyzer(map[string]any{"largest_files": float64(1)}, testLogger())
	require.NoError(t, err)

	output, err := analyzer.Run(context.Background(), phaseContextWithMapping(sampleMapping()))
	require.NoError(t, err)

	largest, ok := output["largest_files"].([]any)
	require.True(t, ok)
	assert.Len(t, largest, 1)
}

func TestAnalyzer_Run_Cancelled(t *testing.T) {
	analyzer, err := NewAnalyzer(map[string]any{}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = analyzer.Run(ctx, phaseContextWithMapping(sampleMapping()))
	require.ErrorIs(t, err, context.Canceled)
}
