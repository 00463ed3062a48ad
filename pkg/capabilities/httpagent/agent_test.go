package httpagent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPhaseContext() *models.PhaseContext {
	workflow := models.NewWorkflow("wf-1", models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
	})
	workflow.Input.ApplyDefaults()

	return models.NewPhaseContext(workflow)
}

func TestNewAgent_RequiresEndpoint(t *testing.T) {
	_, err := NewAgent(map[string]any{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestAgent_Run_AdoptsResponse(t *testing.T) {
	var receivedWorkflowID atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var phaseCtx models.PhaseContext

		require.NoError(t, json.NewDecoder(r.Body).Decode(&phaseCtx))
		receivedWorkflowID.Store(phaseCtx.WorkflowID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary": "delegated", "score": 0.9}`))
	}))
	defer server.Close()

	agent, err := NewAgent(map[string]any{"endpoint": server.URL}, testLogger())
	require.NoError(t, err)

	output, err := agent.Run(context.Background(), testPhaseContext())
	require.NoError(t, err)

	assert.Equal(t, "delegated", output["summary"])
	assert.InDelta(t, 0.9, output["score"], 1e-9)
	assert.Equal(t, "wf-1", receivedWorkflowID.Load())
}

func TestAgent_Run_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		_, _ = w.Write([]byte(`{"summary": "eventually"}`))
	}))
	defer server.Close()

	agent, err := NewAgent(map[string]any{
		"endpoint": server.URL,
		"retries":  map[string]any{"attempts": float64(3), "delay": float64(0)},
	}, testLogger())
	require.NoError(t, err)

	output, err := agent.Run(context.Background(), testPhaseContext())
	require.NoError(t, err)
	assert.Equal(t, "eventually", output["summary"])
	assert.Equal(t, int32(3), calls.Load())
}

func TestAgent_Run_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	agent, err := NewAgent(map[string]any{
		"endpoint": server.URL,
		"retries":  map[string]any{"attempts": float64(5), "delay": float64(0)},
	}, testLogger())
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), testPhaseContext())
	require.Error(t, err)

	httpErr := &HTTPError{}
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAgent_Run_NonObjectResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[1, 2, 3]`))
	}))
	defer server.Close()

	agent, err := NewAgent(map[string]any{"endpoint": server.URL}, testLogger())
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), testPhaseContext())

	invalidOutput := &protocol.InvalidOutputError{}
	require.ErrorAs(t, err, &invalidOutput)
}

func TestAgent_Run_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	agent, err := NewAgent(map[string]any{
		"endpoint": server.URL,
		"retries":  map[string]any{"attempts": float64(10), "delay": float64(60000)},
	}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = agent.Run(ctx, testPhaseContext())
	require.ErrorIs(t, err, context.Canceled)
}
