package httpagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/protocol"
)

// RetryConfig defines retry behavior for delegated phase requests.
type RetryConfig struct {
	Attempts int `json:"attempts"`
	Delay    int `json:"delay"`
}

type Agent struct {
	endpoint string
	retries  RetryConfig
	client   *http.Client
	logger   *slog.Logger
}

func NewAgent(config map[string]any, logger *slog.Logger) (*Agent, error) {
	agent := &Agent{
		retries: RetryConfig{Attempts: 1, Delay: 1000},
		logger:  logger.With("module", "http_agent"),
	}

	endpoint, ok := config["endpoint"].(string)
	if !ok || endpoint == "" {
		return nil, errors.New("missing required field 'endpoint'")
	}

	agent.endpoint = endpoint

	timeout := 30
	if value, ok := config["timeout"].(float64); ok {
		timeout = int(value)
	}

	agent.client = &http.Client{Timeout: time.Duration(timeout) * time.Second}

	if retries, ok := config["retries"].(map[string]any); ok {
		if attempts, ok := retries["attempts"].(float64); ok {
			agent.retries.Attempts = int(attempts)
		}

		if delay, ok := retries["delay"].(float64); ok {
			agent.retries.Delay = int(delay)
		}
	}

	return agent, nil
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (a *Agent) Run(ctx context.Context, phaseCtx *models.PhaseContext) (map[string]any, error) {
	payload, err := json.Marshal(phaseCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal phase context: %w", err)
	}

	var lastErr error

	for attempt := 1; attempt <= a.retries.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(a.retries.Delay) * time.Millisecond):
			}
		}

		output, err := a.performRequest(ctx, payload)
		if err == nil {
			return output, nil
		}

		lastErr = err

		// Client errors and malformed responses won't improve on retry.
		httpErr := &HTTPError{}
		if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
			break
		}

		invalidOutput := &protocol.InvalidOutputError{}
		if errors.As(err, &invalidOutput) {
			break
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("delegated phase failed after %d attempts: %w", a.retries.Attempts, lastErr)
}

func (a *Agent) performRequest(ctx context.Context, payload []byte) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var output map[string]any

	err = json.Unmarshal(respBody, &output)
	if err != nil {
		return nil, protocol.NewInvalidOutputError(CapabilityID, "endpoint response is not a JSON object")
	}

	return output, nil
}
