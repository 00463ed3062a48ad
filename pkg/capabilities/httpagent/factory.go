// Package httpagent provides a capability that delegates a phase to an external HTTP service.
package httpagent

import (
	"log/slog"

	"github.com/codegenius/codegenius/pkg/protocol"
)

const CapabilityID = "http-agent"

type Factory struct{}

func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Capability, error) {
	return NewAgent(config, logger)
}

func (f *Factory) ID() string {
	return CapabilityID
}

func (f *Factory) Name() string {
	return "HTTP Agent"
}

func (f *Factory) Description() string {
	return "Posts the phase context to an external service and adopts its JSON response as the phase output"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "URL the phase context is posted to",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     30,
				"minimum":     1,
				"maximum":     300,
			},
			"retries": map[string]any{
				"type":        "object",
				"description": "Retry configuration for failed requests",
				"properties": map[string]any{
					"attempts": map[string]any{
						"type":        "number",
						"description": "Number of attempts including the initial request",
						"default":     1,
						"minimum":     1,
						"maximum":     10,
					},
					"delay": map[string]any{
						"type":        "number",
						"description": "Delay between retries in milliseconds",
						"default":     1000,
						"minimum":     0,
						"maximum":     30000,
					},
				},
			},
		},
		"required": []string{"endpoint"},
	}
}
