// Package docwriter provides the documentation generation capability.
package docwriter

import (
	"log/slog"

	"github.com/codegenius/codegenius/pkg/protocol"
)

const CapabilityID = "doc-writer"

type Factory struct{}

func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Capability, error) {
	return NewWriter(config, logger)
}

func (f *Factory) ID() string {
	return CapabilityID
}

func (f *Factory) Name() string {
	return "Documentation Writer"
}

func (f *Factory) Description() string {
	return "Renders repository documentation in the requested formats from the mapping and analysis outputs"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template": map[string]any{
				"type":        "string",
				"description": "Markdown template overriding the built-in one",
			},
		},
	}
}
