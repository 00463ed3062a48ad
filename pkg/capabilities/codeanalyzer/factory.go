// Package codeanalyzer provides the code analysis capability.
package codeanalyzer

import (
	"log/slog"

	"github.com/codegenius/codegenius/pkg/protocol"
)

const CapabilityID = "code-analyzer"

type Factory struct{}

func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Capability, error) {
	return NewAnalyzer(config, logger)
}

func (f *Factory) ID() string {
	return CapabilityID
}

func (f *Factory) Name() string {
	return "Code Analyzer"
}

func (f *Factory) Description() string {
	return "Derives language composition, entry points, and an analysis score from the repository descriptor"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"largest_files": map[string]any{
				"type":        "number",
				"description": "How many of the largest files to carry into the analysis report",
				"default":     5,
				"minimum":     0,
				"maximum":     20,
			},
		},
	}
}
