// Package repomapper provides the repository mapping capability.
package repomapper

import (
	"log/slog"

	"github.com/codegenius/codegenius/pkg/protocol"
)

const CapabilityID = "repo-mapper"

type Factory struct{}

func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Capability, error) {
	return NewMapper(config, logger)
}

func (f *Factory) ID() string {
	return CapabilityID
}

func (f *Factory) Name() string {
	return "Repository Mapper"
}

func (f *Factory) Description() string {
	return "Walks a repository checkout and produces its structural descriptor: file and language inventory, layout flags, and a structure score"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workspace_root": map[string]any{
				"type":        "string",
				"description": "Directory holding repository checkouts, used when the repository URL is not a local file:// path",
			},
			"max_files": map[string]any{
				"type":        "number",
				"description": "Upper bound on files inspected during a walk",
				"default":     10000,
				"minimum":     1,
				"maximum":     100000,
			},
			"ignore": map[string]any{
				"type":        "array",
				"description": "Directory names skipped during the walk, in addition to the built-in set",
				"items":       map[string]any{"type": "string"},
			},
		},
	}
}
