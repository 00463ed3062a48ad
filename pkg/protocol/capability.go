// Package protocol defines the interfaces and contracts for pluggable analysis capabilities.
package protocol

import (
	"context"
	"log/slog"

	"github.com/codegenius/codegenius/pkg/models"
)

// Capability executes a single analysis phase against a workflow's phase
// context. Implementations never mutate workflow records; they return their
// structured output and let the orchestrator persist it.
type Capability interface {
	// Run executes the phase. The returned map becomes the phase output
	// visible to later phases through PhaseContext.Outputs.
	Run(ctx context.Context, phaseCtx *models.PhaseContext) (map[string]any, error)
}

// CapabilityFactory creates capability instances and provides metadata about
// the capability type. Factories are implemented by built-in capabilities and
// by plugins loaded at startup.
type CapabilityFactory interface {
	// Create instantiates a new Capability with the given configuration.
	// The config map matches the structure described by Schema.
	Create(config map[string]any, logger *slog.Logger) (Capability, error)

	// ID returns the unique identifier for this capability type.
	ID() string

	// Name returns a human-readable name for this capability.
	Name() string

	// Description returns a description of what this capability does.
	Description() string

	// Schema returns a JSON Schema describing the configuration structure
	// required by this capability. Used for validation at registration time.
	Schema() map[string]any
}
