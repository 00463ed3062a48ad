// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/codegenius/codegenius/pkg/registry"
)

// NewRegistry creates a capability registry with the native capabilities and,
// when pluginsPath is set, every capability plugin found there.
func NewRegistry(log *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(log)

	if pluginsPath != "" {
		if _, err := reg.LoadCapabilityPlugins(pluginsPath); err != nil {
			panic(err)
		}
	}

	reg.RegisterDefaultCapabilities()

	return reg
}
