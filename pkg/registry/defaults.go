package registry

import (
	"github.com/codegenius/codegenius/pkg/capabilities/codeanalyzer"
	"github.com/codegenius/codegenius/pkg/capabilities/docwriter"
	"github.com/codegenius/codegenius/pkg/capabilities/httpagent"
	"github.com/codegenius/codegenius/pkg/capabilities/repomapper"
)

// RegisterDefaultCapabilities registers all built-in capability factories.
func (r *Registry) RegisterDefaultCapabilities() {
	r.RegisterCapability(repomapper.NewFactory())
	r.RegisterCapability(codeanalyzer.NewFactory())
	r.RegisterCapability(docwriter.NewFactory())
	r.RegisterCapability(httpagent.NewFactory())
}
