package models

import (
	"maps"
	"slices"
)

// Analysis depth levels. Depth is advisory for capabilities: quick bounds
// traversal, full is exhaustive.
const (
	DepthQuick    = "quick"
	DepthStandard = "standard"
	DepthFull     = "full"
)

// Documentation output formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// DefaultBranch is assumed when a submission names none.
const DefaultBranch = "main"

// AnalysisRequest is the submission payload for one workflow. It is
// immutable once the workflow record is created.
type AnalysisRequest struct {
	RepositoryURL   string            `json:"repository_url"             validate:"required"`
	Branch          string            `json:"branch,omitempty"`
	Depth           string            `json:"depth,omitempty"            validate:"omitempty,oneof=quick standard full"`
	Formats         []string          `json:"formats,omitempty"          validate:"omitempty,dive,oneof=markdown html"`
	IncludeDiagrams bool              `json:"include_diagrams,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ApplyDefaults fills unset optional fields: branch main, depth full,
// markdown output.
func (r *AnalysisRequest) ApplyDefaults() {
	if r.Branch == "" {
		r.Branch = DefaultBranch
	}

	if r.Depth == "" {
		r.Depth = DepthFull
	}

	if len(r.Formats) == 0 {
		r.Formats = []string{FormatMarkdown}
	}
}

// Clone returns a copy that shares no mutable state with the receiver.
func (r AnalysisRequest) Clone() AnalysisRequest {
	clone := r
	clone.Formats = slices.Clone(r.Formats)
	clone.Metadata = maps.Clone(r.Metadata)

	return clone
}
