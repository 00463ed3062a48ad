// Package web provides HTTP request and response types for the analysis API.
package web

import "github.com/codegenius/codegenius/pkg/models"

// SubmitAnalysisRequest represents the request body for submitting a
// repository analysis.
type SubmitAnalysisRequest struct {
	RepositoryURL   string            `json:"repository_url"             validate:"required"`
	Branch          string            `json:"branch,omitempty"`
	Depth           string            `json:"depth,omitempty"            validate:"omitempty,oneof=quick standard full"`
	Formats         []string          `json:"formats,omitempty"          validate:"omitempty,dive,oneof=markdown html"`
	IncludeDiagrams bool              `json:"include_diagrams,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ToModel converts the request body into the domain submission payload.
func (r SubmitAnalysisRequest) ToModel() models.AnalysisRequest {
	return models.AnalysisRequest{
		RepositoryURL:   r.RepositoryURL,
		Branch:          r.Branch,
		Depth:           r.Depth,
		Formats:         r.Formats,
		IncludeDiagrams: r.IncludeDiagrams,
		Metadata:        r.Metadata,
	}
}

// ConfigResponse describes the pipeline configuration served to clients.
type ConfigResponse struct {
	Capabilities []string `json:"capabilities"`
	Phases       []string `json:"phases"`
	Depths       []string `json:"depths"`
	Formats      []string `json:"formats"`
	MaxListLimit int      `json:"max_list_limit"`
}
