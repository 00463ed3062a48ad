package models

// Capability output keys the orchestrator and built-in capabilities agree
// on. Score keys feed quality aggregation; FinalOutputKey holds the rendered
// documentation artifact.
const (
	ScoreKey       = "score"
	FinalOutputKey = "final_output"
)

// QualityMetrics aggregates the scores reported by capabilities. Values are
// plain arithmetic over reported scores; a capability that reports no score
// counts as zero.
type QualityMetrics struct {
	RepositoryScore      float64 `json:"repository_score"`
	AnalysisScore        float64 `json:"analysis_score"`
	DocumentationScore   float64 `json:"documentation_score"`
	OverallScore         float64 `json:"overall_score"`
	ProcessingEfficiency float64 `json:"processing_efficiency"`
}

// AnalysisResult is the aggregation of all phase payloads for a completed
// workflow.
type AnalysisResult struct {
	Repository     map[string]any     `json:"repository,omitempty"`
	Analysis       map[string]any     `json:"analysis,omitempty"`
	Documentation  map[string]any     `json:"documentation,omitempty"`
	Quality        QualityMetrics     `json:"quality"`
	ProcessingTime float64            `json:"processing_time"`
	PhaseDurations map[string]float64 `json:"phase_durations,omitempty"`
}

// FinalOutput returns the rendered documentation artifact, or empty when
// the documentation phase produced none.
func (r *AnalysisResult) FinalOutput() string {
	if r == nil || r.Documentation == nil {
		return ""
	}

	if s, ok := r.Documentation[FinalOutputKey].(string); ok {
		return s
	}

	return ""
}

// Clone returns a deep copy of the result.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Repository = cloneAnyMap(r.Repository)
	clone.Analysis = cloneAnyMap(r.Analysis)
	clone.Documentation = cloneAnyMap(r.Documentation)

	if r.PhaseDurations != nil {
		clone.PhaseDurations = make(map[string]float64, len(r.PhaseDurations))
		for k, v := range r.PhaseDurations {
			clone.PhaseDurations[k] = v
		}
	}

	return &clone
}
