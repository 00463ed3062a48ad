package codeanalyzer

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/protocol"
)

const defaultLargestFiles = 5

type Analyzer struct {
	largestFiles int
	logger       *slog.Logger
}

func NewAnalyzer(config map[string]any, logger *slog.Logger) (*Analyzer, error) {
	analyzer := &Analyzer{
		largestFiles: defaultLargestFiles,
		logger:       logger.With("module", "code_analyzer"),
	}

	if largestFiles, ok := config["largest_files"].(float64); ok {
		analyzer.largestFiles = int(largestFiles)
	}

	return analyzer, nil
}

func (a *Analyzer) Run(ctx context.Context, phaseCtx *models.PhaseContext) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mapping, ok := phaseCtx.Outputs[models.PhaseMapping]
	if !ok {
		return nil, protocol.NewInvalidOutputError(CapabilityID, "mapping phase output not available")
	}

	languages, ok := languageCounts(mapping["languages"])
	if !ok {
		return nil, protocol.NewInvalidOutputError(CapabilityID, "mapping output is missing the language inventory")
	}

	totalFiles, ok := intValue(mapping["total_files"])
	if !ok {
		return nil, protocol.NewInvalidOutputError(CapabilityID, "mapping output is missing the file count")
	}

	shares, primary, primaryShare := languageShares(languages)
	entryPoints := stringSlice(mapping["entry_points"])
	testsPresent, _ := mapping["has_tests"].(bool)

	averageFileSize := 0.0
	if totalSize, ok := intValue(mapping["total_size_bytes"]); ok && totalFiles > 0 {
		averageFileSize = math.Round(float64(totalSize) / float64(totalFiles))
	}

	output := map[string]any{
		"repository":              mapping["repository"],
		"primary_language":        primary,
		"primary_share":           primaryShare,
		"language_shares":         shares,
		"languages_detected":      len(languages),
		"entry_points":            entryPoints,
		"largest_files":           a.trimLargest(mapping["largest_files"]),
		"average_file_size_bytes": averageFileSize,
		"tests_present":           testsPresent,
		"total_files":             totalFiles,
		models.ScoreKey:           analysisScore(entryPoints, primaryShare, testsPresent, totalFiles),
	}

	return output, nil
}

// analysisScore rewards codebases that are navigable: discoverable entry
// points, a dominant language, tests, and enough substance to document.
func analysisScore(entryPoints []string, primaryShare float64, testsPresent bool, totalFiles int) float64 {
	score := 0.3

	if len(entryPoints) > 0 {
		score += 0.2
	}

	if primaryShare >= 0.5 {
		score += 0.2
	}

	if testsPresent {
		score += 0.15
	}

	if totalFiles >= 10 {
		score += 0.15
	}

	return score
}

func languageShares(languages map[string]int) (map[string]float64, string, float64) {
	classified := 0
	for _, count := range languages {
		classified += count
	}

	shares := make(map[string]float64, len(languages))
	primary := ""
	primaryShare := 0.0

	if classified == 0 {
		return shares, primary, primaryShare
	}

	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		share := float64(languages[name]) / float64(classified)
		shares[name] = share

		if share > primaryShare {
			primary = name
			primaryShare = share
		}
	}

	return shares, primary, primaryShare
}

func (a *Analyzer) trimLargest(value any) []any {
	entries, ok := value.([]any)
	if !ok {
		if typed, ok := value.([]map[string]any); ok {
			entries = make([]any, 0, len(typed))
			for _, entry := range typed {
				entries = append(entries, entry)
			}
		}
	}

	if entries == nil {
		return []any{}
	}

	if len(entries) > a.largestFiles {
		entries = entries[:a.largestFiles]
	}

	return entries
}

// languageCounts tolerates both in-process map[string]int payloads and
// map[string]any payloads that crossed a JSON boundary.
func languageCounts(value any) (map[string]int, bool) {
	switch typed := value.(type) {
	case map[string]int:
		return typed, true
	case map[string]any:
		counts := make(map[string]int, len(typed))

		for name, raw := range typed {
			count, ok := intValue(raw)
			if !ok {
				return nil, false
			}

			counts[name] = count
		}

		return counts, true
	default:
		return nil, false
	}
}

func intValue(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}

func stringSlice(value any) []string {
	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))

		for _, entry := range typed {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return []string{}
	}
}
