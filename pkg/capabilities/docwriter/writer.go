package docwriter

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/protocol"
	"github.com/codegenius/codegenius/pkg/template"
)

const defaultMarkdownTemplate = `# {{.repository}}

Generated by CodeGenius at {{now}} from branch {{.branch}}.

## Overview

{{.repository}} contains {{.total_files}} files across {{.directories}} directories.
Primary language: {{.primary_language}}.
{{if .languages}}
## Languages

| Language | Share |
|----------|-------|
{{range .languages}}| {{.name}} | {{.share}} |
{{end}}{{end}}{{if .entry_points}}
## Entry points

{{range .entry_points}}- ` + "`{{.}}`" + `
{{end}}{{end}}
## Project structure

- README: {{if .has_readme}}present{{else}}missing{{end}}
- Tests: {{if .has_tests}}present{{else}}missing{{end}}
- Documentation directory: {{if .has_docs}}present{{else}}missing{{end}}
- CI configuration: {{if .has_ci}}present{{else}}missing{{end}}
{{if .diagram}}
## Language distribution

{{.diagram}}
{{end}}`

const htmlShellTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.title}}</title>
</head>
<body>
<pre>
{{.body}}
</pre>
</body>
</html>
`

type Writer struct {
	markdownTemplate string
	logger           *slog.Logger
}

func NewWriter(config map[string]any, logger *slog.Logger) (*Writer, error) {
	writer := &Writer{
		markdownTemplate: defaultMarkdownTemplate,
		logger:           logger.With("module", "doc_writer"),
	}

	if override, ok := config["template"].(string); ok && override != "" {
		writer.markdownTemplate = override
	}

	return writer, nil
}

func (w *Writer) Run(ctx context.Context, phaseCtx *models.PhaseContext) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mapping, ok := phaseCtx.Outputs[models.PhaseMapping]
	if !ok {
		return nil, protocol.NewInvalidOutputError(CapabilityID, "mapping phase output not available")
	}

	analysis, ok := phaseCtx.Outputs[models.PhaseAnalysis]
	if !ok {
		return nil, protocol.NewInvalidOutputError(CapabilityID, "analysis phase output not available")
	}

	data := w.templateData(phaseCtx.Request, mapping, analysis)

	markdown, err := template.Render(w.markdownTemplate, data)
	if err != nil {
		return nil, protocol.NewInvalidOutputError(CapabilityID, fmt.Sprintf("markdown render failed: %v", err))
	}

	documents := make(map[string]any, len(phaseCtx.Request.Formats))

	for _, format := range phaseCtx.Request.Formats {
		switch format {
		case models.FormatMarkdown:
			documents[models.FormatMarkdown] = markdown
		case models.FormatHTML:
			rendered, err := template.Render(htmlShellTemplate, map[string]any{
				"title": fmt.Sprintf("%v documentation", data["repository"]),
				"body":  html.EscapeString(markdown),
			})
			if err != nil {
				return nil, protocol.NewInvalidOutputError(CapabilityID, fmt.Sprintf("html render failed: %v", err))
			}

			documents[models.FormatHTML] = rendered
		}
	}

	finalOutput := markdown
	if _, ok := documents[models.FormatMarkdown]; !ok {
		if rendered, ok := documents[models.FormatHTML].(string); ok {
			finalOutput = rendered
		}
	}

	languages, _ := data["languages"].([]map[string]any)
	entryPoints, _ := data["entry_points"].([]string)
	diagram, _ := data["diagram"].(string)

	return map[string]any{
		"repository":          data["repository"],
		"formats":             phaseCtx.Request.Formats,
		"documents":           documents,
		"diagram_included":    diagram != "",
		models.FinalOutputKey: finalOutput,
		models.ScoreKey:       documentationScore(len(languages), len(entryPoints), diagram != "", len(documents)),
	}, nil
}

// documentationScore grows with the coverage of the rendered document.
func documentationScore(languages, entryPoints int, diagramIncluded bool, formats int) float64 {
	score := 0.5

	if languages > 0 {
		score += 0.125
	}

	if entryPoints > 0 {
		score += 0.125
	}

	if diagramIncluded {
		score += 0.125
	}

	if formats > 1 {
		score += 0.125
	}

	return score
}

func (w *Writer) templateData(request models.AnalysisRequest, mapping, analysis map[string]any) map[string]any {
	shares := shareEntries(analysis["language_shares"])

	data := map[string]any{
		"repository":       mapping["repository"],
		"branch":           request.Branch,
		"total_files":      mapping["total_files"],
		"directories":      mapping["directories"],
		"primary_language": analysis["primary_language"],
		"languages":        shares,
		"entry_points":     entryPointList(analysis["entry_points"]),
		"has_readme":       mapping["has_readme"],
		"has_tests":        mapping["has_tests"],
		"has_docs":         mapping["has_docs"],
		"has_ci":           mapping["has_ci"],
	}

	if request.IncludeDiagrams {
		data["diagram"] = mermaidPie(shares)
	}

	return data
}

func shareEntries(value any) []map[string]any {
	shares := map[string]float64{}

	switch typed := value.(type) {
	case map[string]float64:
		shares = typed
	case map[string]any:
		for name, raw := range typed {
			if share, ok := raw.(float64); ok {
				shares[name] = share
			}
		}
	}

	names := make([]string, 0, len(shares))
	for name := range shares {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		if shares[names[i]] != shares[names[j]] {
			return shares[names[i]] > shares[names[j]]
		}

		return names[i] < names[j]
	})

	entries := make([]map[string]any, 0, len(names))
	for _, name := range names {
		entries = append(entries, map[string]any{
			"name":  name,
			"share": fmt.Sprintf("%.1f%%", shares[name]*100),
		})
	}

	return entries
}

func entryPointList(value any) []string {
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
		return nil
	}
}

func mermaidPie(shares []map[string]any) string {
	if len(shares) == 0 {
		return ""
	}

	var builder strings.Builder

	builder.WriteString("```mermaid\npie title Language distribution\n")

	for _, entry := range shares {
		share, _ := entry["share"].(string)
		builder.WriteString(fmt.Sprintf("    %q : %s\n", entry["name"], strings.TrimSuffix(share, "%")))
	}

	builder.WriteString("```")

	return builder.String()
}
