package repomapper

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codegenius/codegenius/pkg/models"
)

const (
	defaultMaxFiles    = 10000
	largestFilesLimit  = 10
	entryPointsLimit   = 10
	quickDepthLimit    = 2
	standardDepthLimit = 5
	quickFileLimit     = 500
	standardFileLimit  = 5000
)

var defaultIgnore = []string{
	".git", "node_modules", "vendor", "dist", "build", "target", ".idea", ".vscode", "__pycache__",
}

var languageByExtension = map[string]string{
	".go":    "Go",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".py":    "Python",
	".rb":    "Ruby",
	".java":  "Java",
	".kt":    "Kotlin",
	".rs":    "Rust",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".scala": "Scala",
	".sh":    "Shell",
	".sql":   "SQL",
	".html":  "HTML",
	".css":   "CSS",
	".scss":  "CSS",
	".md":    "Markdown",
	".yaml":  "YAML",
	".yml":   "YAML",
	".json":  "JSON",
	".toml":  "TOML",
	".proto": "Protobuf",
	".tf":    "Terraform",
}

var languageByFilename = map[string]string{
	"Dockerfile": "Docker",
	"Makefile":   "Make",
}

// Mapper walks an already-synced repository checkout. Fetching the checkout
// is the deployment's concern; the mapper only reads it.
type Mapper struct {
	workspaceRoot string
	maxFiles      int
	ignore        map[string]struct{}
	logger        *slog.Logger
}

func NewMapper(config map[string]any, logger *slog.Logger) (*Mapper, error) {
	mapper := &Mapper{
		workspaceRoot: "./repositories",
		maxFiles:      defaultMaxFiles,
		ignore:        make(map[string]struct{}),
		logger:        logger.With("module", "repo_mapper"),
	}

	for _, name := range defaultIgnore {
		mapper.ignore[name] = struct{}{}
	}

	if root, ok := config["workspace_root"].(string); ok && root != "" {
		mapper.workspaceRoot = root
	}

	if maxFiles, ok := config["max_files"].(float64); ok {
		mapper.maxFiles = int(maxFiles)
	}

	if ignore, ok := config["ignore"].([]any); ok {
		for _, entry := range ignore {
			if name, ok := entry.(string); ok {
				mapper.ignore[name] = struct{}{}
			}
		}
	}

	return mapper, nil
}

type walkState struct {
	totalFiles  int
	totalSize   int64
	directories int
	languages   map[string]int
	largest     []fileEntry
	entryPoints []string
	hasReadme   bool
	hasTests    bool
	hasDocs     bool
	hasCI       bool
	truncated   bool
}

type fileEntry struct {
	path string
	size int64
}

func (m *Mapper) Run(ctx context.Context, phaseCtx *models.PhaseContext) (map[string]any, error) {
	root, err := m.resolveRoot(phaseCtx.Request.RepositoryURL)
	if err != nil {
		return nil, err
	}

	maxDepth, fileBudget := m.limitsFor(phaseCtx.Request.Depth)

	state := &walkState{languages: make(map[string]int)}

	err = filepath.WalkDir(root, func(walkPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, walkPath)
		if err != nil {
			return err
		}

		if relPath == "." {
			return nil
		}

		depth := len(strings.Split(filepath.ToSlash(relPath), "/"))

		if entry.IsDir() {
			if _, skip := m.ignore[entry.Name()]; skip {
				return fs.SkipDir
			}

			if maxDepth > 0 && depth > maxDepth {
				return fs.SkipDir
			}

			state.directories++

			return nil
		}

		if state.totalFiles >= fileBudget {
			state.truncated = true

			return fs.SkipAll
		}

		m.recordFile(state, relPath, depth, entry)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return m.buildOutput(phaseCtx.Request.RepositoryURL, root, state), nil
}

func (m *Mapper) resolveRoot(repositoryURL string) (string, error) {
	var root string

	if local, ok := strings.CutPrefix(repositoryURL, "file://"); ok {
		root = local
	} else {
		root = filepath.Join(m.workspaceRoot, repositorySlug(repositoryURL))
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("repository checkout not available at %s: %w", root, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("repository checkout at %s is not a directory", root)
	}

	return root, nil
}

func (m *Mapper) limitsFor(depth string) (maxDepth, fileBudget int) {
	switch depth {
	case models.DepthQuick:
		return quickDepthLimit, min(m.maxFiles, quickFileLimit)
	case models.DepthStandard:
		return standardDepthLimit, min(m.maxFiles, standardFileLimit)
	default:
		return 0, m.maxFiles
	}
}

func (m *Mapper) recordFile(state *walkState, relPath string, depth int, entry fs.DirEntry) {
	name := entry.Name()
	state.totalFiles++

	if info, err := entry.Info(); err == nil {
		state.totalSize += info.Size()
		state.largest = append(state.largest, fileEntry{path: filepath.ToSlash(relPath), size: info.Size()})
	}

	if language, ok := languageByFilename[name]; ok {
		state.languages[language]++
	} else if language, ok := languageByExtension[strings.ToLower(filepath.Ext(name))]; ok {
		state.languages[language]++
	}

	if depth == 1 && strings.HasPrefix(strings.ToLower(name), "readme") {
		state.hasReadme = true
	}

	slashPath := filepath.ToSlash(relPath)

	if strings.HasSuffix(name, "_test.go") || hasPathComponent(slashPath, "test", "tests", "__tests__", "spec") {
		state.hasTests = true
	}

	if hasPathComponent(slashPath, "docs", "doc") {
		state.hasDocs = true
	}

	if strings.Contains(slashPath, ".github/workflows/") ||
		name == ".gitlab-ci.yml" || name == "Jenkinsfile" || name == ".travis.yml" {
		state.hasCI = true
	}

	if isEntryPoint(name) && len(state.entryPoints) < entryPointsLimit {
		state.entryPoints = append(state.entryPoints, slashPath)
	}
}

func (m *Mapper) buildOutput(repositoryURL, root string, state *walkState) map[string]any {
	sort.Slice(state.largest, func(i, j int) bool {
		if state.largest[i].size != state.largest[j].size {
			return state.largest[i].size > state.largest[j].size
		}

		return state.largest[i].path < state.largest[j].path
	})

	if len(state.largest) > largestFilesLimit {
		state.largest = state.largest[:largestFilesLimit]
	}

	largestFiles := make([]map[string]any, 0, len(state.largest))
	for _, file := range state.largest {
		largestFiles = append(largestFiles, map[string]any{
			"path":       file.path,
			"size_bytes": file.size,
		})
	}

	entryPoints := state.entryPoints
	if entryPoints == nil {
		entryPoints = []string{}
	}

	return map[string]any{
		"repository":       repositorySlug(repositoryURL),
		"root":             root,
		"total_files":      state.totalFiles,
		"total_size_bytes": state.totalSize,
		"directories":      state.directories,
		"languages":        state.languages,
		"primary_language": primaryLanguage(state.languages),
		"largest_files":    largestFiles,
		"entry_points":     entryPoints,
		"has_readme":       state.hasReadme,
		"has_tests":        state.hasTests,
		"has_docs":         state.hasDocs,
		"has_ci":           state.hasCI,
		"files_truncated":  state.truncated,
		models.ScoreKey:    structureScore(state),
	}
}

// structureScore rewards the layout signals reviewers look for first.
func structureScore(state *walkState) float64 {
	score := 0.4

	for _, present := range []bool{state.hasReadme, state.hasTests, state.hasDocs, state.hasCI} {
		if present {
			score += 0.15
		}
	}

	return score
}

func primaryLanguage(languages map[string]int) string {
	primary := ""
	best := 0

	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if languages[name] > best {
			primary = name
			best = languages[name]
		}
	}

	return primary
}

func repositorySlug(repositoryURL string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(repositoryURL, "/"), ".git")

	return path.Base(trimmed)
}

func hasPathComponent(slashPath string, names ...string) bool {
	for _, part := range strings.Split(slashPath, "/") {
		for _, name := range names {
			if strings.EqualFold(part, name) {
				return true
			}
		}
	}

	return false
}

func isEntryPoint(name string) bool {
	switch name {
	case "main.go", "index.js", "index.ts", "main.py", "app.py", "manage.py", "main.rs":
		return true
	}

	return false
}
