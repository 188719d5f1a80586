package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSearchTool finds files under a configured root by glob pattern.
// Hidden directories are skipped and results are capped.
type FileSearchTool struct {
	root    string
	maxHits int
}

func NewFileSearchTool(root string, maxHits int) *FileSearchTool {
	if root == "" {
		root = "~/"
	}
	if maxHits <= 0 {
		maxHits = 25
	}
	return &FileSearchTool{root: expandHome(root), maxHits: maxHits}
}

func (t *FileSearchTool) Name() string {
	return "file_search"
}

func (t *FileSearchTool) Description() string {
	return "Find files by name pattern (glob) under the configured search root."
}

func (t *FileSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Glob pattern matched against file names, e.g. *.pdf",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *FileSearchTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	pattern, ok := args["pattern"].(string)
	if !ok || strings.TrimSpace(pattern) == "" {
		pattern = "*"
	}
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if _, err := filepath.Match(pattern, "probe"); err != nil {
		return ErrorResult(fmt.Sprintf("invalid pattern %q: %v", pattern, err)).WithError(err)
	}

	var hits []string
	walkErr := filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != t.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		matched, _ := filepath.Match(pattern, strings.ToLower(d.Name()))
		if matched {
			hits = append(hits, path)
			if len(hits) >= t.maxHits {
				return fs.SkipAll
			}
		}
		return nil
	})
	if walkErr != nil && walkErr == ctx.Err() {
		return ErrorResult("file search cancelled").WithError(walkErr)
	}

	if len(hits) == 0 {
		return OKResult(fmt.Sprintf("No files matching %q under %s", pattern, t.root))
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Files matching %q (showing up to %d):", pattern, t.maxHits))
	for _, hit := range hits {
		lines = append(lines, "  "+hit)
	}
	return OKResult(strings.Join(lines, "\n"))
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) > 1 && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return home
}
