package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

const maxGlobResults = 1000

// GlobTool finds files matching a glob pattern, with ** support for
// recursive directory matching.
type GlobTool struct {
	WorkDir string
}

type globInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

func (t *GlobTool) Name() string { return "glob" }

func (t *GlobTool) Description() string {
	return "Find files matching a glob pattern. Supports ** for recursive matching " +
		"(e.g. **/*.go). Paths are returned sorted, one per line, capped at 1000. " +
		".git directories are skipped."
}

func (t *GlobTool) InputSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern, ** matches any number of directories",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to search. Defaults to the working directory.",
			},
		},
		Required: []string{"pattern"},
	}
}

func (t *GlobTool) Execute(_ context.Context, input json.RawMessage) (Result, error) {
	var in globInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("parsing glob input: %w", err)
	}

	if in.Pattern == "" {
		return Result{Output: "pattern is required", IsError: true}, nil
	}

	root := t.WorkDir
	if in.Path != "" {
		root = ResolvePath(in.Path, t.WorkDir)
	}
	if root == "" {
		return Result{Output: "no working directory set and no path provided", IsError: true}, nil
	}

	var matches []string
	truncated := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if matchGlob(in.Pattern, rel) {
			if len(matches) >= maxGlobResults {
				truncated = true
				return filepath.SkipAll
			}
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return Result{Output: fmt.Sprintf("error walking directory: %s", err), IsError: true}, nil
	}

	if len(matches) == 0 {
		return Result{Output: "no files match the pattern"}, nil
	}

	sort.Strings(matches)
	out := strings.Join(matches, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (results capped at %d files)", maxGlobResults)
	}
	return Result{Output: out}, nil
}

// matchGlob matches a slash-separated relative path against a pattern
// where ** spans any number of path segments and single segments use
// filepath.Match semantics.
func matchGlob(pattern, rel string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(filepath.ToSlash(rel), "/"))
}

func matchSegments(pat, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}
	if pat[0] == "**" {
		// ** may consume zero or more leading segments.
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pat[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := filepath.Match(pat[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pat[1:], parts[1:])
}
