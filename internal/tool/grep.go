package tool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

const (
	maxGrepResults  = 1000
	maxGrepFileSize = 1 << 20 // 1 MB
	binaryProbeLen  = 512
)

// GrepTool searches file contents with a regular expression.
type GrepTool struct {
	WorkDir string
}

type grepInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
	Include string `json:"include"`
}

func (t *GrepTool) Name() string { return "grep" }

func (t *GrepTool) Description() string {
	return "Search file contents using a Go regular expression. Matches are returned " +
		"as path:line:content. Binary files, files over 1MB, and .git directories are " +
		"skipped. Capped at 1000 matching lines."
}

func (t *GrepTool) InputSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Regular expression (Go regexp syntax)",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to search. Defaults to the working directory.",
			},
			"include": map[string]any{
				"type":        "string",
				"description": "Filename glob filter (e.g. *.go)",
			},
		},
		Required: []string{"pattern"},
	}
}

func (t *GrepTool) Execute(_ context.Context, input json.RawMessage) (Result, error) {
	var in grepInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("parsing grep input: %w", err)
	}

	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return Result{Output: fmt.Sprintf("invalid regex: %s", err), IsError: true}, nil
	}

	root := t.WorkDir
	if in.Path != "" {
		root = ResolvePath(in.Path, t.WorkDir)
	}
	if root == "" {
		return Result{Output: "no working directory set and no path provided", IsError: true}, nil
	}

	var lines []string
	truncated := false
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if in.Include != "" {
			ok, matchErr := filepath.Match(in.Include, d.Name())
			if matchErr != nil || !ok {
				return nil
			}
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxGrepFileSize {
			return nil
		}

		matches, err := grepFile(path, re)
		if err != nil {
			return nil
		}
		for _, m := range matches {
			if len(lines) >= maxGrepResults {
				truncated = true
				return filepath.SkipAll
			}
			lines = append(lines, m)
		}
		return nil
	})
	if walkErr != nil {
		return Result{Output: fmt.Sprintf("error walking directory: %s", walkErr), IsError: true}, nil
	}

	if len(lines) == 0 {
		return Result{Output: "no matches found"}, nil
	}

	out := strings.Join(lines, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (results capped at %d lines)", maxGrepResults)
	}
	return Result{Output: out}, nil
}

// grepFile returns path:line:content entries for each matching line.
// Binary files (NUL byte in the first 512 bytes) yield no matches.
func grepFile(path string, re *regexp.Regexp) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	probe := make([]byte, binaryProbeLen)
	n, _ := f.Read(probe)
	if bytes.IndexByte(probe[:n], 0) >= 0 {
		return nil, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxGrepFileSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			out = append(out, fmt.Sprintf("%s:%d:%s", path, lineNum, line))
		}
	}
	return out, scanner.Err()
}
