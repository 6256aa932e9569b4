package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// ReadTool reads file contents with optional offset and limit.
type ReadTool struct {
	WorkDir string
}

type readInput struct {
	FilePath string `json:"file_path"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
}

func (t *ReadTool) Name() string { return "read" }

func (t *ReadTool) Description() string {
	return "Read the contents of a file, returned with line numbers. " +
		"Supports an optional 1-based offset line and a limit on the number of lines returned."
}

func (t *ReadTool) InputSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to read. Relative paths resolve against the working directory.",
			},
			"offset": map[string]any{
				"type":        "integer",
				"description": "1-based line number to start reading from",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of lines to return",
			},
		},
		Required: []string{"file_path"},
	}
}

func (t *ReadTool) Execute(_ context.Context, input json.RawMessage) (Result, error) {
	var in readInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("parsing read input: %w", err)
	}

	if in.FilePath == "" {
		return Result{Output: "file_path is required", IsError: true}, nil
	}

	path := ResolvePath(in.FilePath, t.WorkDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Output: fmt.Sprintf("error reading file: %s", err), IsError: true}, nil
	}

	lines := strings.Split(string(data), "\n")

	start := 0
	if in.Offset > 0 {
		start = in.Offset - 1
	}
	if start > len(lines) {
		start = len(lines)
	}

	end := len(lines)
	if in.Limit > 0 && start+in.Limit < end {
		end = start + in.Limit
	}

	var b strings.Builder
	for i, line := range lines[start:end] {
		fmt.Fprintf(&b, "%6d\t%s\n", start+i+1, line)
	}

	return Result{Output: b.String()}, nil
}
