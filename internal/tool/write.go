package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"
)

// WriteTool writes content to a file, creating parent directories as
// needed.
type WriteTool struct {
	WorkDir string
}

type writeInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (t *WriteTool) Name() string { return "write" }

func (t *WriteTool) Description() string {
	return "Write content to a file, creating it if needed and overwriting it otherwise. " +
		"Missing parent directories are created automatically."
}

func (t *WriteTool) InputSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to write. Relative paths resolve against the working directory.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The full content to write",
			},
		},
		Required: []string{"file_path", "content"},
	}
}

func (t *WriteTool) Execute(_ context.Context, input json.RawMessage) (Result, error) {
	var in writeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("parsing write input: %w", err)
	}

	if in.FilePath == "" {
		return Result{Output: "file_path is required", IsError: true}, nil
	}

	path := ResolvePath(in.FilePath, t.WorkDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{Output: fmt.Sprintf("error creating directories: %s", err), IsError: true}, nil
	}

	if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
		return Result{Output: fmt.Sprintf("error writing file: %s", err), IsError: true}, nil
	}

	return Result{Output: fmt.Sprintf("Wrote %d bytes to %s", len(in.Content), path)}, nil
}
