package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"
)

// MoveTool moves or renames files and directories.
type MoveTool struct {
	WorkDir string
}

type moveInput struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
}

func (t *MoveTool) Name() string { return "move" }

func (t *MoveTool) Description() string {
	return "Move or rename a file or directory. Parent directories for the destination " +
		"are created as needed. Fails if the destination already exists."
}

func (t *MoveTool) InputSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"source_path": map[string]any{
				"type":        "string",
				"description": "Path of the file or directory to move",
			},
			"destination_path": map[string]any{
				"type":        "string",
				"description": "New path for the file or directory",
			},
		},
		Required: []string{"source_path", "destination_path"},
	}
}

func (t *MoveTool) Execute(_ context.Context, input json.RawMessage) (Result, error) {
	var in moveInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("parsing move input: %w", err)
	}

	if in.SourcePath == "" || in.DestinationPath == "" {
		return Result{Output: "source_path and destination_path are required", IsError: true}, nil
	}

	src := ResolvePath(in.SourcePath, t.WorkDir)
	dst := ResolvePath(in.DestinationPath, t.WorkDir)

	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Output: fmt.Sprintf("source does not exist: %s", src), IsError: true}, nil
		}
		return Result{Output: fmt.Sprintf("error accessing source: %s", err), IsError: true}, nil
	}

	if _, err := os.Stat(dst); err == nil {
		return Result{Output: fmt.Sprintf("destination already exists: %s", dst), IsError: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Result{Output: fmt.Sprintf("error creating destination directory: %s", err), IsError: true}, nil
	}

	if err := os.Rename(src, dst); err != nil {
		return Result{Output: fmt.Sprintf("error moving: %s", err), IsError: true}, nil
	}

	kind := "file"
	if info.IsDir() {
		kind = "directory"
	}
	return Result{Output: fmt.Sprintf("Moved %s %s to %s", kind, src, dst)}, nil
}
