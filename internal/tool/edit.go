package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// EditTool performs exact string-replacement edits on files.
type EditTool struct {
	WorkDir string
}

type editInput struct {
	FilePath   string `json:"file_path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all"`
}

func (t *EditTool) Name() string { return "edit" }

func (t *EditTool) Description() string {
	return "Replace old_string with new_string in a file. Fails if old_string is absent, " +
		"or ambiguous (appears more than once) unless replace_all is set."
}

func (t *EditTool) InputSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to edit. Relative paths resolve against the working directory.",
			},
			"old_string": map[string]any{
				"type":        "string",
				"description": "The exact text to find",
			},
			"new_string": map[string]any{
				"type":        "string",
				"description": "The replacement text",
			},
			"replace_all": map[string]any{
				"type":        "boolean",
				"description": "Replace every occurrence instead of requiring a unique match",
			},
		},
		Required: []string{"file_path", "old_string", "new_string"},
	}
}

func (t *EditTool) Execute(_ context.Context, input json.RawMessage) (Result, error) {
	var in editInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("parsing edit input: %w", err)
	}

	if in.FilePath == "" {
		return Result{Output: "file_path is required", IsError: true}, nil
	}

	path := ResolvePath(in.FilePath, t.WorkDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Output: fmt.Sprintf("error reading file: %s", err), IsError: true}, nil
	}

	content := string(data)
	count := strings.Count(content, in.OldString)

	switch {
	case count == 0:
		return Result{Output: "old_string not found in file", IsError: true}, nil
	case count > 1 && !in.ReplaceAll:
		return Result{
			Output:  fmt.Sprintf("old_string appears %d times; set replace_all to replace every occurrence", count),
			IsError: true,
		}, nil
	}

	var updated string
	if in.ReplaceAll {
		updated = strings.ReplaceAll(content, in.OldString, in.NewString)
	} else {
		updated = strings.Replace(content, in.OldString, in.NewString, 1)
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return Result{Output: fmt.Sprintf("error writing file: %s", err), IsError: true}, nil
	}

	return Result{Output: fmt.Sprintf("Replaced %d occurrence(s) in %s", count, path)}, nil
}
