package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

const maxListEntries = 1000

// ListDirTool lists the contents of a directory.
type ListDirTool struct {
	WorkDir string
}

type listDirInput struct {
	Path string `json:"path"`
}

func (t *ListDirTool) Name() string { return "list_dir" }

func (t *ListDirTool) Description() string {
	return "List directory contents, sorted, with a / suffix marking subdirectories. " +
		"Capped at 1000 entries."
}

func (t *ListDirTool) InputSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to list. Defaults to the working directory.",
			},
		},
		Required: []string{},
	}
}

func (t *ListDirTool) Execute(_ context.Context, input json.RawMessage) (Result, error) {
	var in listDirInput
	// The API may send an empty payload when no fields are required.
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return Result{}, fmt.Errorf("parsing list_dir input: %w", err)
		}
	}

	dir := t.WorkDir
	if in.Path != "" {
		dir = ResolvePath(in.Path, t.WorkDir)
	}
	if dir == "" {
		return Result{Output: "no working directory set and no path provided", IsError: true}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{Output: fmt.Sprintf("error reading directory: %s", err), IsError: true}, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > maxListEntries {
		names = names[:maxListEntries]
		names = append(names, fmt.Sprintf("... (entries capped at %d)", maxListEntries))
	}

	if len(names) == 0 {
		return Result{Output: "(empty directory)"}, nil
	}
	return Result{Output: strings.Join(names, "\n")}, nil
}
