package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestBashToolEcho(t *testing.T) {
	t.Parallel()

	tool := &BashTool{WorkDir: t.TempDir()}
	input, _ := json.Marshal(map[string]any{"command": "echo hello"})

	result, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Output)
	}
	if !strings.Contains(result.Output, "hello") {
		t.Errorf("expected command output, got: %s", result.Output)
	}
}

func TestBashToolRunsInWorkDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tool := &BashTool{WorkDir: dir}
	input, _ := json.Marshal(map[string]any{"command": "pwd"})

	result, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result.Output, dir) {
		t.Errorf("expected pwd to report %s, got: %s", dir, result.Output)
	}
}

func TestBashToolFailureIsErrorResult(t *testing.T) {
	t.Parallel()

	tool := &BashTool{WorkDir: t.TempDir()}
	input, _ := json.Marshal(map[string]any{"command": "exit 3"})

	result, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("execute should not return a Go error for a failing command: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for non-zero exit")
	}
}

func TestBashToolTimeout(t *testing.T) {
	t.Parallel()

	tool := &BashTool{WorkDir: t.TempDir()}
	input, _ := json.Marshal(map[string]any{"command": "sleep 5", "timeout": 1})

	result, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for timed-out command")
	}
	if !strings.Contains(result.Output, "timed out") {
		t.Errorf("expected timeout message, got: %s", result.Output)
	}
}

func TestBashToolEmptyCommand(t *testing.T) {
	t.Parallel()

	tool := &BashTool{WorkDir: t.TempDir()}
	input, _ := json.Marshal(map[string]any{"command": "  "})

	result, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for empty command")
	}
}
