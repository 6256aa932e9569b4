package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteToolCreatesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	tool := &WriteTool{WorkDir: dir}
	input, _ := json.Marshal(map[string]any{"file_path": path, "content": "hello"})

	result, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Output)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected 'hello', got %q", string(data))
	}
}

func TestWriteToolCreatesParentDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "deep.txt")

	tool := &WriteTool{WorkDir: dir}
	input, _ := json.Marshal(map[string]any{"file_path": path, "content": "nested"})

	result, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Output)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestWriteToolOverwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	tool := &WriteTool{WorkDir: dir}
	input, _ := json.Marshal(map[string]any{"file_path": path, "content": "new"})

	if _, err := tool.Execute(context.Background(), input); err != nil {
		t.Fatalf("execute: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("expected overwrite, got %q", string(data))
	}
}

func TestWriteToolMissingPath(t *testing.T) {
	t.Parallel()

	tool := &WriteTool{WorkDir: t.TempDir()}
	input, _ := json.Marshal(map[string]any{"content": "orphan"})

	result, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result when file_path is missing")
	}
}
