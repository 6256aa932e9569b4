package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf)

	logger.Info("hello", "key", "value")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v\noutput: %s", err, line)
	}
	if entry["msg"] != "hello" {
		t.Errorf("expected msg 'hello', got %v", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("expected key 'value', got %v", entry["key"])
	}
}

func TestNewLoggerDebugEnabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf)

	logger.Debug("debug message")

	if !strings.Contains(buf.String(), "debug message") {
		t.Error("expected debug-level logging to be enabled")
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := Discard()
	// Must not panic and must not write anywhere visible.
	logger.Info("dropped")
}
