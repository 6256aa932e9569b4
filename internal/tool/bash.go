package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

const (
	defaultBashTimeout = 2 * time.Minute
	maxBashOutput      = 30000 // bytes kept from each stream
)

// BashTool executes shell commands in the working directory. Its side
// effects are unbounded, so the scheduler treats it as a barrier.
type BashTool struct {
	WorkDir string
}

type bashInput struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

func (t *BashTool) Name() string { return "bash" }

func (t *BashTool) Description() string {
	return "Execute a shell command in the working directory and return its combined output. " +
		"Commands time out after 2 minutes unless a timeout (in seconds) is given."
}

func (t *BashTool) InputSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to run",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds (default 120)",
			},
		},
		Required: []string{"command"},
	}
}

func (t *BashTool) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	var in bashInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("parsing bash input: %w", err)
	}

	if strings.TrimSpace(in.Command) == "" {
		return Result{Output: "command is required", IsError: true}, nil
	}

	timeout := defaultBashTimeout
	if in.Timeout > 0 {
		timeout = time.Duration(in.Timeout) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", in.Command)
	cmd.Dir = t.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var b strings.Builder
	if out := truncateOutput(stdout.String()); out != "" {
		b.WriteString(out)
	}
	if errOut := truncateOutput(stderr.String()); errOut != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(errOut)
	}

	if ctx.Err() == context.DeadlineExceeded {
		return Result{Output: fmt.Sprintf("command timed out after %s\n%s", timeout, b.String()), IsError: true}, nil
	}

	if runErr != nil {
		if b.Len() > 0 {
			fmt.Fprintf(&b, "\n")
		}
		fmt.Fprintf(&b, "command failed: %s", runErr)
		return Result{Output: b.String(), IsError: true}, nil
	}

	if b.Len() == 0 {
		return Result{Output: "(no output)"}, nil
	}
	return Result{Output: b.String()}, nil
}

// truncateOutput caps a stream at maxBashOutput bytes, keeping the tail
// since errors usually appear at the end.
func truncateOutput(s string) string {
	if len(s) <= maxBashOutput {
		return strings.TrimRight(s, "\n")
	}
	trimmed := s[len(s)-maxBashOutput:]
	return "... (output truncated)\n" + strings.TrimRight(trimmed, "\n")
}
