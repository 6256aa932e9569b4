package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/mgreenly/nu-agent/internal/llm"
	"github.com/mgreenly/nu-agent/internal/logging"
	"github.com/mgreenly/nu-agent/internal/permission"
	"github.com/mgreenly/nu-agent/internal/tool"
)

// fakeClient replays a scripted sequence of responses and records the
// requests it received.
type fakeClient struct {
	script   []func() (*llm.Response, error)
	requests []llm.Request
}

func (f *fakeClient) Send(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if len(f.script) == 0 {
		return nil, errors.New("script exhausted")
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next()
}

func textResponse(text string) func() (*llm.Response, error) {
	return func() (*llm.Response, error) {
		return &llm.Response{
			Content: text,
			Message: anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)),
		}, nil
	}
}

func toolResponse(calls ...tool.ToolCall) func() (*llm.Response, error) {
	return func() (*llm.Response, error) {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(calls))
		for _, c := range calls {
			blocks = append(blocks, anthropic.NewToolUseBlock(c.ID, c.Arguments, c.Name))
		}
		return &llm.Response{
			ToolCalls: calls,
			Message:   anthropic.NewAssistantMessage(blocks...),
		}, nil
	}
}

// fakeTool executes via a callback and counts invocations.
type fakeTool struct {
	name  string
	count atomic.Int64
	run   func(input json.RawMessage) (tool.Result, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "test tool" }
func (f *fakeTool) InputSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{Properties: map[string]any{}}
}
func (f *fakeTool) Execute(_ context.Context, input json.RawMessage) (tool.Result, error) {
	f.count.Add(1)
	if f.run != nil {
		return f.run(input)
	}
	return tool.Result{Output: "ok"}, nil
}

func allowAllChecker() *permission.Checker {
	c := permission.NewChecker()
	c.AddRule(permission.Rule{Tool: "*", Pattern: "*", Action: permission.Allow})
	return c
}

func newTestAgent(t *testing.T, client llm.Client, tools ...*fakeTool) *Agent {
	t.Helper()
	registry := tool.NewRegistry()
	for _, ft := range tools {
		meta := tool.Metadata{Op: tool.OpRead, Scope: tool.ScopeConfined, PathKeys: []string{"file_path"}}
		if err := registry.Register(ft, meta); err != nil {
			t.Fatalf("register %s: %v", ft.name, err)
		}
	}
	return New(client, registry, allowAllChecker(), t.TempDir(), 10, logging.Discard())
}

func drain(t *testing.T, ch <-chan StreamChunk) []StreamChunk {
	t.Helper()
	var chunks []StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	return chunks
}

func chunksOfType(chunks []StreamChunk, typ ChunkType) []StreamChunk {
	var out []StreamChunk
	for _, c := range chunks {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func probeCall(id, path string) tool.ToolCall {
	return tool.ToolCall{
		ID:        id,
		Name:      "probe",
		Arguments: json.RawMessage(fmt.Sprintf(`{"file_path":%q}`, path)),
	}
}

func TestAgent_TextOnlyResponse(t *testing.T) {
	t.Parallel()

	client := &fakeClient{script: []func() (*llm.Response, error){
		textResponse("All done."),
	}}
	a := newTestAgent(t, client)

	chunks := drain(t, a.SendMessage(context.Background(), "hello"))

	texts := chunksOfType(chunks, ChunkText)
	if len(texts) != 1 || texts[0].Text != "All done." {
		t.Errorf("expected one text chunk, got %+v", texts)
	}
	if len(chunksOfType(chunks, ChunkDone)) != 1 {
		t.Error("expected a done chunk")
	}
	// user message + assistant message
	if a.Conversation().Len() != 2 {
		t.Errorf("expected 2 messages in history, got %d", a.Conversation().Len())
	}
}

func TestAgent_ClientErrorIsTerminal(t *testing.T) {
	t.Parallel()

	client := &fakeClient{script: []func() (*llm.Response, error){
		func() (*llm.Response, error) { return nil, errors.New("api: overloaded") },
	}}
	a := newTestAgent(t, client)

	chunks := drain(t, a.SendMessage(context.Background(), "hello"))

	errs := chunksOfType(chunks, ChunkError)
	if len(errs) != 1 {
		t.Fatalf("expected one error chunk, got %d", len(errs))
	}
	if errs[0].Err == nil {
		t.Error("expected error on chunk")
	}
	if len(chunksOfType(chunks, ChunkDone)) != 0 {
		t.Error("no done chunk after a terminal error")
	}
	if len(client.requests) != 1 {
		t.Errorf("no retry after a terminal error, got %d requests", len(client.requests))
	}
}

func TestAgent_ToolRound(t *testing.T) {
	t.Parallel()

	probe := &fakeTool{name: "probe", run: func(input json.RawMessage) (tool.Result, error) {
		var args struct {
			FilePath string `json:"file_path"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return tool.Result{}, err
		}
		return tool.Result{Output: "contents of " + args.FilePath}, nil
	}}

	client := &fakeClient{script: []func() (*llm.Response, error){
		toolResponse(probeCall("t1", "a.go"), probeCall("t2", "b.go")),
		textResponse("Both files read."),
	}}
	a := newTestAgent(t, client, probe)

	chunks := drain(t, a.SendMessage(context.Background(), "read a.go and b.go"))

	if got := probe.count.Load(); got != 2 {
		t.Errorf("expected 2 tool executions, got %d", got)
	}
	if len(chunksOfType(chunks, ChunkToolUse)) != 2 {
		t.Error("expected 2 tool-use chunks")
	}
	if len(chunksOfType(chunks, ChunkToolResult)) != 2 {
		t.Error("expected 2 tool-result chunks")
	}

	// Two independent reads share one batch.
	starts := chunksOfType(chunks, ChunkBatchStart)
	if len(starts) != 1 || starts[0].BatchSize != 2 {
		t.Errorf("expected one batch of 2, got %+v", starts)
	}
	if len(chunksOfType(chunks, ChunkBatchDone)) != 1 {
		t.Error("expected one batch-done chunk")
	}

	// The second request carries tool results in call order.
	if len(client.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(client.requests))
	}
	last := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	if len(last.Content) != 2 {
		t.Fatalf("expected 2 result blocks, got %d", len(last.Content))
	}
	if id := last.Content[0].OfToolResult.ToolUseID; id != "t1" {
		t.Errorf("first result block should be t1, got %s", id)
	}
	if id := last.Content[1].OfToolResult.ToolUseID; id != "t2" {
		t.Errorf("second result block should be t2, got %s", id)
	}
}

func TestAgent_UnknownToolSettledWithoutExecution(t *testing.T) {
	t.Parallel()

	client := &fakeClient{script: []func() (*llm.Response, error){
		toolResponse(tool.ToolCall{ID: "t1", Name: "no_such_tool", Arguments: json.RawMessage(`{}`)}),
		textResponse("done"),
	}}
	a := newTestAgent(t, client)

	chunks := drain(t, a.SendMessage(context.Background(), "go"))

	results := chunksOfType(chunks, ChunkToolResult)
	if len(results) != 1 {
		t.Fatalf("expected 1 result chunk, got %d", len(results))
	}
	if !results[0].Result.IsError {
		t.Error("unknown tool should produce an error result")
	}
	// No batch chunks for a call that never reached the executor.
	if len(chunksOfType(chunks, ChunkBatchStart)) != 0 {
		t.Error("unexpected batch chunk")
	}

	// The error result still flows back to the model.
	last := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	if last.Content[0].OfToolResult.ToolUseID != "t1" {
		t.Error("error result should be delivered for t1")
	}
}

func TestAgent_PermissionDenied(t *testing.T) {
	t.Parallel()

	probe := &fakeTool{name: "probe"}
	registry := tool.NewRegistry()
	if err := registry.Register(probe, tool.Metadata{Op: tool.OpWrite, Scope: tool.ScopeConfined, PathKeys: []string{"file_path"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	perms := permission.NewChecker()
	perms.AddRule(permission.Rule{Tool: "probe", Pattern: "*", Action: permission.Deny})

	client := &fakeClient{script: []func() (*llm.Response, error){
		toolResponse(probeCall("t1", "a.go")),
		textResponse("understood"),
	}}
	a := New(client, registry, perms, t.TempDir(), 10, logging.Discard())

	chunks := drain(t, a.SendMessage(context.Background(), "go"))

	if got := probe.count.Load(); got != 0 {
		t.Errorf("denied tool must not execute, ran %d times", got)
	}
	results := chunksOfType(chunks, ChunkToolResult)
	if len(results) != 1 || !results[0].Result.IsError {
		t.Fatalf("expected one error result, got %+v", results)
	}
	if results[0].Result.Output != "permission denied by user" {
		t.Errorf("unexpected output %q", results[0].Result.Output)
	}
}

func TestAgent_RoundCap(t *testing.T) {
	t.Parallel()

	probe := &fakeTool{name: "probe"}
	// A client that asks for a tool on every round never finishes.
	client := &fakeClient{}
	for i := 0; i < 20; i++ {
		client.script = append(client.script, toolResponse(probeCall(fmt.Sprintf("t%d", i), fmt.Sprintf("f%d.go", i))))
	}

	registry := tool.NewRegistry()
	if err := registry.Register(probe, tool.Metadata{Op: tool.OpRead, Scope: tool.ScopeConfined, PathKeys: []string{"file_path"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	a := New(client, registry, allowAllChecker(), t.TempDir(), 3, logging.Discard())

	chunks := drain(t, a.SendMessage(context.Background(), "loop forever"))

	if len(client.requests) != 3 {
		t.Errorf("expected exactly 3 rounds, got %d", len(client.requests))
	}
	errs := chunksOfType(chunks, ChunkError)
	if len(errs) != 1 || errs[0].Err == nil {
		t.Fatalf("expected round-cap error chunk, got %+v", errs)
	}
}

func TestAgent_MetricsAccumulateAcrossRounds(t *testing.T) {
	t.Parallel()

	probe := &fakeTool{name: "probe"}
	client := &fakeClient{script: []func() (*llm.Response, error){
		func() (*llm.Response, error) {
			resp, _ := toolResponse(probeCall("t1", "a.go"))()
			resp.Usage = llm.Usage{InputTokens: 1000, OutputTokens: 50}
			resp.SpendUSD = 0.01
			return resp, nil
		},
		func() (*llm.Response, error) {
			resp, _ := textResponse("done")()
			resp.Usage = llm.Usage{InputTokens: 2500, OutputTokens: 30}
			resp.SpendUSD = 0.02
			return resp, nil
		},
	}}
	a := newTestAgent(t, client, probe)

	drain(t, a.SendMessage(context.Background(), "go"))

	m := a.Metrics()
	if m.TokensInput != 2500 {
		t.Errorf("input tokens should be the max across rounds, got %d", m.TokensInput)
	}
	if m.TokensOutput != 80 {
		t.Errorf("output tokens should sum, got %d", m.TokensOutput)
	}
	if m.SpendUSD < 0.029 || m.SpendUSD > 0.031 {
		t.Errorf("spend should sum, got %f", m.SpendUSD)
	}
	if m.MessageCount != 2 {
		t.Errorf("expected 2 assistant messages counted, got %d", m.MessageCount)
	}
	if m.ToolCallCount != 1 {
		t.Errorf("expected 1 tool call counted, got %d", m.ToolCallCount)
	}
}

func TestAgent_ContextCancelStopsLoop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{script: []func() (*llm.Response, error){
		func() (*llm.Response, error) {
			cancel()
			return nil, ctx.Err()
		},
	}}
	a := newTestAgent(t, client)

	chunks := drain(t, a.SendMessage(ctx, "go"))

	// Cancellation ends the loop quietly, without an error chunk.
	if len(chunksOfType(chunks, ChunkError)) != 0 {
		t.Error("cancellation should not surface an error chunk")
	}
}
