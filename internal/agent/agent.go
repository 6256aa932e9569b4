// Package agent implements the conversational loop: send history to
// the model, schedule any requested tool calls into conflict-free
// batches, execute them, and repeat until the model stops asking.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/mgreenly/nu-agent/internal/llm"
	"github.com/mgreenly/nu-agent/internal/loopdetector"
	"github.com/mgreenly/nu-agent/internal/permission"
	"github.com/mgreenly/nu-agent/internal/schedule"
	"github.com/mgreenly/nu-agent/internal/session"
	"github.com/mgreenly/nu-agent/internal/tool"
)

// ChunkType identifies the kind of stream chunk.
type ChunkType int

const (
	ChunkText ChunkType = iota
	ChunkToolUse
	ChunkBatchStart
	ChunkToolResult
	ChunkBatchDone
	ChunkPermissionRequest
	ChunkDone
	ChunkError
)

// StreamChunk is a unit of output from the agent's loop.
type StreamChunk struct {
	Type      ChunkType
	Text      string
	ToolName  string
	ToolID    string
	ToolInput string
	Result    *tool.Result

	// Batch fields are set on ChunkBatchStart, ChunkBatchDone, and on
	// ChunkToolResult for calls that went through the executor.
	BatchNumber int
	BatchSize   int
	ThreadRank  int
	Elapsed     time.Duration

	Err error
}

// PermissionResponse is the user's answer to a permission request.
type PermissionResponse int

const (
	PermissionGranted       PermissionResponse = iota // Allow this once
	PermissionDenied                                  // Deny this once
	PermissionGrantedAlways                           // Allow for the session and persist
)

// Agent drives the request/execute loop against a model client.
type Agent struct {
	client   llm.Client
	registry *tool.Registry
	perms    *permission.Checker
	conv     *Conversation
	analyzer *schedule.Analyzer
	executor *schedule.Executor
	detector *loopdetector.Detector
	workDir  string

	maxRounds int
	logger    *slog.Logger

	mu      sync.Mutex
	metrics session.Metrics

	PermResp chan PermissionResponse
}

// New creates an Agent. maxRounds caps LLM round-trips per user
// message; values below one fall back to the config default.
func New(client llm.Client, registry *tool.Registry, perms *permission.Checker, workDir string, maxRounds int, logger *slog.Logger) *Agent {
	if maxRounds < 1 {
		maxRounds = 50
	}
	return &Agent{
		client:    client,
		registry:  registry,
		perms:     perms,
		conv:      NewConversation(),
		analyzer:  schedule.NewAnalyzer(registry, workDir),
		executor:  schedule.NewExecutor(logger),
		detector:  loopdetector.NewWithDefaults(),
		workDir:   workDir,
		maxRounds: maxRounds,
		logger:    logger,
		PermResp:  make(chan PermissionResponse, 1),
	}
}

// Permissions returns the permission checker for this agent.
func (a *Agent) Permissions() *permission.Checker {
	return a.perms
}

// Conversation returns the agent's conversation.
func (a *Agent) Conversation() *Conversation {
	return a.conv
}

// Metrics returns the accumulated usage totals.
func (a *Agent) Metrics() session.Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// RestoreMetrics seeds the totals from a resumed session.
func (a *Agent) RestoreMetrics(m session.Metrics) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metrics = m
}

// SendMessage starts the loop for the given user message. It returns a
// channel that emits StreamChunks; the channel is closed when the loop
// completes.
func (a *Agent) SendMessage(ctx context.Context, userMsg string) <-chan StreamChunk {
	ch := make(chan StreamChunk, 64)

	a.conv.AddUserMessage(userMsg)
	a.detector.Reset()

	go func() {
		defer close(ch)
		a.loop(ctx, ch)
	}()

	return ch
}

func (a *Agent) loop(ctx context.Context, ch chan<- StreamChunk) {
	a.logger.Info("agent loop started")
	defer a.logger.Info("agent loop ended")

	for round := 1; ; round++ {
		if ctx.Err() != nil {
			a.logger.Info("context cancelled, stopping loop")
			return
		}
		if round > a.maxRounds {
			a.logger.Warn("round cap reached", "max_rounds", a.maxRounds)
			ch <- StreamChunk{Type: ChunkError, Err: fmt.Errorf("stopped after %d rounds without completing", a.maxRounds)}
			return
		}

		resp, err := a.client.Send(ctx, llm.Request{
			System:   BuildSystemPrompt(a.workDir, a.registry),
			Messages: a.conv.Messages(),
			Tools:    a.registry.ToolParams(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Error("model request failed", "error", err)
			ch <- StreamChunk{Type: ChunkError, Err: err}
			return
		}

		a.recordRound(resp)
		a.conv.AddAssistantMessage(resp.Message)

		if resp.Content != "" {
			ch <- StreamChunk{Type: ChunkText, Text: resp.Content}
		}

		if len(resp.ToolCalls) == 0 {
			ch <- StreamChunk{Type: ChunkDone}
			return
		}

		a.logger.Info("executing tool calls", "round", round, "count", len(resp.ToolCalls))
		results := a.executeCalls(ctx, ch, resp.ToolCalls)

		// One user message, one result block per call, in the order
		// the model issued the calls.
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			res := results[call.ID]
			blocks = append(blocks, anthropic.NewToolResultBlock(call.ID, res.Output, res.IsError))
		}
		a.conv.AddToolResults(blocks...)

		if det := a.detector.Check(); det.Detected {
			a.logger.Warn("loop detected", "reason", det.Reason)
			ch <- StreamChunk{Type: ChunkError, Err: fmt.Errorf("stopping: %s", det.Reason)}
			return
		}
	}
}

// executeCalls resolves every call to a result, keyed by call ID.
// Unknown tools and permission refusals are settled up front; the rest
// are analyzed into batches and run through the executor, batch by
// batch.
func (a *Agent) executeCalls(ctx context.Context, ch chan<- StreamChunk, calls []tool.ToolCall) map[string]tool.Result {
	results := make(map[string]tool.Result, len(calls))
	var runnable []tool.ToolCall

	for _, call := range calls {
		ch <- StreamChunk{
			Type:      ChunkToolUse,
			ToolName:  call.Name,
			ToolID:    call.ID,
			ToolInput: string(call.Arguments),
		}

		if a.registry.Lookup(call.Name) == nil {
			a.logger.Warn("unknown tool", "tool", call.Name)
			a.settle(ch, call, tool.Result{Output: fmt.Sprintf("unknown tool: %s", call.Name), IsError: true}, results)
			continue
		}
		if !a.checkPermission(ctx, ch, call.Name, call.Arguments) {
			a.logger.Warn("permission denied", "tool", call.Name)
			a.settle(ch, call, tool.Result{Output: "permission denied by user", IsError: true}, results)
			continue
		}
		runnable = append(runnable, call)
	}

	for _, batch := range a.analyzer.Analyze(runnable) {
		ch <- StreamChunk{Type: ChunkBatchStart, BatchNumber: batch.Number, BatchSize: len(batch.Calls)}
		start := time.Now()

		a.executor.ExecuteBatch(ctx, batch, a.invoke, func(res schedule.ExecutionResult) {
			out := res.Output
			if res.Err != nil {
				out = tool.Result{Output: fmt.Sprintf("tool execution error: %s", res.Err), IsError: true}
			}
			results[res.Call.ID] = out
			a.detector.RecordCall(res.Call, out)
			ch <- StreamChunk{
				Type:        ChunkToolResult,
				ToolName:    res.Call.Name,
				ToolID:      res.Call.ID,
				Result:      &out,
				BatchNumber: res.BatchNumber,
				ThreadRank:  res.ThreadRank,
			}
		})

		ch <- StreamChunk{
			Type:        ChunkBatchDone,
			BatchNumber: batch.Number,
			BatchSize:   len(batch.Calls),
			Elapsed:     time.Since(start),
		}
	}

	return results
}

// settle records a result decided without executing the call.
func (a *Agent) settle(ch chan<- StreamChunk, call tool.ToolCall, res tool.Result, results map[string]tool.Result) {
	results[call.ID] = res
	a.detector.RecordCall(call, res)
	ch <- StreamChunk{Type: ChunkToolResult, ToolName: call.Name, ToolID: call.ID, Result: &res}
}

func (a *Agent) invoke(ctx context.Context, call tool.ToolCall) (tool.Result, error) {
	t := a.registry.Lookup(call.Name)
	if t == nil {
		return tool.Result{}, fmt.Errorf("unknown tool: %s", call.Name)
	}
	return t.Execute(ctx, call.Arguments)
}

func (a *Agent) recordRound(resp *llm.Response) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metrics.Merge(session.Metrics{
		TokensInput:   resp.Usage.InputTokens,
		TokensOutput:  resp.Usage.OutputTokens,
		SpendUSD:      resp.SpendUSD,
		MessageCount:  1,
		ToolCallCount: len(resp.ToolCalls),
	})
}

// checkPermission evaluates the permission for a tool and, if needed,
// sends a permission request and blocks until the user responds.
// Returns true if the tool is allowed to execute.
func (a *Agent) checkPermission(ctx context.Context, ch chan<- StreamChunk, toolName string, toolInput []byte) bool {
	switch a.perms.Check(toolName, toolInput) {
	case permission.Allow:
		return true
	case permission.Deny:
		return false
	case permission.Ask:
		ch <- StreamChunk{Type: ChunkPermissionRequest, ToolName: toolName, ToolInput: string(toolInput)}

		select {
		case resp := <-a.PermResp:
			switch resp {
			case PermissionGranted:
				return true
			case PermissionGrantedAlways:
				if err := a.perms.AllowAlways(toolName, toolInput); err != nil {
					a.logger.Warn("failed to persist permission", "error", err)
				}
				return true
			default:
				return false
			}
		case <-ctx.Done():
			return false
		}
	}
	return false
}
