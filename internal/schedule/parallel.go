package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mgreenly/nu-agent/internal/tool"
)

// ExecutionResult is the outcome of one tool call within a batch.
// BatchNumber and ThreadRank exist for logging and display; nothing
// may depend on them for correctness.
type ExecutionResult struct {
	Call   tool.ToolCall
	Output tool.Result
	Err    error

	BatchNumber int
	ThreadRank  int // 1-based dispatch order within the batch
}

// Failed reports whether the call produced either an invocation error
// or a tool-level error result.
func (r ExecutionResult) Failed() bool {
	return r.Err != nil || r.Output.IsError
}

// InvokeFunc executes a single tool call. Implementations must tolerate
// concurrent invocation from sibling goroutines within one batch.
type InvokeFunc func(ctx context.Context, call tool.ToolCall) (tool.Result, error)

// Executor runs one batch at a time, one goroutine per call.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an Executor that logs batch activity to logger.
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{logger: logger}
}

type indexedResult struct {
	index  int
	result ExecutionResult
}

// ExecuteBatch starts one goroutine per call in the batch, without any
// ordering between them, and blocks until every one has finished.
// Results come back indexed by submission order regardless of
// completion order; each goroutine reports through a channel and the
// collecting loop below owns the result slice, so no slot is ever
// shared between goroutines.
//
// A failure inside one goroutine - an error return or a panic - becomes
// an error ExecutionResult for that call alone. Siblings keep running
// and the batch still returns a full result list.
//
// onResult, when non-nil, is called once per completed call from this
// function's own goroutine, never concurrently. Delivery order across
// calls is whatever order they finish in.
func (e *Executor) ExecuteBatch(ctx context.Context, batch Batch, invoke InvokeFunc, onResult func(ExecutionResult)) []ExecutionResult {
	n := len(batch.Calls)
	if n == 0 {
		return nil
	}

	e.logger.Debug("executing batch", "batch", batch.Number, "calls", n)

	ch := make(chan indexedResult, n)
	for i, call := range batch.Calls {
		go func(idx int, call tool.ToolCall) {
			res := ExecutionResult{
				Call:        call,
				BatchNumber: batch.Number,
				ThreadRank:  idx + 1,
			}
			defer func() {
				if r := recover(); r != nil {
					res.Output = tool.Result{}
					res.Err = fmt.Errorf("tool %s panicked: %v", call.Name, r)
				}
				ch <- indexedResult{index: idx, result: res}
			}()
			res.Output, res.Err = invoke(ctx, call)
		}(i, call)
	}

	results := make([]ExecutionResult, n)
	for range n {
		ir := <-ch
		results[ir.index] = ir.result
		if ir.result.Err != nil {
			e.logger.Warn("tool call failed",
				"batch", batch.Number,
				"thread", ir.result.ThreadRank,
				"tool", ir.result.Call.Name,
				"error", ir.result.Err)
		}
		if onResult != nil {
			onResult(ir.result)
		}
	}

	return results
}
