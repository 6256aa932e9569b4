package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mgreenly/nu-agent/internal/logging"
	"github.com/mgreenly/nu-agent/internal/tool"
)

func testBatch(n int) Batch {
	b := Batch{Number: 1}
	for i := 0; i < n; i++ {
		b.Calls = append(b.Calls, tool.ToolCall{ID: fmt.Sprintf("%d", i+1), Name: "read"})
	}
	return b
}

func TestExecuteBatchEmpty(t *testing.T) {
	t.Parallel()

	e := NewExecutor(logging.Discard())
	invoked := false
	results := e.ExecuteBatch(context.Background(), Batch{}, func(context.Context, tool.ToolCall) (tool.Result, error) {
		invoked = true
		return tool.Result{}, nil
	}, nil)

	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if invoked {
		t.Error("invoke should not run for an empty batch")
	}
}

func TestExecuteBatchPreservesSubmissionOrder(t *testing.T) {
	t.Parallel()

	e := NewExecutor(logging.Discard())
	// Earlier calls sleep longer, so completion order is reversed.
	invoke := func(_ context.Context, c tool.ToolCall) (tool.Result, error) {
		switch c.ID {
		case "1":
			time.Sleep(60 * time.Millisecond)
		case "2":
			time.Sleep(30 * time.Millisecond)
		}
		return tool.Result{Output: "out-" + c.ID}, nil
	}

	results := e.ExecuteBatch(context.Background(), testBatch(3), invoke, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		wantID := fmt.Sprintf("%d", i+1)
		if r.Call.ID != wantID {
			t.Errorf("result %d belongs to call %s, want %s", i, r.Call.ID, wantID)
		}
		if r.Output.Output != "out-"+wantID {
			t.Errorf("result %d has output %q", i, r.Output.Output)
		}
	}
}

func TestExecuteBatchIsolatesFailure(t *testing.T) {
	t.Parallel()

	e := NewExecutor(logging.Discard())
	boom := errors.New("boom")
	invoke := func(_ context.Context, c tool.ToolCall) (tool.Result, error) {
		if c.ID == "2" {
			return tool.Result{}, boom
		}
		return tool.Result{Output: "ok"}, nil
	}

	results := e.ExecuteBatch(context.Background(), testBatch(3), invoke, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("siblings of a failing call must succeed")
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("expected failing call's error, got %v", results[1].Err)
	}
}

func TestExecuteBatchRecoversPanic(t *testing.T) {
	t.Parallel()

	e := NewExecutor(logging.Discard())
	invoke := func(_ context.Context, c tool.ToolCall) (tool.Result, error) {
		if c.ID == "1" {
			panic("tool exploded")
		}
		return tool.Result{Output: "ok"}, nil
	}

	results := e.ExecuteBatch(context.Background(), testBatch(2), invoke, nil)

	if results[0].Err == nil {
		t.Error("expected error result for panicking call")
	}
	if results[1].Err != nil {
		t.Errorf("sibling affected by panic: %v", results[1].Err)
	}
}

func TestExecuteBatchAnnotations(t *testing.T) {
	t.Parallel()

	e := NewExecutor(logging.Discard())
	b := testBatch(4)
	b.Number = 7

	results := e.ExecuteBatch(context.Background(), b, func(context.Context, tool.ToolCall) (tool.Result, error) {
		return tool.Result{}, nil
	}, nil)

	ranks := make(map[int]bool)
	for i, r := range results {
		if r.BatchNumber != 7 {
			t.Errorf("result %d has batch number %d, want 7", i, r.BatchNumber)
		}
		if r.ThreadRank < 1 || r.ThreadRank > 4 {
			t.Errorf("result %d has thread rank %d outside 1..4", i, r.ThreadRank)
		}
		if ranks[r.ThreadRank] {
			t.Errorf("duplicate thread rank %d", r.ThreadRank)
		}
		ranks[r.ThreadRank] = true
	}
}

func TestExecuteBatchOnResultSerial(t *testing.T) {
	t.Parallel()

	e := NewExecutor(logging.Discard())
	var mu sync.Mutex
	inCallback := false
	count := 0

	onResult := func(ExecutionResult) {
		mu.Lock()
		if inCallback {
			mu.Unlock()
			t.Error("onResult invoked concurrently")
			return
		}
		inCallback = true
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inCallback = false
		count++
		mu.Unlock()
	}

	e.ExecuteBatch(context.Background(), testBatch(5), func(context.Context, tool.ToolCall) (tool.Result, error) {
		return tool.Result{}, nil
	}, onResult)

	if count != 5 {
		t.Errorf("expected onResult 5 times, got %d", count)
	}
}

func TestExecuteBatchRunsConcurrently(t *testing.T) {
	t.Parallel()

	e := NewExecutor(logging.Discard())
	const n = 4
	const delay = 50 * time.Millisecond

	start := time.Now()
	e.ExecuteBatch(context.Background(), testBatch(n), func(context.Context, tool.ToolCall) (tool.Result, error) {
		time.Sleep(delay)
		return tool.Result{}, nil
	}, nil)
	elapsed := time.Since(start)

	// Sequential execution would take n*delay; allow generous slack.
	if elapsed > time.Duration(n-1)*delay {
		t.Errorf("batch took %s, expected concurrent execution well under %s", elapsed, time.Duration(n)*delay)
	}
}
