// Package llm defines the narrow client interface the agent loop
// speaks to a model provider, and the Anthropic implementation of it.
package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/mgreenly/nu-agent/internal/tool"
)

// Request is one model invocation: the full message history, the tool
// schema, and the system prompt.
type Request struct {
	System   string
	Messages []anthropic.MessageParam
	Tools    []anthropic.ToolUnionParam
}

// Usage reports token consumption for one request. InputTokens is the
// full context the provider processed, not a delta; callers tracking
// running totals should take the max across rounds, not the sum.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is a normalized model response. Provider wire shapes (flat
// or nested tool-call payloads) are folded into ToolCalls here, once,
// so nothing downstream branches on provider format.
type Response struct {
	// Content is the concatenated assistant text.
	Content string

	// ToolCalls lists requested tool invocations in the order the
	// model emitted them. Empty when the model is done.
	ToolCalls []tool.ToolCall

	// Message is the assistant message to append to history.
	Message anthropic.MessageParam

	Usage    Usage
	SpendUSD float64
	Model    string
}

// Client sends one request to a model provider. A returned error is a
// transport or API failure and is terminal for the exchange.
type Client interface {
	Send(ctx context.Context, req Request) (*Response, error)
}
