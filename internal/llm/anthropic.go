package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/mgreenly/nu-agent/internal/tool"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = string(anthropic.ModelClaudeSonnet4_20250514)

	defaultMaxTokens = 8192
)

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicClient creates a client for the given model. An empty
// model name selects DefaultModel. API credentials come from the
// environment, as the SDK expects.
func NewAnthropicClient(model string) *AnthropicClient {
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(),
		model:     anthropic.Model(model),
		maxTokens: defaultMaxTokens,
	}
}

// Model returns the model this client sends requests to.
func (c *AnthropicClient) Model() string {
	return string(c.model)
}

// SetModel changes the model for subsequent requests.
func (c *AnthropicClient) SetModel(model string) {
	c.model = anthropic.Model(model)
}

// Send performs one non-streaming Messages API call and normalizes the
// response.
func (c *AnthropicClient) Send(ctx context.Context, req Request) (*Response, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: req.Messages,
		Tools:    req.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}

	resp := &Response{
		Message: msg.ToParam(),
		Model:   string(msg.Model),
		Usage: Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
	resp.SpendUSD = spend(string(msg.Model), msg.Usage.InputTokens, msg.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, tool.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	resp.Content = text.String()

	return resp, nil
}

// modelRate holds USD prices per million tokens.
type modelRate struct {
	input  float64
	output float64
}

// Pricing by model family, matched by substring so dated snapshots of
// the same family share a rate.
var modelRates = []struct {
	match string
	rate  modelRate
}{
	{"opus", modelRate{input: 15.0, output: 75.0}},
	{"sonnet", modelRate{input: 3.0, output: 15.0}},
	{"haiku", modelRate{input: 0.80, output: 4.0}},
}

// spend estimates the USD cost of one request. Unknown models cost
// zero rather than guessing.
func spend(model string, inputTokens, outputTokens int64) float64 {
	lower := strings.ToLower(model)
	for _, m := range modelRates {
		if strings.Contains(lower, m.match) {
			return float64(inputTokens)/1e6*m.rate.input +
				float64(outputTokens)/1e6*m.rate.output
		}
	}
	return 0
}
