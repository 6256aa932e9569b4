package agent

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/mgreenly/nu-agent/internal/token"
)

// Conversation manages the message history for an agent session.
type Conversation struct {
	messages   []anthropic.MessageParam
	tokenCount int
}

// NewConversation creates a new empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// TokenCount returns the estimated token count of the conversation.
func (c *Conversation) TokenCount() int {
	return c.tokenCount
}

// SetMessages replaces all messages in the conversation. Used to
// restore a saved session.
func (c *Conversation) SetMessages(messages []anthropic.MessageParam) {
	c.messages = make([]anthropic.MessageParam, len(messages))
	copy(c.messages, messages)
	c.tokenCount = token.CountMessages(c.messages)
}

// AddUserMessage appends a user text message.
func (c *Conversation) AddUserMessage(text string) {
	c.append(anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
}

// AddAssistantMessage appends an assistant message as returned by the
// model client.
func (c *Conversation) AddAssistantMessage(msg anthropic.MessageParam) {
	c.append(msg)
}

// AddToolResults appends a single user message carrying one tool
// result block per executed call.
func (c *Conversation) AddToolResults(results ...anthropic.ContentBlockParamUnion) {
	c.append(anthropic.NewUserMessage(results...))
}

func (c *Conversation) append(msg anthropic.MessageParam) {
	c.messages = append(c.messages, msg)
	c.tokenCount += token.CountMessage(msg)
}

// Messages returns a copy of the history as API-ready params.
func (c *Conversation) Messages() []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the conversation.
func (c *Conversation) Len() int {
	return len(c.messages)
}
