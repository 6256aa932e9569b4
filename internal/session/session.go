// Package session provides persistence for agent conversations.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// Metrics accumulates usage across an entire session.
type Metrics struct {
	TokensInput   int64   `json:"tokens_input"`
	TokensOutput  int64   `json:"tokens_output"`
	SpendUSD      float64 `json:"spend_usd"`
	MessageCount  int     `json:"message_count"`
	ToolCallCount int     `json:"tool_call_count"`
}

// Merge folds another round's metrics into the accumulated totals.
// Input tokens take the max of the two values rather than the sum:
// the API reports the full context size on every request, so summing
// would count the same tokens once per round.
func (m *Metrics) Merge(other Metrics) {
	if other.TokensInput > m.TokensInput {
		m.TokensInput = other.TokensInput
	}
	m.TokensOutput += other.TokensOutput
	m.SpendUSD += other.SpendUSD
	m.MessageCount += other.MessageCount
	m.ToolCallCount += other.ToolCallCount
}

// Session represents a saved conversation session.
type Session struct {
	ID        string                   `json:"id"`
	Title     string                   `json:"title"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
	Messages  []anthropic.MessageParam `json:"messages"`
	Metrics   Metrics                  `json:"metrics"`
}

// NewSession creates a new session with a generated ID.
func NewSession() (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// generateID creates a random 8-character hex ID.
func generateID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SetTitle sets the session title.
func (s *Session) SetTitle(title string) {
	s.Title = title
	s.UpdatedAt = time.Now()
}

// SetMessages replaces the session's messages.
func (s *Session) SetMessages(messages []anthropic.MessageParam) {
	s.Messages = messages
	s.UpdatedAt = time.Now()
}

// AddMetrics merges round metrics into the session totals.
func (s *Session) AddMetrics(m Metrics) {
	s.Metrics.Merge(m)
	s.UpdatedAt = time.Now()
}

// MessageCount returns the number of messages in the session.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// Summary contains metadata about a session for listing purposes.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	SpendUSD     float64   `json:"spend_usd"`
}

// Summary returns a Summary of the session without the full messages.
func (s *Session) Summary() Summary {
	return Summary{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.Messages),
		SpendUSD:     s.Metrics.SpendUSD,
	}
}
