// Package token provides cheap token-count estimation for context
// budgeting. Claude's BPE tokenizer averages roughly four characters
// per token for English text; exact counts only come from the API.
package token

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
)

const charsPerToken = 4

// Count estimates the number of tokens in a string.
func Count(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + charsPerToken - 1) / charsPerToken
}

// CountMessage estimates the token count for a single message.
func CountMessage(msg anthropic.MessageParam) int {
	total := 2 // role overhead
	for _, block := range msg.Content {
		total += countBlock(block)
	}
	return total
}

// CountMessages estimates the total token count for a message list.
func CountMessages(msgs []anthropic.MessageParam) int {
	total := 0
	for _, msg := range msgs {
		total += CountMessage(msg)
	}
	return total
}

func countBlock(block anthropic.ContentBlockParamUnion) int {
	switch {
	case block.OfText != nil:
		return Count(block.OfText.Text)
	case block.OfToolUse != nil:
		raw, err := json.Marshal(block.OfToolUse.Input)
		if err != nil {
			return Count(block.OfToolUse.Name) + 50
		}
		return Count(block.OfToolUse.Name) + Count(string(raw))
	case block.OfToolResult != nil:
		total := 10 // tool_use_id and framing
		for _, c := range block.OfToolResult.Content {
			if c.OfText != nil {
				total += Count(c.OfText.Text)
			} else {
				total += 50
			}
		}
		return total
	default:
		return 50
	}
}
