// Package tool defines the agent's tool interface, the capability
// metadata used for scheduling, and the built-in tool implementations.
package tool

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
)

// Tool is implemented by every tool the agent can invoke.
type Tool interface {
	Name() string
	Description() string
	InputSchema() anthropic.ToolInputSchemaParam
	Execute(ctx context.Context, input json.RawMessage) (Result, error)
}

// Result holds the output from a tool execution. IsError marks a
// tool-level failure that should be reported back to the model; Go
// errors from Execute are reserved for invocation-level failures.
type Result struct {
	Output  string
	IsError bool
}

// OpType classifies whether a tool reads or mutates state.
type OpType int

const (
	OpRead OpType = iota
	OpWrite
)

// String returns the wire name of the operation type.
func (o OpType) String() string {
	if o == OpWrite {
		return "write"
	}
	return "read"
}

// Scope classifies whether a tool's side effects are bounded to
// identifiable resource paths (confined) or unbounded (unconfined,
// e.g. arbitrary shell execution).
type Scope int

const (
	ScopeConfined Scope = iota
	ScopeUnconfined
)

// String returns the wire name of the scope.
func (s Scope) String() string {
	if s == ScopeUnconfined {
		return "unconfined"
	}
	return "confined"
}

// Metadata describes a tool's scheduling capabilities. It is registered
// explicitly alongside each tool rather than discovered by type
// assertion, so the scheduler never inspects tool values.
type Metadata struct {
	// Op is the operation class used in conflict detection.
	Op OpType

	// Scope bounds the tool's side effects. Unconfined writes act as
	// barriers and never run concurrently with anything.
	Scope Scope

	// PathKeys lists the JSON argument keys that carry filesystem
	// paths. Empty for tools whose resources aren't path-addressable.
	PathKeys []string
}

// ToolCall is one tool invocation parsed out of a model response.
// Provider wire shapes are normalized into this record once, at the
// client boundary; it is immutable afterwards.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}
