package tool

import (
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
)

// Registry manages the set of tools available to the agent together
// with the capability metadata the scheduler consults.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

type entry struct {
	tool Tool
	meta Metadata
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register adds a tool and its metadata to the registry. Returns an
// error if a tool with the same name is already registered.
func (r *Registry) Register(t Tool, meta Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.entries[name] = entry{tool: t, meta: meta}
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the tool with the given name, or nil if not found.
func (r *Registry) Lookup(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name].tool
}

// Metadata returns the capability metadata for the named tool.
// The second return value is false for unknown tools.
func (r *Registry) Metadata(name string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.meta, ok
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.entries[name].tool)
	}
	return result
}

// ToolParams returns the Anthropic API tool parameter definitions for
// all registered tools.
func (r *Registry) ToolParams() []anthropic.ToolUnionParam {
	r.mu.RLock()
	defer r.mu.RUnlock()

	params := make([]anthropic.ToolUnionParam, 0, len(r.order))
	for _, name := range r.order {
		t := r.entries[name].tool
		param := anthropic.ToolUnionParamOfTool(t.InputSchema(), t.Name())
		param.OfTool.Description = anthropic.String(t.Description())
		params = append(params, param)
	}
	return params
}
