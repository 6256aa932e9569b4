// Package schedule partitions tool calls into conflict-free batches and
// executes each batch concurrently, preserving the model's original
// call order in the results.
package schedule

import (
	"encoding/json"
	"sort"

	"github.com/mgreenly/nu-agent/internal/tool"
)

// Extract returns the normalized set of filesystem paths a tool call
// touches, derived from the call's arguments and the tool's registered
// path-bearing keys. Unconfined tools yield no paths; their effects are
// unbounded and the analyzer isolates them structurally instead. Tools
// whose resources are not path-addressable also yield no paths, which
// means they never conflict by path.
//
// Extract never fails: malformed arguments or missing keys simply
// contribute nothing.
func Extract(call tool.ToolCall, meta tool.Metadata, workDir string) []string {
	if meta.Scope == tool.ScopeUnconfined || len(meta.PathKeys) == 0 {
		return nil
	}

	var args map[string]json.RawMessage
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return nil
	}

	seen := make(map[string]struct{}, len(meta.PathKeys))
	var paths []string
	for _, key := range meta.PathKeys {
		raw, ok := args[key]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil || value == "" {
			continue
		}
		p := tool.ResolvePath(value, workDir)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	sort.Strings(paths)
	return paths
}
