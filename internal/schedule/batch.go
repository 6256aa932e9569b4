package schedule

import (
	"github.com/mgreenly/nu-agent/internal/tool"
)

// MetadataSource resolves a tool name to its scheduling metadata.
// *tool.Registry satisfies it.
type MetadataSource interface {
	Metadata(name string) (tool.Metadata, bool)
}

// Batch is an ordered group of tool calls guaranteed conflict-free and
// eligible to run concurrently. Batches are numbered from 1 in
// execution order and never mutated after analysis.
type Batch struct {
	Number int
	Calls  []tool.ToolCall
}

// Analyzer partitions an ordered list of tool calls into batches that
// preserve the original order when flattened.
type Analyzer struct {
	meta    MetadataSource
	workDir string
}

// NewAnalyzer creates an Analyzer backed by the given metadata source.
// workDir anchors relative path normalization.
func NewAnalyzer(meta MetadataSource, workDir string) *Analyzer {
	return &Analyzer{meta: meta, workDir: workDir}
}

// member is a call admitted to the open batch plus the facts the
// conflict check needs about it.
type member struct {
	paths   []string
	isWrite bool
}

// Analyze partitions calls into an ordered list of batches. It is a
// pure function of its input and the registered metadata:
//
//   - an unconfined write closes the open batch and occupies a batch of
//     its own (a barrier), since its effects can touch anything;
//   - a call with no resource paths joins the open batch
//     unconditionally, it cannot conflict by path;
//   - otherwise the call joins the open batch unless it shares a path
//     with a member and either side writes, in which case the open
//     batch is sealed and a new one starts with this call.
//
// Only the open batch needs checking: earlier batches finish executing
// before later ones start, so their conflicts are already serialized.
// Flattening the returned batches always reproduces the input exactly.
func (a *Analyzer) Analyze(calls []tool.ToolCall) []Batch {
	var batches []Batch
	var open []tool.ToolCall
	var members []member

	seal := func() {
		if len(open) == 0 {
			return
		}
		batches = append(batches, Batch{Number: len(batches) + 1, Calls: open})
		open = nil
		members = nil
	}

	for _, call := range calls {
		meta, ok := a.meta.Metadata(call.Name)
		if !ok {
			// Unknown tools are screened out before scheduling; if one
			// slips through, isolate it like a barrier.
			meta = tool.Metadata{Op: tool.OpWrite, Scope: tool.ScopeUnconfined}
		}

		if meta.Op == tool.OpWrite && meta.Scope == tool.ScopeUnconfined {
			seal()
			batches = append(batches, Batch{Number: len(batches) + 1, Calls: []tool.ToolCall{call}})
			continue
		}

		paths := Extract(call, meta, a.workDir)
		m := member{paths: paths, isWrite: meta.Op == tool.OpWrite}

		if len(paths) > 0 && conflictsWithAny(m, members) {
			seal()
		}
		open = append(open, call)
		members = append(members, m)
	}
	seal()

	return batches
}

// conflictsWithAny reports whether candidate shares a path with any
// member when at least one of the two writes. Read/read overlap never
// conflicts.
func conflictsWithAny(candidate member, members []member) bool {
	for _, m := range members {
		if !candidate.isWrite && !m.isWrite {
			continue
		}
		if intersects(candidate.paths, m.paths) {
			return true
		}
	}
	return false
}

// intersects reports whether two sorted path sets share an element.
func intersects(a, b []string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}
