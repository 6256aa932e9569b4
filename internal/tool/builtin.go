package tool

// RegisterBuiltins registers the built-in tool set with the scheduling
// metadata each tool was designed for. Read-only tools are confined
// reads; write and edit target a single path; move touches two; bash is
// the unconfined write that serializes everything around it.
func RegisterBuiltins(r *Registry, workDir string) error {
	builtins := []struct {
		tool Tool
		meta Metadata
	}{
		{&ReadTool{WorkDir: workDir}, Metadata{Op: OpRead, Scope: ScopeConfined, PathKeys: []string{"file_path"}}},
		{&WriteTool{WorkDir: workDir}, Metadata{Op: OpWrite, Scope: ScopeConfined, PathKeys: []string{"file_path"}}},
		{&EditTool{WorkDir: workDir}, Metadata{Op: OpWrite, Scope: ScopeConfined, PathKeys: []string{"file_path"}}},
		{&MoveTool{WorkDir: workDir}, Metadata{Op: OpWrite, Scope: ScopeConfined, PathKeys: []string{"source_path", "destination_path"}}},
		{&GlobTool{WorkDir: workDir}, Metadata{Op: OpRead, Scope: ScopeConfined}},
		{&GrepTool{WorkDir: workDir}, Metadata{Op: OpRead, Scope: ScopeConfined}},
		{&ListDirTool{WorkDir: workDir}, Metadata{Op: OpRead, Scope: ScopeConfined}},
		{&BashTool{WorkDir: workDir}, Metadata{Op: OpWrite, Scope: ScopeUnconfined}},
	}

	for _, b := range builtins {
		if err := r.Register(b.tool, b.meta); err != nil {
			return err
		}
	}
	return nil
}
