package tool

import "path/filepath"

// ResolvePath makes p absolute and cleaned. Relative paths resolve
// against workDir. The same normalization is applied by the scheduler's
// path extractor, so a tool and the conflict detector always agree on
// which file a call touches.
func ResolvePath(p, workDir string) string {
	if p == "" {
		return ""
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(workDir, p)
	}
	return filepath.Clean(p)
}
