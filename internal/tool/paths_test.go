package tool

import "testing"

func TestResolvePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		path    string
		workDir string
		want    string
	}{
		{"absolute unchanged", "/etc/hosts", "/work", "/etc/hosts"},
		{"relative joined", "src/main.go", "/work", "/work/src/main.go"},
		{"dot segments collapsed", "/work/./a/../b.txt", "/work", "/work/b.txt"},
		{"relative with parent", "../other.txt", "/work/sub", "/work/other.txt"},
		{"empty stays empty", "", "/work", ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolvePath(c.path, c.workDir); got != c.want {
				t.Errorf("ResolvePath(%q, %q) = %q, want %q", c.path, c.workDir, got, c.want)
			}
		})
	}
}
