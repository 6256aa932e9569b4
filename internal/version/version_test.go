package version

import "testing"

func TestDefaults(t *testing.T) {
	// Not parallel: reads package-level variables that other tests may override.
	if Version != "0.1.0" {
		t.Errorf("expected default version '0.1.0', got %q", Version)
	}
	if Commit != "dev" {
		t.Errorf("expected default commit 'dev', got %q", Commit)
	}
}
