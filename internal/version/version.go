// Package version holds build-time version information.
package version

// Version is the semantic version of the build. Overridden at build time
// via -ldflags "-X github.com/mgreenly/nu-agent/internal/version.Version=...".
var Version = "0.1.0"

// Commit is the git commit the binary was built from.
var Commit = "dev"
