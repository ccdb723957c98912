// Package version holds build metadata injected at link time via -ldflags.
package version

import "fmt"

// Build metadata. Overridden at link time with
// -ldflags "-X .../pkg/version.Version=v1.2.3 ...".
var (
	// Version is the semantic version of the binary.
	Version = "dev"
	// Commit is the Git hash the binary was built from.
	Commit = "<unknown>"
	// Date is the build timestamp.
	Date = "<unknown>"
)

// String renders the version line shown by the version command.
func String() string {
	return fmt.Sprintf("isetdb %s (commit: %s, built: %s)", Version, Commit, Date)
}
