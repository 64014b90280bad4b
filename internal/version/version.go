// Package version exposes build metadata injected with -ldflags "-X".
package version

import "fmt"

// Overridden at link time, e.g.
// -ldflags "-X github.com/GoCodeAlone/taskflow/internal/version.Version=v1.2.0".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String formats the build metadata for display.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
}
