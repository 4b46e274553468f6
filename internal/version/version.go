// Package version holds the gzscan version information.
package version

import "fmt"

const (
	// Name of the program.
	Name string = "gzscan"
	// Version of gzscan.
	Version string = "1.0.0-develop"
)

// Commit is set at build time with -ldflags.
var Commit = "unknown"

// String returns the version line printed by --version.
func String() string {
	return fmt.Sprintf("%s %s (commit %s)", Name, Version, Commit)
}
