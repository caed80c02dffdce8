// Package version exposes build metadata for the auctionsync binaries.
package version

import "fmt"

// Overridden at build time, e.g.:
//
//	go build -ldflags "-X github.com/Chakradhar-Malage/auctionsync/internal/version.Version=1.0.0"
var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"

	// Commit is the short git commit hash.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp in RFC 3339 form.
	BuildTime = "unknown"
)

// String formats the full version line printed by --version.
func String() string {
	return fmt.Sprintf("auctionsync %s (%s) built %s", Version, Commit, BuildTime)
}
