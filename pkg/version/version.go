// Package version exposes build information set at link time.
package version

// Set with -ldflags "-X github.com/rshade/splairdrop/pkg/version.version=...".
//
//nolint:gochecknoglobals // Overridden by the linker.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersion returns the release version, or "dev" for local builds.
func GetVersion() string {
	return version
}

// GetCommit returns the git commit the binary was built from.
func GetCommit() string {
	return commit
}

// GetBuildDate returns the build timestamp.
func GetBuildDate() string {
	return date
}

// String returns the version with its commit and build date.
func String() string {
	return version + " (commit " + commit + ", built " + date + ")"
}
