// Package version carries build identification injected at link time via
// -ldflags "-X github.com/tractometry/tractoscore/internal/version.Version=...".
package version

var (
	// Version is the release version of the scoring tool.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
