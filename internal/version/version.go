// Package version exposes the build-time version stamp.
package version

// version is overridden at build time via
// -ldflags "-X github.com/prdump/prdump/internal/version.version=v1.2.3".
var version = "v0.0.0-dev"

// Value returns the version embedded at build time.
func Value() string {
	return version
}
