// Package version carries the engine version and the compatibility check
// applied when loading externally built strategies.
package version

// Version is the current engine version. It is set at build time:
// -ldflags "-X github.com/rxtech-lab/pulse-trading/internal/version.Version=1.2.3"
// The default "main" indicates a development build.
var Version = "main"

// GetVersion returns the current engine version.
func GetVersion() string {
	return Version
}
