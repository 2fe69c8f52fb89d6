package version

import (
	"fmt"
	"runtime"
)

var (
	// BinaryName is the name of the binary, overridable at build time via
	// ldflags
	BinaryName = "sensebox"

	// Version is the current version of the binary, set at build time
	Version = "UNKNOWN"

	// BuildDate is the date the binary was built, set at build time
	BuildDate = "UNKNOWN"
)

// VersionString returns a version string containing the version, the OS and
// architecture we were compiled for, and the build date.
func VersionString() string {
	return fmt.Sprintf("%s (%s/%s). Build date: %s", Version, runtime.GOOS, runtime.GOARCH, BuildDate)
}
