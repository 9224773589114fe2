// Package version exposes the build metadata stamped into the binary.
package version

import (
	"fmt"
	"runtime"
)

// Version, BuildTime and GitCommit are overridden at startup with the
// -ldflags values carried by package main. GoVersion is taken from the
// running toolchain and never injected.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

// SetInfo records build metadata. Empty values keep the defaults so a
// partially stamped binary still reports something useful.
func SetInfo(version, buildTime, gitCommit string) {
	if version != "" {
		Version = version
	}
	if buildTime != "" {
		BuildTime = buildTime
	}
	if gitCommit != "" {
		GitCommit = gitCommit
	}
}

// ShortCommit truncates the recorded commit hash to the usual seven
// characters for log lines.
func ShortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

// FormatStartupMessage renders the banner printed when the scheduler boots.
func FormatStartupMessage() string {
	return fmt.Sprintf("⏰ Cronbot %s (commit %s, built %s)", Version, ShortCommit(), BuildTime)
}
