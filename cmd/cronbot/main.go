package main

import (
	"os"

	"github.com/aatumaykin/cronbot/internal/constants"
	"github.com/aatumaykin/cronbot/internal/version"
)

// Build-time variables, injected via -ldflags
var (
	Version   = constants.DefaultVersion
	BuildTime = constants.DefaultBuildTime
	GitCommit = constants.DefaultGitCommit
)

func init() {
	version.SetInfo(Version, BuildTime, GitCommit)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
