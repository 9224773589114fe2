package constants

// DefaultVersion is the version reported when none is injected at build time
const DefaultVersion = "0.1.0-dev"

// DefaultBuildTime is the build time placeholder when not injected at build time
const DefaultBuildTime = "unknown"

// DefaultGitCommit is the git commit placeholder when not injected at build time
const DefaultGitCommit = "unknown"
