package version

// Default build-time variables. These values are overridden via ldflags
// by the release build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
