package version

var (
	// Version is the version of imucal, set at build time.
	Version = "v0.0.0-dev"
	// GitCommit is the commit imucal was built from, set at build time.
	GitCommit = "unknown"
)
