package version

// Set via -ldflags "-X github.com/chmdznr/savannah/pkg/version.Version=..." at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
